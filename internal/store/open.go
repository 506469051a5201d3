package store

import (
	"context"
	"log"
)

// Open returns a PostgresStore when dsn is set and a MemoryStore otherwise.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		log.Printf("[Store] DATABASE_URL not set, using in-memory store")
		return NewMemoryStore(), nil
	}
	return OpenPostgres(ctx, dsn)
}
