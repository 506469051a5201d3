package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps configs and runs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, checks the connection and applies the migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	s := &PostgresStore{db: db}
	if err := s.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations executes the embedded SQL files in name order. Every file is idempotent.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		log.Printf("[Store] Applied migration %s", strings.TrimPrefix(name, "migrations/"))
	}
	return nil
}

const configColumns = `id, name, yaml_text, created_at, updated_at`

func scanConfig(row interface{ Scan(...any) error }) (*Config, error) {
	var c Config
	if err := row.Scan(&c.ID, &c.Name, &c.YAMLText, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateConfig(ctx context.Context, name, yamlText string) (*Config, error) {
	query := `
		INSERT INTO configs (name, yaml_text)
		VALUES ($1, $2)
		RETURNING ` + configColumns
	return scanConfig(s.db.QueryRowContext(ctx, query, name, yamlText))
}

func (s *PostgresStore) GetConfig(ctx context.Context, id int64) (*Config, error) {
	query := `SELECT ` + configColumns + ` FROM configs WHERE id = $1`
	c, err := scanConfig(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	return c, err
}

func (s *PostgresStore) ListConfigs(ctx context.Context) ([]*Config, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+configColumns+` FROM configs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateConfig(ctx context.Context, id int64, upd ConfigUpdate) (*Config, error) {
	query := `
		UPDATE configs
		SET name = COALESCE($2, name),
		    yaml_text = COALESCE($3, yaml_text),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + configColumns
	c, err := scanConfig(s.db.QueryRowContext(ctx, query, id, nullString(upd.Name), nullString(upd.YAMLText)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	return c, err
}

const runColumns = `run_id, config_id, status, progress_current, progress_total, progress_message,
	created_at, started_at, finished_at, log_text, error_message`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		r        Run
		status   string
		started  sql.NullTime
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.ConfigID, &status, &r.ProgressCurrent, &r.ProgressTotal, &r.ProgressMessage,
		&r.CreatedAt, &started, &finished, &r.Log, &r.ErrorMessage)
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if started.Valid {
		r.StartedAt = &started.Time
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, configID int64) (*Run, error) {
	if _, err := s.GetConfig(ctx, configID); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO runs (run_id, config_id, status)
		VALUES ($1, $2, $3)
		RETURNING ` + runColumns
	return scanRun(s.db.QueryRowContext(ctx, query, uuid.NewString(), configID, string(StatusQueued)))
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, activeOnly bool) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	if activeOnly {
		query += ` WHERE status IN ('queued', 'running')`
	}
	query += ` ORDER BY seq DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClaimNextRun(ctx context.Context) (*Run, error) {
	query := `
		UPDATE runs
		SET status = 'running', started_at = CURRENT_TIMESTAMP
		WHERE run_id = (
			SELECT run_id FROM runs
			WHERE status = 'queued'
			ORDER BY seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + runColumns
	r, err := scanRun(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, id string, p Progress) error {
	query := `
		UPDATE runs
		SET progress_current = $2,
		    progress_total = $3,
		    progress_message = COALESCE(NULLIF($4::text, ''), progress_message)
		WHERE run_id = $1`
	return s.exec(ctx, id, query, id, p.Current, p.Total, truncate(p.Message, maxProgressMessage))
}

func (s *PostgresStore) AppendLog(ctx context.Context, id, text string) error {
	return s.exec(ctx, id, `UPDATE runs SET log_text = log_text || $2 WHERE run_id = $1`, id, text)
}

func (s *PostgresStore) FinishRun(ctx context.Context, id string, status RunStatus, errMsg string) error {
	query := `
		UPDATE runs
		SET status = $2, error_message = $3, finished_at = CURRENT_TIMESTAMP
		WHERE run_id = $1`
	return s.exec(ctx, id, query, id, string(status), errMsg)
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
