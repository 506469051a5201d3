package data

import (
	"context"
	"sync"

	"community-load/internal/model"
)

// Request names one building file to read. Requests may repeat.
type Request struct {
	BuildingID string
	Path       string
}

// Reader reads many building files. Duplicate paths are decoded once and the result is
// reassembled in request order, so a building sampled twice contributes its rows twice.
type Reader struct {
	Options ReadOptions
	// Workers > 1 decodes unique files in parallel.
	Workers int
	// Cache is optional.
	Cache *FileCache
	// OnFile, if set, is called after each unique file is decoded. It may be called
	// from several goroutines.
	OnFile func(path string)
}

type readResult struct {
	path string
	ts   *model.Timeseries
	err  error
}

// ReadAll returns the concatenation of every requested file in request order.
// The first failure aborts the read.
func (r *Reader) ReadAll(ctx context.Context, reqs []Request) (*model.Timeseries, error) {
	if len(reqs) == 0 {
		return &model.Timeseries{}, nil
	}

	// Preserve first-seen order while dropping duplicates.
	var unique []Request
	seen := map[string]bool{}
	for _, q := range reqs {
		if !seen[q.Path] {
			seen[q.Path] = true
			unique = append(unique, q)
		}
	}

	files := make(map[string]*model.Timeseries, len(unique))
	var todo []Request
	for _, q := range unique {
		if ts, ok := r.Cache.Get(q.Path, r.Options); ok {
			files[q.Path] = ts
			continue
		}
		todo = append(todo, q)
	}

	var err error
	if r.Workers > 1 && len(todo) > 1 {
		err = r.readParallel(ctx, todo, files)
	} else {
		err = r.readSequential(ctx, todo, files)
	}
	if err != nil {
		return nil, err
	}

	parts := make([]*model.Timeseries, 0, len(reqs))
	for _, q := range reqs {
		parts = append(parts, files[q.Path])
	}
	return model.Concat(parts...), nil
}

func (r *Reader) readOne(q Request) (*model.Timeseries, error) {
	ts, err := ReadBuildingFile(q.Path, q.BuildingID, r.Options)
	if err != nil {
		return nil, err
	}
	r.Cache.Set(q.Path, r.Options, ts)
	if r.OnFile != nil {
		r.OnFile(q.Path)
	}
	return ts, nil
}

func (r *Reader) readSequential(ctx context.Context, todo []Request, files map[string]*model.Timeseries) error {
	for _, q := range todo {
		if err := ctx.Err(); err != nil {
			return err
		}
		ts, err := r.readOne(q)
		if err != nil {
			return err
		}
		files[q.Path] = ts
	}
	return nil
}

func (r *Reader) readParallel(ctx context.Context, todo []Request, files map[string]*model.Timeseries) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan Request)
	results := make(chan readResult, len(todo))

	workers := r.Workers
	if workers > len(todo) {
		workers = len(todo)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range jobs {
				ts, err := r.readOne(q)
				results <- readResult{path: q.Path, ts: ts, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, q := range todo {
			select {
			case jobs <- q:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	read := 0
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		files[res.path] = res.ts
		read++
	}
	if firstErr != nil {
		return firstErr
	}
	if read < len(todo) {
		// Dispatch stopped early because the caller's context was cancelled.
		return ctx.Err()
	}
	return nil
}
