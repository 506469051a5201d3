package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. It is the default when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[int64]*Config
	runs    map[string]*memRun
	nextID  int64
	seq     int64
	now     func() time.Time
}

type memRun struct {
	Run
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[int64]*Config),
		runs:    make(map[string]*memRun),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateConfig(_ context.Context, name, yamlText string) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now()
	c := &Config{ID: s.nextID, Name: name, YAMLText: yamlText, CreatedAt: now, UpdatedAt: now}
	s.configs[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) GetConfig(_ context.Context, id int64) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[id]
	if !ok {
		return nil, fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListConfigs(_ context.Context) ([]*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Config, 0, len(s.configs))
	for _, c := range s.configs {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateConfig(_ context.Context, id int64, upd ConfigUpdate) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[id]
	if !ok {
		return nil, fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.YAMLText != nil {
		c.YAMLText = *upd.YAMLText
	}
	c.UpdatedAt = s.now()
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) CreateRun(_ context.Context, configID int64) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[configID]; !ok {
		return nil, fmt.Errorf("config %d: %w", configID, ErrNotFound)
	}
	s.seq++
	r := &memRun{
		Run: Run{
			ID:        uuid.NewString(),
			ConfigID:  configID,
			Status:    StatusQueued,
			CreatedAt: s.now(),
		},
		seq: s.seq,
	}
	s.runs[r.ID] = r
	return r.copy(), nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r.copy(), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, activeOnly bool) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := make([]*memRun, 0, len(s.runs))
	for _, r := range s.runs {
		if activeOnly && !r.Status.Active() {
			continue
		}
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].seq > rs[j].seq })
	out := make([]*Run, len(rs))
	for i, r := range rs {
		out[i] = r.copy()
	}
	return out, nil
}

func (s *MemoryStore) ClaimNextRun(_ context.Context) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *memRun
	for _, r := range s.runs {
		if r.Status != StatusQueued {
			continue
		}
		if next == nil || r.seq < next.seq {
			next = r
		}
	}
	if next == nil {
		return nil, nil
	}
	now := s.now()
	next.Status = StatusRunning
	next.StartedAt = &now
	return next.copy(), nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, id string, p Progress) error {
	return s.update(id, func(r *memRun) {
		r.ProgressCurrent = p.Current
		r.ProgressTotal = p.Total
		if p.Message != "" {
			r.ProgressMessage = truncate(p.Message, maxProgressMessage)
		}
	})
}

func (s *MemoryStore) AppendLog(_ context.Context, id, text string) error {
	return s.update(id, func(r *memRun) { r.Log += text })
}

func (s *MemoryStore) FinishRun(_ context.Context, id string, status RunStatus, errMsg string) error {
	return s.update(id, func(r *memRun) {
		now := s.now()
		r.Status = status
		r.FinishedAt = &now
		r.ErrorMessage = errMsg
	})
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) update(id string, fn func(*memRun)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	fn(r)
	return nil
}

func (r *memRun) copy() *Run {
	cp := r.Run
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
