package runner

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"

	"community-load/internal/store"
)

// runLog is the io.Writer behind a run's logger. Complete lines are appended to the
// stored run log and published to the run's websocket clients.
type runLog struct {
	ctx     context.Context
	runID   string
	store   store.Store
	hub     *Hub
	metrics *Metrics

	mu      sync.Mutex
	partial bytes.Buffer
}

func (w *runLog) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.partial.Write(p)
	for {
		line, err := w.partial.ReadString('\n')
		if err != nil {
			// No newline yet: keep the fragment for the next write.
			w.partial.Reset()
			w.partial.WriteString(line)
			break
		}
		w.emit(strings.TrimSuffix(line, "\n"))
	}
	return len(p), nil
}

// Flush emits a trailing line that was never terminated.
func (w *runLog) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.partial.Len() > 0 {
		w.emit(w.partial.String())
		w.partial.Reset()
	}
}

func (w *runLog) emit(line string) {
	if err := w.store.AppendLog(w.ctx, w.runID, line+"\n"); err != nil {
		log.Printf("[Runner] append log for run %s: %v", w.runID, err)
	}
	if w.hub != nil {
		w.hub.Publish(Message{Type: TypeLog, RunID: w.runID, Line: line})
	}
	if w.metrics != nil {
		w.metrics.LogLines.Inc()
	}
}
