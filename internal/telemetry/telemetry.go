// Package telemetry provides a JSONL event stream recording what happens
// inside a dashboard session. Every accepted or rejected selection, node
// reset, isolated failure and completed propagation pass is written as a
// structured JSON event, making sessions auditable and replayable.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindCatalogLoaded     = "catalog_loaded"
	KindCatalogReload     = "catalog_reload"
	KindSessionStart      = "session_start"
	KindSessionEnd        = "session_end"
	KindSelectionSet      = "selection_set"
	KindSelectionRejected = "selection_rejected"
	KindNodeReset         = "node_reset"
	KindNodeFailed        = "node_failed"
	KindPassDone          = "pass_done"
)

// Event represents a single telemetry record. Each event carries a
// timestamp, a kind tag, and optional session and node identifiers along
// with arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	SessionID string    `json:"session,omitempty"`
	Node      string    `json:"node,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events as JSON lines. It is safe for concurrent
// use by multiple goroutines, so sessions served in parallel may share one.
// A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	w   io.WriteCloser
	enc *json.Encoder
	mu  sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return NewWriterEmitter(f), nil
}

// NewWriterEmitter wraps an arbitrary writer. Close closes w.
func NewWriterEmitter(w io.WriteCloser) *Emitter {
	return &Emitter{
		w:   w,
		enc: json.NewEncoder(w),
	}
}

// Emit writes a single event. A zero Timestamp is filled with the current
// UTC time. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying writer. Calling Close on a nil Emitter is a
// no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.w.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
