package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cody-cli/internal/api"
)

// Metadata identifies one session in flushed transcripts.
type Metadata struct {
	ID            string
	Task          string
	Model         string
	Endpoint      string
	RequestedWith string
	StartedAt     time.Time
}

// ToolCallRecord captures one tool invocation inside a turn: the arguments
// the model sent, what the executor produced, and how long it took.
type ToolCallRecord struct {
	ID          string
	Name        string
	Arguments   string
	Output      string
	Failed      bool
	ErrorDetail string
	Duration    time.Duration
}

// Turn is one request/response round. Once recorded it belongs to the
// recorder and is never mutated or reordered.
type Turn struct {
	Index     int
	StartedAt time.Time
	Latency   time.Duration
	Request   api.ChatRequest
	Response  *api.ChatResponse
	Failed    bool
	Error     string
	Usage     api.Usage
	ToolCalls []ToolCallRecord
}

// Recorder accumulates the chronological turn log of one session. The
// orchestration loop is single-threaded, but the mutex keeps append-only
// ordering intact if multiple callers ever share a recorder.
type Recorder struct {
	mu      sync.Mutex
	meta    Metadata
	turns   []Turn
	secrets []string
}

// NewRecorder creates a recorder. secrets are literal values (access
// tokens) that must never survive into a flushed artifact.
func NewRecorder(meta Metadata, secrets ...string) *Recorder {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now().UTC()
	}
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return &Recorder{meta: meta, secrets: kept}
}

// Metadata returns the session metadata.
func (r *Recorder) Metadata() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta
}

// RecordTurn appends a turn to the log. Indexes are assigned here, in
// arrival order.
func (r *Recorder) RecordTurn(t Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Index = len(r.turns) + 1
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now().UTC()
	}
	r.turns = append(r.turns, t)
}

// Snapshot returns a copy of the recorded turns in chronological order.
func (r *Recorder) Snapshot() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Turn, len(r.turns))
	copy(out, r.turns)
	return out
}

// Len reports the number of recorded turns.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns)
}

// Totals sums token usage across all recorded turns.
func (r *Recorder) Totals() api.Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total api.Usage
	for _, t := range r.turns {
		total.Add(t.Usage)
	}
	return total
}
