package callbacks

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tidwall/sjson"

	"github.com/aoisakanana/railway/pkg/dag"
)

// StepRecord is one observed step invocation.
type StepRecord struct {
	Node    string       `json:"node"`
	State   dag.StateKey `json:"state"`
	Payload any          `json:"payload,omitempty"`
	At      time.Time    `json:"at"`
}

// Recorder keeps an in-memory trace of every step the runner reports.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []StepRecord
}

// NewRecorder returns an empty trace recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnStep satisfies dag.StepCallback.
func (r *Recorder) OnStep(node string, state dag.StateKey, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, StepRecord{
		Node:    node,
		State:   state,
		Payload: payload,
		At:      time.Now().UTC(),
	})
	return nil
}

// Records returns a copy of the trace so far.
func (r *Recorder) Records() []StepRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StepRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len reports how many steps have been recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Clear drops the trace so the recorder can observe another run.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// JSON renders the trace as a {"steps": [...]} document. Records whose
// payload cannot be marshaled are kept with the payload dropped.
func (r *Recorder) JSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []byte(`{"steps":[]}`)
	for _, rec := range r.records {
		b, err := json.Marshal(rec)
		if err != nil {
			stripped := rec
			stripped.Payload = nil
			if b, err = json.Marshal(stripped); err != nil {
				return nil, err
			}
		}
		if out, err = sjson.SetRawBytes(out, "steps.-1", b); err != nil {
			return nil, err
		}
	}
	return out, nil
}
