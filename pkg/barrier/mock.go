package barrier

import (
	"context"
	"sync"
)

// ScriptedLagSource returns canned lag sequences per replica name, in
// order. Once a replica's script is exhausted, the last value repeats.
// A nil entry in the script means "lag unknown". It is safe for use
// from tests only; production lag sources live in pkg/dbconn.
type ScriptedLagSource struct {
	mu      sync.Mutex
	scripts map[string][]*int64
	calls   map[string]int
	// Polled records the replica names in the order they were polled.
	Polled []string
}

func NewScriptedLagSource() *ScriptedLagSource {
	return &ScriptedLagSource{
		scripts: make(map[string][]*int64),
		calls:   make(map[string]int),
	}
}

// Script sets the lag sequence for a replica. Use Unknown for a poll
// where the lag cannot be determined.
func (s *ScriptedLagSource) Script(name string, lags ...*int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[name] = lags
}

// Lags is a convenience for scripting all-known lag values.
func Lags(values ...int64) []*int64 {
	out := make([]*int64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

// Unknown is a script entry for a poll where lag is undefined.
var Unknown *int64

func (s *ScriptedLagSource) Lag(_ context.Context, replica Replica) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Polled = append(s.Polled, replica.Name)
	script, found := s.scripts[replica.Name]
	if !found || len(script) == 0 {
		return 0, false
	}
	i := s.calls[replica.Name]
	if i >= len(script) {
		i = len(script) - 1
	}
	s.calls[replica.Name]++
	if script[i] == nil {
		return 0, false
	}
	return *script[i], true
}

// PollCount returns how many times a replica has been polled.
func (s *ScriptedLagSource) PollCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// RecordingSink collects Progress notifications for assertions.
type RecordingSink struct {
	mu      sync.Mutex
	Reports []Progress
}

func (r *RecordingSink) Report(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, p)
}

func (r *RecordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Reports)
}
