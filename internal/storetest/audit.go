package storetest

import (
	"context"
	"sync"

	"github.com/banksodee/clubsync/internal/audit"
)

// Audit is an in-memory audit.Recorder.
type Audit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

var _ audit.Recorder = (*Audit)(nil)

// Insert implements audit.Recorder.
func (a *Audit) Insert(_ context.Context, e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

// Entries returns the recorded entries in insertion order.
func (a *Audit) Entries() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.entries...)
}

// Statuses returns the status of every recorded entry.
func (a *Audit) Statuses() []audit.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Status, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Status
	}
	return out
}
