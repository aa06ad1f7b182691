// Package testutil provides shared helpers for tests.
package testutil

import (
	"sync"
	"time"

	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
)

// ManualTimers is a flow.AfterFunc whose timers only fire when told to.
type ManualTimers struct {
	mu      sync.Mutex
	pending []*manualTimer
	delays  []time.Duration
}

type manualTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManualTimers creates an empty timer source.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// AfterFunc records f instead of scheduling it.
func (m *ManualTimers) AfterFunc(d time.Duration, f func()) flow.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{fn: f}
	m.pending = append(m.pending, t)
	m.delays = append(m.delays, d)
	return t
}

// Pending returns the number of timers that have neither fired nor stopped.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.pending {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// Delays returns every delay requested so far.
func (m *ManualTimers) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

// FireAll runs every pending timer and returns how many fired.
func (m *ManualTimers) FireAll() int {
	m.mu.Lock()
	timers := m.pending
	m.pending = nil
	m.mu.Unlock()

	n := 0
	for _, t := range timers {
		t.mu.Lock()
		run := !t.stopped && !t.fired
		t.fired = true
		t.mu.Unlock()
		if run {
			t.fn()
			n++
		}
	}
	return n
}

// FileRefs builds file references from names.
func FileRefs(names ...string) []models.FileRef {
	refs := make([]models.FileRef, 0, len(names))
	for _, n := range names {
		refs = append(refs, models.FileRef{Name: n, ContentType: "application/pdf"})
	}
	return refs
}
