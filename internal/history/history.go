// Package history keeps a bounded, thread-safe record of solve attempts and
// progress events for display and export.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// Attempt is one recorded solve result.
type Attempt struct {
	Time        time.Time `json:"time"`
	Attempt     int       `json:"attempt,omitempty"`
	Iteration   int       `json:"iteration,omitempty"`
	Success     bool      `json:"success"`
	RA          float64   `json:"ra_deg,omitempty"`  // J2000
	Dec         float64   `json:"dec_deg,omitempty"` // J2000
	Orientation float64   `json:"orientation_deg,omitempty"`
	Pixscale    float64   `json:"pixscale_arcsec,omitempty"`
	Flipped     bool      `json:"flipped,omitempty"`

	// SeparationArcmin is set for centering iterations.
	SeparationArcmin *float64 `json:"separation_arcmin,omitempty"`
}

// EventRecord is a progress event without image payloads.
type EventRecord struct {
	Time      time.Time `json:"time"`
	Phase     string    `json:"phase"`
	State     string    `json:"state,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Stats summarises the recorded attempts.
type Stats struct {
	Total  int `json:"total"`
	Solved int `json:"solved"`
	Failed int `json:"failed"`
}

// Config holds ring buffer sizes.
type Config struct {
	MaxAttempts int
	MaxEvents   int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 100,
		MaxEvents:   200,
	}
}

// Manager records attempts and events with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	attempts *ring[Attempt]
	events   *ring[EventRecord]
	stats    Stats
	last     *Attempt
}

// NewManager creates a history manager.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = def.MaxEvents
	}
	return &Manager{
		attempts: newRing[Attempt](cfg.MaxAttempts),
		events:   newRing[EventRecord](cfg.MaxEvents),
	}
}

// Record adds a solve result. Stats count every result, including those that
// have rotated out of the buffer.
func (m *Manager) Record(res platesolve.PlateSolveResult, attempt, iteration int) {
	a := Attempt{
		Time:      res.SolveTime,
		Attempt:   attempt,
		Iteration: iteration,
		Success:   res.Success,
	}
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	if res.Success {
		c := res.Coordinates.Transform(astro.J2000)
		a.RA = c.RA.Degrees()
		a.Dec = c.Dec.Degrees()
		a.Orientation = res.Orientation
		a.Pixscale = res.Pixscale
		a.Flipped = res.Flipped
	}
	if res.Separation != nil {
		sep := res.Separation.Distance.ArcMinutes()
		a.SeparationArcmin = &sep
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts.add(a)
	m.stats.Total++
	if a.Success {
		m.stats.Solved++
	} else {
		m.stats.Failed++
	}
	m.last = &a
}

// Observe adds a progress event. Solved events with a result are also
// recorded as attempts.
func (m *Manager) Observe(e platesolve.Event) {
	rec := EventRecord{
		Time:      e.Time,
		Phase:     e.Phase.String(),
		Attempt:   e.Attempt,
		Iteration: e.Iteration,
		Message:   e.Message,
	}
	if e.Iteration > 0 {
		rec.State = e.State.String()
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	m.mu.Lock()
	m.events.add(rec)
	m.mu.Unlock()

	if e.Phase != platesolve.PhaseSolved || e.Result == nil {
		return
	}
	// Centering re-reports the capture result with its separation.
	if e.Iteration == 0 {
		m.Record(*e.Result, e.Attempt, 0)
	} else {
		m.annotateLast(e.Iteration, e.Result.Separation)
	}
}

// annotateLast attaches the centering iteration and separation to the most
// recent attempt.
func (m *Manager) annotateLast(iteration int, sep *astro.Separation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := m.attempts.lastRef()
	if last == nil {
		return
	}
	last.Iteration = iteration
	if sep != nil {
		d := sep.Distance.ArcMinutes()
		last.SeparationArcmin = &d
	}
	cp := *last
	m.last = &cp
}

// Sink returns a progress sink that feeds the manager.
func (m *Manager) Sink() platesolve.ProgressSink {
	return platesolve.ProgressFunc(m.Observe)
}

// Snapshot is a consistent copy of the history.
type Snapshot struct {
	Attempts []Attempt     `json:"attempts"`
	Events   []EventRecord `json:"events"`
	Stats    Stats         `json:"stats"`
	Last     *Attempt      `json:"last,omitempty"`
}

// Snapshot returns a consistent snapshot of the history.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *Attempt
	if m.last != nil {
		cp := *m.last
		last = &cp
	}
	return Snapshot{
		Attempts: m.attempts.ordered(),
		Events:   m.events.ordered(),
		Stats:    m.stats,
		Last:     last,
	}
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []EventRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.events.ordered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// WriteJSON writes the snapshot as indented JSON.
func (m *Manager) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Snapshot()); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return nil
}

// ring is a fixed-size buffer that overwrites its oldest entry.
type ring[T any] struct {
	items   []T
	max     int
	writeAt int
}

func newRing[T any](max int) *ring[T] {
	return &ring[T]{items: make([]T, 0, max), max: max}
}

func (r *ring[T]) add(v T) {
	if len(r.items) < r.max {
		r.items = append(r.items, v)
		return
	}
	r.items[r.writeAt] = v
	r.writeAt = (r.writeAt + 1) % r.max
}

// lastRef returns the most recently added entry.
func (r *ring[T]) lastRef() *T {
	if len(r.items) == 0 {
		return nil
	}
	if len(r.items) < r.max {
		return &r.items[len(r.items)-1]
	}
	return &r.items[(r.writeAt+r.max-1)%r.max]
}

// ordered returns entries oldest first.
func (r *ring[T]) ordered() []T {
	if len(r.items) == 0 {
		return nil
	}
	if len(r.items) < r.max {
		out := make([]T, len(r.items))
		copy(out, r.items)
		return out
	}
	out := make([]T, r.max)
	for i := 0; i < r.max; i++ {
		out[i] = r.items[(r.writeAt+i)%r.max]
	}
	return out
}
