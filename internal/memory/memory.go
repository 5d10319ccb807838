// Package memory implements the bounded rolling analytical context used to
// resolve follow-up questions ("what about last quarter?", "only for
// electronics"). This is not chat history; it is semantic analytical state,
// and only intents that survived validation are ever stored.
package memory

import (
	"sync"

	"github.com/storewise/storewise/internal/intent"
)

// DefaultMaxHistory bounds the intent history when no size is configured.
const DefaultMaxHistory = 5

// activeContext holds the last accepted value for each tracked field.
type activeContext struct {
	tables     []string
	metrics    []string
	dimensions []string
	filters    map[string]intent.FilterValue
	timeRange  *intent.TimeRange
	grain      string
}

func (c *activeContext) empty() bool {
	return len(c.tables) == 0 && len(c.metrics) == 0 && len(c.dimensions) == 0 &&
		len(c.filters) == 0 && c.timeRange.IsZero() && c.grain == ""
}

// Memory is a bounded FIFO of accepted intents plus the rolling active
// context derived from them. Safe for concurrent traversals: all operations
// hold an internal lock so interleaved requests cannot corrupt follow-up
// resolution ordering.
type Memory struct {
	mu         sync.Mutex
	maxHistory int
	history    []*intent.Intent
	active     activeContext
}

// New creates a memory bounded to maxHistory intents. Non-positive sizes
// fall back to DefaultMaxHistory.
func New(maxHistory int) *Memory {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Memory{maxHistory: maxHistory}
}

// Store appends an accepted intent to the history, evicting the oldest
// entry once the bound is reached, and folds the intent's non-empty tracked
// fields into the active context. Absent fields never erase context.
func (m *Memory) Store(in *intent.Intent) {
	if in == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, in.Clone())
	if len(m.history) > m.maxHistory {
		m.history = m.history[1:]
	}

	if len(in.Tables) > 0 {
		m.active.tables = append([]string(nil), in.Tables...)
	}
	if len(in.Metrics) > 0 {
		m.active.metrics = append([]string(nil), in.Metrics...)
	}
	if len(in.Dimensions) > 0 {
		m.active.dimensions = append([]string(nil), in.Dimensions...)
	}
	if len(in.Filters) > 0 {
		m.active.filters = cloneFilters(in.Filters)
	}
	if !in.TimeRange.IsZero() {
		tr := *in.TimeRange
		m.active.timeRange = &tr
	}
	if in.Grain != "" {
		m.active.grain = in.Grain
	}
}

// ResolveFollowup merges a new, possibly partial intent with the active
// context. Fields present on the new intent always win; only absent fields
// inherit remembered values. With no active context the intent is returned
// unchanged.
func (m *Memory) ResolveFollowup(in *intent.Intent) *intent.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active.empty() {
		return in
	}

	resolved := in.Clone()
	if len(resolved.Tables) == 0 {
		resolved.Tables = append([]string(nil), m.active.tables...)
	}
	if len(resolved.Metrics) == 0 {
		resolved.Metrics = append([]string(nil), m.active.metrics...)
	}
	if len(resolved.Dimensions) == 0 {
		resolved.Dimensions = append([]string(nil), m.active.dimensions...)
	}
	if len(resolved.Filters) == 0 && len(m.active.filters) > 0 {
		resolved.Filters = cloneFilters(m.active.filters)
	}
	if resolved.TimeRange.IsZero() && !m.active.timeRange.IsZero() {
		tr := *m.active.timeRange
		resolved.TimeRange = &tr
	}
	if resolved.Grain == "" {
		resolved.Grain = m.active.grain
	}
	return resolved
}

// LastIntent returns the most recently stored intent, or nil.
func (m *Memory) LastIntent() *intent.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return nil
	}
	return m.history[len(m.history)-1].Clone()
}

// Len returns the current history length.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Clear resets both the history and the active context. Invoked at session
// boundary.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.active = activeContext{}
}

func cloneFilters(in map[string]intent.FilterValue) map[string]intent.FilterValue {
	out := make(map[string]intent.FilterValue, len(in))
	for k, v := range in {
		out[k] = intent.FilterValue{Values: append([]any(nil), v.Values...), List: v.List}
	}
	return out
}
