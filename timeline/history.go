package timeline

import (
	"reflect"
	"time"
)

const (
	// historyCap bounds the undo ring.
	historyCap = 20
	// fullEvery is the compression stride: at capacity every
	// fullEvery-th entry stays a full snapshot and the entries in
	// between are rewritten as deltas against it.
	fullEvery = 10
)

// EntryKind distinguishes full snapshots from sparse deltas.
type EntryKind string

const (
	EntryFull  EntryKind = "full"
	EntryDelta EntryKind = "delta"
)

// stateDelta holds only the top-level fields that changed relative to
// the nearest preceding retained full snapshot. Nil fields are
// unchanged.
type stateDelta struct {
	Clips    []Clip
	hasClips bool
	Playhead *float64
	Selected []string
	hasSel   bool
	Tool     *Tool
	Duration *float64
}

// Entry is one undo history slot.
type Entry struct {
	Timestamp time.Time
	Kind      EntryKind
	full      *State
	delta     *stateDelta
}

// History is a bounded, delta-compressed undo ring. Entries are pushed
// as full snapshots; once the ring is at capacity a compression pass
// keeps every tenth entry full and rewrites the rest as deltas.
type History struct {
	entries []Entry
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Push stores a full snapshot of s, evicting the oldest entry and
// compressing once the ring is full.
func (h *History) Push(s *State) {
	h.entries = append(h.entries, Entry{
		Timestamp: time.Now(),
		Kind:      EntryFull,
		full:      s.Clone(),
	})
	if len(h.entries) > historyCap {
		h.compress()
	}
}

// Pop removes and materializes the most recent entry. A delta entry is
// merged onto the nearest preceding full snapshot; if no full snapshot
// precedes it the pop is refused.
func (h *History) Pop() (*State, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	last := len(h.entries) - 1
	s, ok := h.materialize(last)
	if !ok {
		return nil, false
	}
	h.entries = h.entries[:last]
	return s, true
}

// materialize rebuilds the full state stored at index i.
func (h *History) materialize(i int) (*State, bool) {
	e := h.entries[i]
	if e.Kind == EntryFull {
		return e.full.Clone(), true
	}
	base := -1
	for j := i - 1; j >= 0; j-- {
		if h.entries[j].Kind == EntryFull {
			base = j
			break
		}
	}
	if base < 0 {
		return nil, false
	}
	return applyDelta(h.entries[base].full, e.delta), true
}

// compress trims the ring to capacity and rewrites it so entries at
// stride boundaries stay full and everything else becomes a delta
// against the nearest preceding retained full snapshot. Every entry is
// materialized before the oldest ones are dropped, so eviction never
// strands a delta without its base, and repeated passes never chain
// deltas onto deltas.
func (h *History) compress() {
	states := make([]*State, 0, len(h.entries))
	entries := make([]Entry, 0, historyCap)
	for i := range h.entries {
		s, ok := h.materialize(i)
		if !ok {
			continue
		}
		states = append(states, s)
		entries = append(entries, h.entries[i])
	}
	if len(entries) > historyCap {
		drop := len(entries) - historyCap
		states = states[drop:]
		entries = entries[drop:]
	}

	lastFull := -1
	for i := range entries {
		if i%fullEvery == 0 || lastFull < 0 {
			entries[i].Kind = EntryFull
			entries[i].full = states[i]
			entries[i].delta = nil
			lastFull = i
			continue
		}
		entries[i].Kind = EntryDelta
		entries[i].delta = diffStates(states[lastFull], states[i])
		entries[i].full = nil
	}
	h.entries = entries
}

// diffStates computes the sparse delta from base to next, comparing
// each top-level field by deep equality.
func diffStates(base, next *State) *stateDelta {
	d := &stateDelta{}
	if !reflect.DeepEqual(base.Clips, next.Clips) {
		d.hasClips = true
		d.Clips = make([]Clip, len(next.Clips))
		for i, c := range next.Clips {
			d.Clips[i] = cloneClip(c)
		}
	}
	if base.Playhead != next.Playhead {
		v := next.Playhead
		d.Playhead = &v
	}
	if !reflect.DeepEqual(base.Selected, next.Selected) {
		d.hasSel = true
		d.Selected = next.SelectedIDs()
	}
	if base.Tool != next.Tool {
		v := next.Tool
		d.Tool = &v
	}
	if base.Duration != next.Duration {
		v := next.Duration
		d.Duration = &v
	}
	return d
}

// applyDelta merges a sparse delta onto a clone of the base snapshot.
func applyDelta(base *State, d *stateDelta) *State {
	s := base.Clone()
	if d == nil {
		return s
	}
	if d.hasClips {
		s.Clips = make([]Clip, len(d.Clips))
		for i, c := range d.Clips {
			s.Clips[i] = cloneClip(c)
		}
	}
	if d.Playhead != nil {
		s.Playhead = *d.Playhead
	}
	if d.hasSel {
		s.Selected = make(map[string]bool, len(d.Selected))
		for _, id := range d.Selected {
			s.Selected[id] = true
		}
	}
	if d.Tool != nil {
		s.Tool = *d.Tool
	}
	if d.Duration != nil {
		s.Duration = *d.Duration
	}
	return s
}
