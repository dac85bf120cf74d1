package timeline

import "sort"

// Tool is the active editing tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolRazor  Tool = "razor"
)

// State is the complete mutable timeline: all clips across the fixed
// lanes, the playhead, the current selection, and the active tool.
// It is owned by the timeline subsystem; the story graph only reaches
// it through the reconciliation service.
type State struct {
	Clips    []Clip
	Playhead float64
	Selected map[string]bool
	Tool     Tool
	// Duration is the scene duration: the editable span bound used by
	// the clamp rules.
	Duration float64
}

// NewState returns an empty timeline bounded to the given scene duration.
func NewState(duration float64) *State {
	return &State{
		Selected: make(map[string]bool),
		Tool:     ToolSelect,
		Duration: duration,
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := &State{
		Playhead: s.Playhead,
		Tool:     s.Tool,
		Duration: s.Duration,
		Selected: make(map[string]bool, len(s.Selected)),
	}
	out.Clips = make([]Clip, len(s.Clips))
	for i, c := range s.Clips {
		out.Clips[i] = cloneClip(c)
	}
	for id := range s.Selected {
		out.Selected[id] = true
	}
	return out
}

// AddClip inserts a clip after repairing any invariant violations.
func (s *State) AddClip(c Clip) {
	c.clamp(s.Duration)
	s.Clips = append(s.Clips, c)
}

// RemoveClips deletes every clip whose id is listed and drops the ids
// from the selection. It returns the number of clips removed.
func (s *State) RemoveClips(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.Clips[:0]
	removed := 0
	for _, c := range s.Clips {
		if drop[c.ID] {
			removed++
			delete(s.Selected, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	s.Clips = kept
	return removed
}

// Clip returns a pointer to the clip with the given id, or nil.
func (s *State) Clip(id string) *Clip {
	for i := range s.Clips {
		if s.Clips[i].ID == id {
			return &s.Clips[i]
		}
	}
	return nil
}

// QueryAt returns the clip on the given track whose span contains t.
// By the no-overlap invariant at most one clip can match.
func (s *State) QueryAt(track TrackType, t float64) *Clip {
	for i := range s.Clips {
		if s.Clips[i].Track == track && s.Clips[i].Contains(t) {
			return &s.Clips[i]
		}
	}
	return nil
}

// SplitClip cuts the clip at atTime into two clips whose spans
// partition the original exactly. Media offsets are recomputed at the
// cut and selection is cleared on both halves. It is a no-op unless
// atTime is strictly inside the clip's span.
func (s *State) SplitClip(id string, atTime float64) (leftID, rightID string, ok bool) {
	c := s.Clip(id)
	if c == nil {
		return "", "", false
	}
	if atTime <= c.StartTime || atTime >= c.End() {
		return "", "", false
	}

	mediaCut := c.MediaAt(atTime)

	left := cloneClip(*c)
	left.Duration = atTime - c.StartTime
	left.MediaEnd = mediaCut
	left.Selected = false

	right := cloneClip(*c)
	right.ID = NewClip(c.Track, 0, 0).ID
	right.StartTime = atTime
	right.Duration = c.End() - atTime
	right.MediaStart = mediaCut
	right.Selected = false

	delete(s.Selected, c.ID)
	*c = left
	s.Clips = append(s.Clips, right)
	return left.ID, right.ID, true
}

// VideoContentEnd is the effective content duration: the latest end
// across all video clips, or 0 when there are none.
func (s *State) VideoContentEnd() float64 {
	end := 0.0
	for _, c := range s.Clips {
		if c.Track == TrackVideo && c.End() > end {
			end = c.End()
		}
	}
	return end
}

// ContentEnd is the latest end across all clips on every track.
func (s *State) ContentEnd() float64 {
	end := 0.0
	for _, c := range s.Clips {
		if c.End() > end {
			end = c.End()
		}
	}
	return end
}

// TrackClips returns the clips on one track ordered by start time.
func (s *State) TrackClips(track TrackType) []Clip {
	var out []Clip
	for _, c := range s.Clips {
		if c.Track == track {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// SelectedIDs returns the selected clip ids in stable order.
func (s *State) SelectedIDs() []string {
	ids := make([]string, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// neighborBounds returns the closest occupied boundaries around the
// clip on its own track: the latest end of any earlier clip and the
// earliest start of any later clip. Edits clamp against these so
// same-track clips never silently overlap.
func (s *State) neighborBounds(c *Clip) (lo, hi float64) {
	lo = 0
	hi = s.Duration
	if hi <= 0 {
		hi = c.End()
	}
	for i := range s.Clips {
		o := &s.Clips[i]
		if o.ID == c.ID || o.Track != c.Track {
			continue
		}
		if o.End() <= c.StartTime && o.End() > lo {
			lo = o.End()
		}
		if o.StartTime >= c.End() && o.StartTime < hi {
			hi = o.StartTime
		}
	}
	return lo, hi
}
