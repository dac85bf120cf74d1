package timeline

// Editor applies user-visible edits to a timeline state. Every edit
// pushes the pre-mutation state to the history manager, so undo
// restores exactly what the user saw before the edit. Drag gestures
// are bracketed with Begin/End so the whole gesture lands in history
// as a single entry; per-drag exclusivity means a second gesture
// cannot start while one is in flight.
type Editor struct {
	state         *State
	history       *History
	snapThreshold float64
	gesture       bool
	onEdit        func()
}

// NewEditor wires an editor to a state and its history manager.
func NewEditor(state *State, history *History, snapThreshold float64) *Editor {
	if snapThreshold <= 0 {
		snapThreshold = DefaultSnapThreshold
	}
	return &Editor{state: state, history: history, snapThreshold: snapThreshold}
}

// SetOnEdit registers a callback invoked after each committed edit.
// The autosaver hangs off this.
func (e *Editor) SetOnEdit(fn func()) {
	e.onEdit = fn
}

// State returns the timeline state the editor mutates.
func (e *Editor) State() *State {
	return e.state
}

// Begin starts a drag gesture: the pre-gesture state is pushed to
// history once and subsequent edit calls mutate without new entries.
// Returns false if a gesture is already in flight.
func (e *Editor) Begin() bool {
	if e.gesture {
		return false
	}
	e.history.Push(e.state)
	e.gesture = true
	return true
}

// Dragging reports whether a gesture is in flight.
func (e *Editor) Dragging() bool {
	return e.gesture
}

// End finalizes the current gesture.
func (e *Editor) End() {
	if !e.gesture {
		return
	}
	e.gesture = false
	e.notify()
}

func (e *Editor) push() {
	if !e.gesture {
		e.history.Push(e.state)
	}
}

func (e *Editor) notify() {
	if !e.gesture && e.onEdit != nil {
		e.onEdit()
	}
}

// TrimStartTo moves the clip's left edge to newStart, adjusting the
// media start proportionally so the visible span keeps playing the
// same material. The edge clamps against the neighboring clip, the
// scene start, and the minimum duration.
func (e *Editor) TrimStartTo(id string, newStart float64) bool {
	c := e.state.Clip(id)
	if c == nil {
		return false
	}
	lo, _ := e.state.neighborBounds(c)
	if newStart < lo {
		newStart = lo
	}
	if max := c.End() - MinClipDuration; newStart > max {
		newStart = max
	}
	if newStart == c.StartTime {
		return false
	}

	e.push()
	d := newStart - c.StartTime
	c.MediaStart += d * c.mediaRate()
	c.StartTime = newStart
	c.Duration -= d
	c.clamp(e.state.Duration)
	e.notify()
	return true
}

// TrimEndTo moves the clip's right edge to newEnd, adjusting the media
// end proportionally. The edge clamps against the neighboring clip,
// the scene end, and the minimum duration.
func (e *Editor) TrimEndTo(id string, newEnd float64) bool {
	c := e.state.Clip(id)
	if c == nil {
		return false
	}
	_, hi := e.state.neighborBounds(c)
	if newEnd > hi {
		newEnd = hi
	}
	if min := c.StartTime + MinClipDuration; newEnd < min {
		newEnd = min
	}
	if newEnd == c.End() {
		return false
	}

	e.push()
	d := newEnd - c.End()
	c.MediaEnd += d * c.mediaRate()
	c.Duration = newEnd - c.StartTime
	c.clamp(e.state.Duration)
	e.notify()
	return true
}

// Move relocates the clip's start by delta, clamps it into the scene,
// passes it through magnetic snapping, and finally clamps against the
// clip's same-track neighbors so the move cannot overlap them.
func (e *Editor) Move(id string, delta float64) bool {
	c := e.state.Clip(id)
	if c == nil {
		return false
	}

	proposed := c.StartTime + delta
	if proposed < 0 {
		proposed = 0
	}
	if max := e.state.Duration - c.Duration; e.state.Duration > 0 && proposed > max {
		proposed = max
	}
	proposed = Snap(e.state, c.ID, proposed, e.snapThreshold)

	lo, hi := e.state.neighborBounds(c)
	if proposed < lo {
		proposed = lo
	}
	if proposed+c.Duration > hi {
		proposed = hi - c.Duration
	}
	if proposed == c.StartTime {
		return false
	}

	e.push()
	c.StartTime = proposed
	c.clamp(e.state.Duration)
	e.notify()
	return true
}

// Split cuts the clip at atTime. A no-op (with no history entry) when
// atTime is not strictly inside the clip.
func (e *Editor) Split(id string, atTime float64) bool {
	c := e.state.Clip(id)
	if c == nil || atTime <= c.StartTime || atTime >= c.End() {
		return false
	}
	e.push()
	_, _, ok := e.state.SplitClip(id, atTime)
	if ok {
		e.notify()
	}
	return ok
}

// DeleteSelected removes every selected clip. An empty selection is a
// no-op and leaves no history entry.
func (e *Editor) DeleteSelected() int {
	ids := e.state.SelectedIDs()
	if len(ids) == 0 {
		return 0
	}
	e.push()
	n := e.state.RemoveClips(ids...)
	e.notify()
	return n
}

// Undo restores the most recent history entry into the live state.
func (e *Editor) Undo() bool {
	restored, ok := e.history.Pop()
	if !ok {
		return false
	}
	*e.state = *restored
	e.notify()
	return true
}
