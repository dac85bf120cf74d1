package tui

import (
	"github.com/user/storycut/timeline"
	"github.com/user/storycut/tui/components"
)

// dragKind is the gesture a pointer-down begins.
type dragKind int

const (
	dragNone dragKind = iota
	dragMove
	dragTrimStart
	dragTrimEnd
	dragScrub
)

// dragState tracks one in-flight pointer gesture. Gestures begin on
// pointer-down, update on motion, and finalize on pointer-up; nothing
// here survives a restart.
type dragState struct {
	kind   dragKind
	clipID string
	// grabOffset keeps the pointer anchored where the clip was
	// grabbed, so a move doesn't jump to the pointer column.
	grabOffset float64
	// sceneID of the trimmed clip, for the post-gesture trim save.
	sceneID string
	moved   bool
}

func (d *dragState) active() bool {
	return d.kind != dragNone
}

func (d *dragState) reset() {
	*d = dragState{}
}

// rowTrack maps a row inside the tracks box to its lane.
func rowTrack(row int) (timeline.TrackType, bool) {
	switch row {
	case components.RowVideo:
		return timeline.TrackVideo, true
	case components.RowAudio:
		return timeline.TrackAudio, true
	case components.RowText:
		return timeline.TrackText, true
	default:
		return "", false
	}
}

// hitTest resolves a pointer position inside the tracks box to a drag
// target: a clip edge (trim), a clip body (move), the ruler (scrub),
// or nothing.
func hitTest(s *timeline.State, layout components.Layout, x, row int) (dragKind, *timeline.Clip) {
	if row == components.RowRuler {
		return dragScrub, nil
	}
	track, ok := rowTrack(row)
	if !ok {
		return dragNone, nil
	}
	if x < layout.BarX || x >= layout.BarX+layout.BarWidth {
		return dragNone, nil
	}

	t := layout.TimeAt(x)
	c := s.QueryAt(track, t)
	if c == nil {
		// The exclusive end column still belongs to the clip visually.
		if c = s.QueryAt(track, t-layout.Duration/float64(layout.BarWidth)); c == nil {
			return dragNone, nil
		}
	}

	col := x - layout.BarX
	startCol := layout.ColAt(c.StartTime)
	endCol := layout.ColAt(c.End())
	switch {
	case col <= startCol:
		return dragTrimStart, c
	case col >= endCol:
		return dragTrimEnd, c
	default:
		return dragMove, c
	}
}
