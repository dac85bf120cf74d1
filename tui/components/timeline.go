// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/storycut/pkg/timeutil"
	"github.com/user/storycut/timeline"
	"github.com/user/storycut/tui/styles"
)

// Lane row offsets measured from the top border of the tracks box.
// Hit-testing in the interaction adapter relies on these.
const (
	RowVideo = 1
	RowAudio = 2
	RowText  = 3
	RowRuler = 4
	// BoxHeight is the total rendered height including borders.
	BoxHeight = 6
)

// laneLabelWidth is the " V1 " style prefix before each lane bar.
const laneLabelWidth = 4

// Layout maps between terminal columns and timeline seconds. The view
// and the hit-testing code share one geometry.
type Layout struct {
	// BarX is the first column of the bar area.
	BarX int
	// BarWidth is the number of columns the timeline span occupies.
	BarWidth int
	// Duration is the timeline span in seconds.
	Duration float64
}

// NewLayout computes the lane geometry for a terminal width.
func NewLayout(width int, duration float64) Layout {
	barWidth := width - 2 - laneLabelWidth - 1
	if barWidth < 10 {
		barWidth = 10
	}
	return Layout{BarX: 1 + laneLabelWidth, BarWidth: barWidth, Duration: duration}
}

// TimeAt converts a terminal column to a timeline position.
func (l Layout) TimeAt(x int) float64 {
	if l.BarWidth <= 0 || l.Duration <= 0 {
		return 0
	}
	t := float64(x-l.BarX) / float64(l.BarWidth) * l.Duration
	if t < 0 {
		t = 0
	}
	if t > l.Duration {
		t = l.Duration
	}
	return t
}

// ColAt converts a timeline position to a column within the bar.
func (l Layout) ColAt(t float64) int {
	if l.Duration <= 0 {
		return 0
	}
	col := int(math.Round(float64(l.BarWidth-1) * t / l.Duration))
	if col < 0 {
		col = 0
	}
	if col >= l.BarWidth {
		col = l.BarWidth - 1
	}
	return col
}

// Tracks renders the multi-lane timeline: one row per track family,
// clip blocks over meaningful gaps, and a ruler row carrying the
// playhead. Total output height is BoxHeight lines.
func Tracks(s *timeline.State, layout Layout, inGap bool, width int) string {
	if width < 20 {
		return ""
	}
	boxInner := width - 2
	playheadCol := layout.ColAt(s.Playhead)

	lanes := []struct {
		label string
		track timeline.TrackType
		fill  rune
		color lipgloss.Color
	}{
		{" V1 ", timeline.TrackVideo, '█', styles.Cyan},
		{" A1 ", timeline.TrackAudio, '▓', styles.Amber},
		{" T1 ", timeline.TrackText, '░', styles.Green},
	}

	labelStyle := lipgloss.NewStyle().Foreground(styles.Lavender)
	emptyStyle := lipgloss.NewStyle().Foreground(styles.Purple)
	playheadStyle := lipgloss.NewStyle().Foreground(styles.Pink).Bold(true)

	var rows []string
	for _, lane := range lanes {
		rows = append(rows, labelStyle.Render(lane.label)+
			laneBar(s, lane.track, layout, lane.fill, lane.color, playheadCol))
	}

	// Ruler row: playhead position plus current/total time.
	var ruler strings.Builder
	ruler.WriteString(strings.Repeat(" ", laneLabelWidth))
	for i := 0; i < layout.BarWidth; i++ {
		if i == playheadCol {
			ruler.WriteString(playheadStyle.Render("▲"))
		} else {
			ruler.WriteString(emptyStyle.Render("·"))
		}
	}
	timeStr := fmt.Sprintf(" %s / %s", timeutil.FormatTime(s.Playhead), timeutil.FormatTime(layout.Duration))
	if inGap {
		timeStr += "  no clip"
	}
	rows = append(rows, styles.SecondaryText.Render(timeStr))

	// Bordered box with a tab-style header.
	headerStyle := lipgloss.NewStyle().Foreground(styles.Pink).Bold(true)
	borderStyle := lipgloss.NewStyle().Foreground(styles.Purple)

	headerText := headerStyle.Render(" Timeline ")
	fillWidth := boxInner - lipgloss.Width(headerText) - 1
	if fillWidth < 0 {
		fillWidth = 0
	}
	topLine := borderStyle.Render("╭─") + headerText + borderStyle.Render(strings.Repeat("─", fillWidth)+"╮")

	wrapLine := func(content string) string {
		pad := boxInner - lipgloss.Width(content)
		if pad < 0 {
			pad = 0
		}
		return borderStyle.Render("│") + content + strings.Repeat(" ", pad) + borderStyle.Render("│")
	}

	bottomLine := borderStyle.Render("╰" + strings.Repeat("─", boxInner) + "╯")

	out := topLine
	for _, r := range rows {
		out += "\n" + wrapLine(r)
	}
	out += "\n" + bottomLine
	return out
}

// laneBar renders one lane: clip cells, edge markers, and gap cells.
func laneBar(s *timeline.State, track timeline.TrackType, layout Layout, fill rune, color lipgloss.Color, playheadCol int) string {
	clipStyle := lipgloss.NewStyle().Foreground(color)
	selStyle := styles.Highlight
	gapStyle := lipgloss.NewStyle().Foreground(styles.Purple)
	playheadStyle := lipgloss.NewStyle().Foreground(styles.Pink).Bold(true)

	type cell struct {
		ch       rune
		selected bool
		clip     bool
	}
	cells := make([]cell, layout.BarWidth)
	for i := range cells {
		cells[i] = cell{ch: '─'}
	}

	for _, c := range s.TrackClips(track) {
		lo := layout.ColAt(c.StartTime)
		hi := layout.ColAt(c.End())
		for i := lo; i <= hi && i < len(cells); i++ {
			ch := fill
			if i == lo {
				ch = '▐'
			} else if i == hi {
				ch = '▌'
			}
			cells[i] = cell{ch: ch, selected: c.Selected, clip: true}
		}
	}

	var b strings.Builder
	for i, c := range cells {
		str := string(c.ch)
		switch {
		case i == playheadCol && !c.clip:
			b.WriteString(playheadStyle.Render("│"))
		case c.selected:
			b.WriteString(selStyle.Render(str))
		case c.clip:
			b.WriteString(clipStyle.Render(str))
		default:
			b.WriteString(gapStyle.Render(str))
		}
	}
	return b.String()
}
