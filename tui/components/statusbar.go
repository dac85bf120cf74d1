package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/storycut/pkg/timeutil"
	"github.com/user/storycut/tui/styles"
)

// StatusBarState holds the playback and sync state shown in the bar.
type StatusBarState struct {
	// Playing indicates playback is running
	Playing bool
	// Muted indicates the audio output is muted
	Muted bool
	// ExplicitMute indicates the user muted, as opposed to the
	// automatic audio-gap policy
	ExplicitMute bool
	// InGap indicates the playhead sits in a content gap
	InGap bool
	// TimePos is the playhead position in seconds
	TimePos float64
	// ContentEnd is the effective content duration in seconds
	ContentEnd float64
	// SyncStatus is the reconciliation service state
	SyncStatus string
	// Message is a transient result or error line
	Message string
}

// StatusBar renders the single-row status bar.
func StatusBar(state StatusBarState, width int) string {
	var playIcon string
	if state.Playing {
		playIcon = "▶"
	} else {
		playIcon = "⏸"
	}

	var muteIcon string
	if state.ExplicitMute {
		muteIcon = " muted"
	} else if state.Muted {
		muteIcon = " auto-muted"
	}

	var gapLabel string
	if state.InGap {
		gapLabel = "  [gap]"
	}

	left := fmt.Sprintf(" %s %s / %s%s%s",
		playIcon,
		timeutil.FormatTime(state.TimePos),
		timeutil.FormatTime(state.ContentEnd),
		muteIcon,
		gapLabel,
	)
	right := fmt.Sprintf("sync: %s ", state.SyncStatus)
	if state.Message != "" {
		right = state.Message + "  " + right
	}

	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}

	bar := styles.PrimaryText.Render(left) +
		lipgloss.NewStyle().Render(fmt.Sprintf("%*s", pad, "")) +
		styles.SecondaryText.Render(right)
	return bar
}
