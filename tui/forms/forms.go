// Package forms provides huh-based form components.
package forms

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// NewConfirmTrimForm creates a confirm form asking whether to persist
// a scene trim to the backend. The result pointer is bound to the
// confirm field value.
func NewConfirmTrimForm(sceneID string, start, duration float64, save *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save trim?").
				Description(fmt.Sprintf("Scene %s: start %.2fs, duration %.2fs. Persist to the backend?", sceneID, start, duration)).
				Affirmative("Yes, save").
				Negative("No, keep local").
				Value(save),
		),
	).WithTheme(Theme())
}

// NewVideoPathForm creates an input form asking for the edited video
// file when it was not given on the command line.
func NewVideoPathForm(path *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Video file").
				Description("Path to the story's edited video").
				Placeholder("/path/to/video.mp4").
				Value(path),
		),
	).WithTheme(Theme())
}
