package reconcile

import (
	"strings"

	"github.com/user/storycut/timeline"
)

// preserveClip decides whether a timeline item survives a sync.
// Text and subtitle content and anything AI-generated is always kept;
// scene-derived video/audio is cleared and reloaded; everything else
// is kept too, failing safe toward preservation.
func preserveClip(c timeline.Clip) bool {
	if c.Track == timeline.TrackText || c.Meta.IsSubtitle || c.Meta.AIGenerated {
		return true
	}
	if sceneDerived(c) {
		return false
	}
	return true
}

// sceneDerived reports whether a video/audio item came out of the
// story graph's scenes rather than being user-imported.
func sceneDerived(c timeline.Clip) bool {
	if c.Meta.SceneID != "" || c.Meta.IsMezzanineSegment {
		return true
	}
	return sceneOwnedSource(c.Source)
}

// sceneOwnedSource recognizes media paths produced by the scene
// segmentation pipeline.
func sceneOwnedSource(source string) bool {
	if source == "" {
		return false
	}
	return strings.Contains(source, "/scene_segments/") ||
		strings.Contains(source, "/mezzanine/") ||
		strings.Contains(source, "/segments/scene_")
}
