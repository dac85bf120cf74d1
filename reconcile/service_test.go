package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/storycut/story"
	"github.com/user/storycut/timeline"
)

// fakeLoader serves canned clips per scene and counts fetches.
type fakeLoader struct {
	scenes  map[string][]timeline.Clip
	fetches map[string]int
	err     error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		scenes:  make(map[string][]timeline.Clip),
		fetches: make(map[string]int),
	}
}

func (f *fakeLoader) SceneClips(_ context.Context, _, sceneID string) ([]timeline.Clip, error) {
	f.fetches[sceneID]++
	if f.err != nil {
		return nil, f.err
	}
	return f.scenes[sceneID], nil
}

func sceneClip(id, sceneID string, start, duration float64) timeline.Clip {
	return timeline.Clip{
		ID: id, Track: timeline.TrackVideo,
		StartTime: start, Duration: duration,
		MediaStart: 0, MediaEnd: duration,
		Source: "/media/scene_segments/" + sceneID + ".mp4",
		Meta:   timeline.Metadata{SceneID: sceneID},
	}
}

func newServiceForTest(s *timeline.State, l Loader) (*Service, *time.Time) {
	svc := NewService(s, l)
	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestSyncClearsSceneClipsAndPreservesOverlays(t *testing.T) {
	t.Parallel()

	s := timeline.NewState(60)
	s.AddClip(sceneClip("a", "s1", 0, 5))
	s.AddClip(timeline.Clip{
		ID: "b", Track: timeline.TrackText,
		StartTime: 1, Duration: 2, MediaStart: 0, MediaEnd: 2,
		Meta: timeline.Metadata{IsSubtitle: true},
	})
	s.AddClip(timeline.Clip{
		ID: "c", Track: timeline.TrackAudio,
		StartTime: 0, Duration: 5, MediaStart: 0, MediaEnd: 5,
		Source: "/voiceover/c.wav",
		Meta:   timeline.Metadata{AIGenerated: true},
	})

	loader := newFakeLoader()
	loader.scenes["s2"] = []timeline.Clip{sceneClip("d", "s2", 0, 8)}
	svc, _ := newServiceForTest(s, loader)

	err := svc.HandleSequence(context.Background(), story.SceneSequence{
		StoryID: "story-1", SceneIDs: []string{"s2"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if s.Clip("a") != nil {
		t.Error("scene-derived clip a should be cleared")
	}
	if s.Clip("b") == nil {
		t.Error("subtitle clip b must be preserved")
	}
	if s.Clip("c") == nil {
		t.Error("AI-generated clip c must be preserved")
	}
	if s.Clip("d") == nil {
		t.Error("clip for scene s2 should be loaded")
	}
	if svc.Status() != StatusSynced {
		t.Errorf("status = %s, want synced", svc.Status())
	}
	if got := svc.LoadedScenes(); len(got) != 1 || got[0] != "s2" {
		t.Errorf("loaded scenes = %v, want [s2]", got)
	}
}

func TestThrottleDropsRapidSequences(t *testing.T) {
	t.Parallel()

	s := timeline.NewState(60)
	loader := newFakeLoader()
	loader.scenes["s1"] = []timeline.Clip{sceneClip("a", "s1", 0, 5)}
	svc, now := newServiceForTest(s, loader)
	ctx := context.Background()

	seq := story.SceneSequence{StoryID: "story-1", SceneIDs: []string{"s1"}}
	if err := svc.HandleSequence(ctx, seq); err != nil {
		t.Fatal(err)
	}

	// 100ms later: inside the throttle window, dropped without a fetch.
	*now = now.Add(100 * time.Millisecond)
	if err := svc.HandleSequence(ctx, seq); !errors.Is(err, ErrSyncDropped) {
		t.Fatalf("err = %v, want ErrSyncDropped", err)
	}
	if loader.fetches["s1"] != 1 {
		t.Fatalf("fetches = %d, want 1 (second event throttled)", loader.fetches["s1"])
	}

	// Past the window the next event syncs again. The scene is already
	// loaded, so no re-fetch is needed either.
	*now = now.Add(syncThrottle)
	if err := svc.HandleSequence(ctx, seq); err != nil {
		t.Fatal(err)
	}
	if loader.fetches["s1"] != 2 {
		t.Fatalf("fetches = %d, want 2 (scene clips cleared and reloaded)", loader.fetches["s1"])
	}
}

func TestSceneRemovedBypassesThrottle(t *testing.T) {
	t.Parallel()

	s := timeline.NewState(60)
	loader := newFakeLoader()
	loader.scenes["s1"] = []timeline.Clip{sceneClip("a", "s1", 0, 5)}
	loader.scenes["s2"] = []timeline.Clip{sceneClip("b", "s2", 5, 5)}
	svc, now := newServiceForTest(s, loader)
	ctx := context.Background()

	seq := story.SceneSequence{StoryID: "story-1", SceneIDs: []string{"s1", "s2"}}
	if err := svc.HandleSequence(ctx, seq); err != nil {
		t.Fatal(err)
	}

	// Immediately after, well inside the throttle window.
	*now = now.Add(50 * time.Millisecond)
	if err := svc.HandleSceneRemoved(ctx, story.SceneRemoved{SceneID: "s1"}); err != nil {
		t.Fatal(err)
	}

	if s.Clip("a") == nil && s.Clip("b") == nil {
		t.Fatal("scene s2 content should survive the removal of s1")
	}
	found := false
	for _, c := range s.Clips {
		if c.Meta.SceneID == "s1" {
			found = true
		}
	}
	if found {
		t.Fatal("no clip for removed scene s1 should remain")
	}
	if got := svc.LoadedScenes(); len(got) != 1 || got[0] != "s2" {
		t.Fatalf("loaded scenes = %v, want [s2]", got)
	}
}

func TestSceneRemovedBeforeFirstSyncRemovesOnlyThatScene(t *testing.T) {
	t.Parallel()

	// Clips restored from persistence, no sequence synced yet.
	s := timeline.NewState(60)
	s.AddClip(sceneClip("a", "s1", 0, 5))
	s.AddClip(sceneClip("b", "s2", 5, 5))
	s.AddClip(timeline.Clip{
		ID: "vo", Track: timeline.TrackAudio,
		StartTime: 0, Duration: 10, MediaStart: 0, MediaEnd: 10,
		Source: "/voiceover/s1.wav",
		Meta:   timeline.Metadata{SceneID: "s1", AIGenerated: true},
	})

	loader := newFakeLoader()
	svc, _ := newServiceForTest(s, loader)
	ctx := context.Background()

	// A removal for a scene the timeline never heard of keeps everything.
	if err := svc.HandleSceneRemoved(ctx, story.SceneRemoved{SceneID: "s9"}); err != nil {
		t.Fatal(err)
	}
	if len(s.Clips) != 3 {
		t.Fatalf("clips = %d after removing unknown scene, want 3", len(s.Clips))
	}

	// A real removal clears only that scene's non-preserved clips.
	if err := svc.HandleSceneRemoved(ctx, story.SceneRemoved{SceneID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if s.Clip("a") != nil {
		t.Error("scene s1 clip should be removed")
	}
	if s.Clip("b") == nil {
		t.Error("scene s2 clip must survive")
	}
	if s.Clip("vo") == nil {
		t.Error("AI-generated clip must be preserved even for the removed scene")
	}
	if len(loader.fetches) != 0 {
		t.Fatalf("fetches = %v, want none before the first sequence sync", loader.fetches)
	}
}

func TestSyncErrorLeavesTimelineUntouched(t *testing.T) {
	t.Parallel()

	s := timeline.NewState(60)
	s.AddClip(sceneClip("a", "s1", 0, 5))
	before := s.Clone()

	loader := newFakeLoader()
	loader.err = errors.New("backend down")
	svc, _ := newServiceForTest(s, loader)

	err := svc.HandleSequence(context.Background(), story.SceneSequence{
		StoryID: "story-1", SceneIDs: []string{"s2"},
	})
	if err == nil || errors.Is(err, ErrSyncDropped) {
		t.Fatalf("err = %v, want a load failure", err)
	}
	if svc.Status() != StatusError {
		t.Errorf("status = %s, want error", svc.Status())
	}
	if len(s.Clips) != len(before.Clips) || s.Clip("a") == nil {
		t.Fatal("failed sync must not mutate the timeline")
	}
}

func TestSyncExtendsDurationToContentEnd(t *testing.T) {
	t.Parallel()

	s := timeline.NewState(5)
	loader := newFakeLoader()
	loader.scenes["s1"] = []timeline.Clip{sceneClip("a", "s1", 0, 5)}
	loader.scenes["s2"] = []timeline.Clip{sceneClip("b", "s2", 5, 7)}
	svc, _ := newServiceForTest(s, loader)

	err := svc.HandleSequence(context.Background(), story.SceneSequence{
		StoryID: "story-1", SceneIDs: []string{"s1", "s2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Duration != 12 {
		t.Fatalf("duration = %v, want 12 (extended to loaded content)", s.Duration)
	}
}

func TestPreserveClipClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		clip timeline.Clip
		want bool
	}{
		{"text track", timeline.Clip{Track: timeline.TrackText}, true},
		{"subtitle flag", timeline.Clip{Track: timeline.TrackVideo, Meta: timeline.Metadata{IsSubtitle: true}}, true},
		{"ai generated", timeline.Clip{Track: timeline.TrackAudio, Meta: timeline.Metadata{AIGenerated: true}}, true},
		{"scene id set", timeline.Clip{Track: timeline.TrackVideo, Meta: timeline.Metadata{SceneID: "s1"}}, false},
		{"mezzanine", timeline.Clip{Track: timeline.TrackVideo, Meta: timeline.Metadata{IsMezzanineSegment: true}}, false},
		{"scene segment path", timeline.Clip{Track: timeline.TrackVideo, Source: "/media/scene_segments/x.mp4"}, false},
		{"mezzanine path", timeline.Clip{Track: timeline.TrackVideo, Source: "/cache/mezzanine/x.mp4"}, false},
		{"user import", timeline.Clip{Track: timeline.TrackVideo, Source: "/home/user/intro.mp4"}, true},
		{"unknown origin", timeline.Clip{Track: timeline.TrackAudio}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preserveClip(tt.clip); got != tt.want {
				t.Fatalf("preserveClip = %v, want %v", got, tt.want)
			}
		})
	}
}
