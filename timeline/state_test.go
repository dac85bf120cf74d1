package timeline

import "testing"

func makeClip(id string, track TrackType, start, duration float64) Clip {
	return Clip{
		ID:         id,
		Track:      track,
		StartTime:  start,
		Duration:   duration,
		MediaStart: 0,
		MediaEnd:   duration,
	}
}

func TestQueryAtReturnsContainingClip(t *testing.T) {
	t.Parallel()

	s := NewState(20)
	s.AddClip(makeClip("a", TrackVideo, 0, 5))
	s.AddClip(makeClip("b", TrackVideo, 7, 3))
	s.AddClip(makeClip("c", TrackAudio, 0, 10))

	tests := []struct {
		name  string
		track TrackType
		at    float64
		want  string
	}{
		{"inside first clip", TrackVideo, 2, "a"},
		{"start is inclusive", TrackVideo, 0, "a"},
		{"end is exclusive", TrackVideo, 5, ""},
		{"inside gap", TrackVideo, 6, ""},
		{"inside second clip", TrackVideo, 8, "b"},
		{"other track", TrackAudio, 8, "c"},
		{"beyond everything", TrackVideo, 15, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.QueryAt(tt.track, tt.at)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("QueryAt(%v, %v) = %s, want nil", tt.track, tt.at, got.ID)
				}
				return
			}
			if got == nil || got.ID != tt.want {
				t.Fatalf("QueryAt(%v, %v) = %v, want %s", tt.track, tt.at, got, tt.want)
			}
		})
	}
}

func TestSplitClipPartitionsSpanExactly(t *testing.T) {
	t.Parallel()

	s := NewState(20)
	c := makeClip("a", TrackVideo, 2, 8)
	c.MediaStart = 10
	c.MediaEnd = 18
	s.AddClip(c)

	leftID, rightID, ok := s.SplitClip("a", 5)
	if !ok {
		t.Fatal("SplitClip returned ok=false")
	}

	left := s.Clip(leftID)
	right := s.Clip(rightID)
	if left == nil || right == nil {
		t.Fatal("split halves missing from state")
	}

	if left.StartTime != 2 || left.Duration != 3 {
		t.Errorf("left span = [%v, %v), want [2, 5)", left.StartTime, left.End())
	}
	if right.StartTime != 5 || right.Duration != 5 {
		t.Errorf("right span = [%v, %v), want [5, 10)", right.StartTime, right.End())
	}
	if left.End() != right.StartTime {
		t.Errorf("halves do not partition: left end %v, right start %v", left.End(), right.StartTime)
	}
	if left.MediaEnd != 13 || right.MediaStart != 13 {
		t.Errorf("media cut = %v/%v, want 13/13", left.MediaEnd, right.MediaStart)
	}
	if left.Selected || right.Selected {
		t.Error("selection should be cleared on both halves")
	}
}

func TestSplitClipRejectsEdges(t *testing.T) {
	t.Parallel()

	s := NewState(20)
	s.AddClip(makeClip("a", TrackVideo, 2, 8))

	for _, at := range []float64{2, 10, 1, 12} {
		if _, _, ok := s.SplitClip("a", at); ok {
			t.Errorf("SplitClip at %v should be a no-op", at)
		}
	}
	if len(s.Clips) != 1 {
		t.Fatalf("clip count = %d after rejected splits, want 1", len(s.Clips))
	}
}

func TestRemoveClipsDropsSelection(t *testing.T) {
	t.Parallel()

	s := NewState(20)
	s.AddClip(makeClip("a", TrackVideo, 0, 5))
	s.AddClip(makeClip("b", TrackVideo, 7, 3))
	s.Selected["a"] = true

	if n := s.RemoveClips("a"); n != 1 {
		t.Fatalf("RemoveClips = %d, want 1", n)
	}
	if s.Clip("a") != nil {
		t.Error("clip a still present")
	}
	if s.Selected["a"] {
		t.Error("selection still holds removed id")
	}
}

func TestAddClipRepairsInvariants(t *testing.T) {
	t.Parallel()

	s := NewState(10)
	s.AddClip(Clip{ID: "bad", Track: TrackVideo, StartTime: -3, Duration: 0.01, MediaStart: 5, MediaEnd: 1})

	c := s.Clip("bad")
	if c.StartTime < 0 {
		t.Errorf("StartTime = %v, want >= 0", c.StartTime)
	}
	if c.Duration < MinClipDuration {
		t.Errorf("Duration = %v, want >= %v", c.Duration, MinClipDuration)
	}
	if c.MediaEnd < c.MediaStart {
		t.Errorf("MediaEnd %v < MediaStart %v", c.MediaEnd, c.MediaStart)
	}
}

func TestVideoContentEnd(t *testing.T) {
	t.Parallel()

	s := NewState(30)
	if got := s.VideoContentEnd(); got != 0 {
		t.Fatalf("empty timeline content end = %v, want 0", got)
	}
	s.AddClip(makeClip("a", TrackVideo, 0, 5))
	s.AddClip(makeClip("b", TrackVideo, 7, 3))
	s.AddClip(makeClip("c", TrackAudio, 0, 25))
	if got := s.VideoContentEnd(); got != 10 {
		t.Fatalf("content end = %v, want 10 (audio must not count)", got)
	}
}
