package playback

import (
	"testing"

	"github.com/user/storycut/timeline"
)

func mezzClip(start, duration float64, segs ...timeline.Segment) *timeline.Clip {
	return &timeline.Clip{
		ID: "m", Track: timeline.TrackVideo,
		StartTime: start, Duration: duration,
		MediaStart: 0, MediaEnd: duration,
		Segments: segs,
		Meta:     timeline.Metadata{IsMezzanineSegment: true},
	}
}

func TestSourceAtMapsMillisecondWindows(t *testing.T) {
	t.Parallel()

	c := mezzClip(2, 10,
		timeline.Segment{Source: "/s1.mp4", From: 0, To: 4000},
		timeline.Segment{Source: "/s2.mp4", From: 4000, To: 10000},
	)

	tests := []struct {
		name       string
		pos        float64
		wantSource string
		wantOffset float64
		wantOK     bool
	}{
		{"first segment start", 2, "/s1.mp4", 0, true},
		{"inside first segment", 3.5, "/s1.mp4", 1.5, true},
		{"window upper bound is exclusive", 6, "/s2.mp4", 0, true},
		{"inside second segment", 9, "/s2.mp4", 3, true},
		{"past every window", 12.5, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, offset, ok := sourceAt(c, tt.pos)
			if ok != tt.wantOK || source != tt.wantSource || offset != tt.wantOffset {
				t.Fatalf("sourceAt(%v) = %q, %v, %v; want %q, %v, %v",
					tt.pos, source, offset, ok, tt.wantSource, tt.wantOffset, tt.wantOK)
			}
		})
	}
}

func TestSourceAtPlainClipUsesSingleSource(t *testing.T) {
	t.Parallel()

	c := &timeline.Clip{
		ID: "p", Track: timeline.TrackVideo,
		StartTime: 5, Duration: 4,
		MediaStart: 10, MediaEnd: 14,
		Source: "/plain.mp4",
	}

	source, offset, ok := sourceAt(c, 7)
	if !ok || source != "/plain.mp4" || offset != 12 {
		t.Fatalf("sourceAt = %q, %v, %v; want /plain.mp4, 12, true", source, offset, ok)
	}

	c.Source = ""
	if _, _, ok := sourceAt(c, 7); ok {
		t.Fatal("clip with no source and no segments should not resolve")
	}
}

func TestNextSegmentSourceReportsBoundary(t *testing.T) {
	t.Parallel()

	c := mezzClip(2, 10,
		timeline.Segment{Source: "/s1.mp4", From: 0, To: 4000},
		timeline.Segment{Source: "/s2.mp4", From: 4000, To: 10000},
	)

	next, boundary, ok := nextSegmentSource(c, 3)
	if !ok || next != "/s2.mp4" {
		t.Fatalf("next = %q, ok = %v; want /s2.mp4", next, ok)
	}
	// Media offset 4s inside a clip starting at 2 with unit rate.
	if boundary != 6 {
		t.Fatalf("boundary = %v, want 6", boundary)
	}

	// The last segment has no successor.
	if _, _, ok := nextSegmentSource(c, 9); ok {
		t.Fatal("last segment should have no next source")
	}

	// Single-source clips never hand off.
	single := mezzClip(0, 5, timeline.Segment{Source: "/only.mp4", From: 0, To: 5000})
	if _, _, ok := nextSegmentSource(single, 1); ok {
		t.Fatal("single segment should have no next source")
	}
}

func TestPreloadCacheEvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	p := newPreloadCache(preloadMax)
	p.add("/a", "ra")
	p.add("/b", "rb")
	p.add("/c", "rc")

	if p.len() != preloadMax {
		t.Fatalf("len = %d, want %d", p.len(), preloadMax)
	}
	if p.has("/a") {
		t.Fatal("oldest entry should have been evicted")
	}
	if !p.has("/b") || !p.has("/c") {
		t.Fatal("newer entries should survive eviction")
	}

	resolved, ok := p.take("/b")
	if !ok || resolved != "rb" {
		t.Fatalf("take = %q, %v; want rb, true", resolved, ok)
	}
	if p.has("/b") || p.len() != 1 {
		t.Fatal("take should remove the entry")
	}
	if _, ok := p.take("/b"); ok {
		t.Fatal("second take of the same source should miss")
	}
}
