package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/storycut/timeline"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadTimelineRoundtrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	s := timeline.NewState(30)
	s.Playhead = 4.5
	video := timeline.Clip{
		ID: "v1", Track: timeline.TrackVideo,
		StartTime: 0, Duration: 10, MediaStart: 2, MediaEnd: 12,
		Label:  "Opening",
		Source: "/media/mezzanine/s1.mp4",
		Segments: []timeline.Segment{
			{Source: "/media/mezzanine/s1-a.mp4", From: 0, To: 5000},
			{Source: "/media/mezzanine/s1-b.mp4", From: 5000, To: 10000},
		},
		Meta: timeline.Metadata{SceneID: "s1", IsMezzanineSegment: true},
	}
	s.AddClip(video)
	s.AddClip(timeline.Clip{
		ID: "t1", Track: timeline.TrackText,
		StartTime: 1, Duration: 3, MediaStart: 0, MediaEnd: 3,
		Label: "caption",
		Meta:  timeline.Metadata{IsSubtitle: true},
	})

	if err := SaveTimeline(db, "story-1", s); err != nil {
		t.Fatal(err)
	}

	got, err := LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Playhead != 4.5 || got.Duration != 30 {
		t.Errorf("playhead/duration = %v/%v, want 4.5/30", got.Playhead, got.Duration)
	}
	if len(got.Clips) != 2 {
		t.Fatalf("loaded %d clips, want 2", len(got.Clips))
	}

	v := got.Clip("v1")
	if v == nil {
		t.Fatal("video clip missing after load")
	}
	if v.MediaStart != 2 || v.MediaEnd != 12 || v.Label != "Opening" {
		t.Errorf("video clip = %+v", v)
	}
	if !v.Meta.IsMezzanineSegment || v.Meta.SceneID != "s1" {
		t.Errorf("video metadata = %+v", v.Meta)
	}
	if len(v.Segments) != 2 || v.Segments[1].Source != "/media/mezzanine/s1-b.mp4" {
		t.Errorf("segments = %+v", v.Segments)
	}

	sub := got.Clip("t1")
	if sub == nil || !sub.Meta.IsSubtitle {
		t.Errorf("subtitle clip = %+v", sub)
	}
}

func TestSaveReplacesPreviousClips(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	s := timeline.NewState(20)
	s.AddClip(timeline.Clip{
		ID: "old", Track: timeline.TrackVideo,
		StartTime: 0, Duration: 5, MediaStart: 0, MediaEnd: 5,
	})
	if err := SaveTimeline(db, "story-1", s); err != nil {
		t.Fatal(err)
	}

	s.RemoveClips("old")
	s.AddClip(timeline.Clip{
		ID: "new", Track: timeline.TrackVideo,
		StartTime: 2, Duration: 6, MediaStart: 0, MediaEnd: 6,
	})
	if err := SaveTimeline(db, "story-1", s); err != nil {
		t.Fatal(err)
	}

	got, err := LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clips) != 1 || got.Clip("new") == nil {
		t.Fatalf("clips after resave = %+v", got.Clips)
	}
}

func TestLoadDropsCorruptRows(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	s := timeline.NewState(20)
	s.AddClip(timeline.Clip{
		ID: "good", Track: timeline.TrackVideo,
		StartTime: 0, Duration: 5, MediaStart: 0, MediaEnd: 5,
	})
	if err := SaveTimeline(db, "story-1", s); err != nil {
		t.Fatal(err)
	}

	// Corrupt rows written by hand: an unknown track and a zero duration.
	_, err := db.Exec(`
		INSERT INTO timeline_clips
			(id, story_id, track, position, start_time, duration, media_start, media_end)
		VALUES
			('bad-track', 'story-1', 'hologram', 1, 0, 5, 0, 5),
			('bad-duration', 'story-1', 'video', 2, 0, 0, 0, 0)`)
	if err != nil {
		t.Fatal(err)
	}

	got, err := LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clips) != 1 || got.Clip("good") == nil {
		t.Fatalf("clips = %+v, want only the valid row", got.Clips)
	}
}

func TestLoadRepairsNegativeStartAndInvertedMedia(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	_, err := db.Exec(`
		INSERT INTO timeline_clips
			(id, story_id, track, position, start_time, duration, media_start, media_end)
		VALUES ('fixme', 'story-1', 'video', 0, -2, 5, 9, 3)`)
	if err != nil {
		t.Fatal(err)
	}

	got, err := LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	c := got.Clip("fixme")
	if c == nil {
		t.Fatal("repairable row should survive the load")
	}
	if c.StartTime != 0 {
		t.Errorf("StartTime = %v, want repaired to 0", c.StartTime)
	}
	if c.MediaEnd < c.MediaStart {
		t.Errorf("media span still inverted: [%v, %v]", c.MediaStart, c.MediaEnd)
	}
}

func TestLoadUnknownStoryReturnsEmptyState(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	got, err := LoadTimeline(db, "never-saved")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clips) != 0 || got.Playhead != 0 {
		t.Fatalf("state = %+v, want empty", got)
	}
}

func TestAutosaverDebouncesBurstsIntoOneSave(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	s := timeline.NewState(20)
	s.AddClip(timeline.Clip{
		ID: "a", Track: timeline.TrackVideo,
		StartTime: 0, Duration: 5, MediaStart: 0, MediaEnd: 5,
	})

	a := NewAutosaver(db, "story-1", func() *timeline.State { return s }, 30*time.Millisecond)
	defer a.Close()

	a.Notify()
	a.Notify()
	a.Notify()

	// Inside the debounce window nothing is written yet.
	got, err := LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clips) != 0 {
		t.Fatal("save fired before the debounce window elapsed")
	}

	time.Sleep(100 * time.Millisecond)
	got, err = LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clips) != 1 {
		t.Fatalf("clips = %d after debounce, want 1", len(got.Clips))
	}
}

func TestAutosaverFlushWritesPendingSave(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	s := timeline.NewState(20)
	s.AddClip(timeline.Clip{
		ID: "a", Track: timeline.TrackVideo,
		StartTime: 0, Duration: 5, MediaStart: 0, MediaEnd: 5,
	})

	a := NewAutosaver(db, "story-1", func() *timeline.State { return s }, time.Hour)
	a.Notify()
	a.Flush()
	a.Close()

	got, err := LoadTimeline(db, "story-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clips) != 1 {
		t.Fatal("flush should write the pending save immediately")
	}
}
