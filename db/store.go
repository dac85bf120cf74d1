package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/storycut/logger"
	"github.com/user/storycut/timeline"
)

// SaveTimeline replaces the persisted timeline for a story with the
// current state. Clips and the playhead row are written in one
// transaction.
func SaveTimeline(db *sql.DB, storyID string, s *timeline.State) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM timeline_clips WHERE story_id = ?`, storyID); err != nil {
		return fmt.Errorf("clearing clips: %w", err)
	}

	for i, c := range s.Clips {
		segments, err := json.Marshal(c.Segments)
		if err != nil {
			return fmt.Errorf("encoding segments for clip %s: %w", c.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO timeline_clips
				(id, story_id, track, position, start_time, duration,
				 media_start, media_end, label, source,
				 scene_id, mezzanine, ai_generated, subtitle, segments)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, storyID, string(c.Track), i, c.StartTime, c.Duration,
			c.MediaStart, c.MediaEnd, c.Label, c.Source,
			c.Meta.SceneID, boolInt(c.Meta.IsMezzanineSegment),
			boolInt(c.Meta.AIGenerated), boolInt(c.Meta.IsSubtitle), string(segments),
		)
		if err != nil {
			return fmt.Errorf("inserting clip %s: %w", c.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO timelines (story_id, playhead, duration, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(story_id) DO UPDATE SET
			playhead = excluded.playhead,
			duration = excluded.duration,
			updated_at = CURRENT_TIMESTAMP`,
		storyID, s.Playhead, s.Duration,
	)
	if err != nil {
		return fmt.Errorf("saving timeline row: %w", err)
	}

	return tx.Commit()
}

// LoadTimeline restores the persisted timeline for a story. Corrupt
// clip rows are dropped and defaults substituted; a load never fails
// on bad content, only on database errors.
func LoadTimeline(db *sql.DB, storyID string) (*timeline.State, error) {
	s := timeline.NewState(0)

	row := db.QueryRow(`SELECT playhead, duration FROM timelines WHERE story_id = ?`, storyID)
	var playhead, duration sql.NullFloat64
	switch err := row.Scan(&playhead, &duration); err {
	case nil:
		if playhead.Valid && playhead.Float64 >= 0 {
			s.Playhead = playhead.Float64
		}
		if duration.Valid && duration.Float64 > 0 {
			s.Duration = duration.Float64
		}
	case sql.ErrNoRows:
		// First open for this story.
	default:
		return nil, fmt.Errorf("loading timeline row: %w", err)
	}

	rows, err := db.Query(`
		SELECT id, track, start_time, duration, media_start, media_end,
		       label, source, scene_id, mezzanine, ai_generated, subtitle, segments
		FROM timeline_clips
		WHERE story_id = ?
		ORDER BY position`, storyID)
	if err != nil {
		return nil, fmt.Errorf("loading clips: %w", err)
	}
	defer rows.Close()

	dropped := 0
	for rows.Next() {
		var (
			c           timeline.Clip
			track       string
			segmentsRaw string
			mezz, ai    int
			subtitle    int
		)
		err := rows.Scan(&c.ID, &track, &c.StartTime, &c.Duration,
			&c.MediaStart, &c.MediaEnd, &c.Label, &c.Source,
			&c.Meta.SceneID, &mezz, &ai, &subtitle, &segmentsRaw)
		if err != nil {
			dropped++
			continue
		}
		c.Track = timeline.TrackType(track)
		c.Meta.IsMezzanineSegment = mezz != 0
		c.Meta.AIGenerated = ai != 0
		c.Meta.IsSubtitle = subtitle != 0
		if err := json.Unmarshal([]byte(segmentsRaw), &c.Segments); err != nil {
			c.Segments = nil
		}

		if !validClip(&c) {
			dropped++
			continue
		}
		s.AddClip(c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading clips: %w", err)
	}
	if dropped > 0 {
		logger.Warn("dropped corrupt timeline clips on load", "storyId", storyID, "dropped", dropped)
	}

	if end := s.ContentEnd(); end > s.Duration {
		s.Duration = end
	}
	return s, nil
}

// validClip repairs what it can and rejects rows that make no sense as
// clips. Rejected rows are dropped rather than crashing the editor.
func validClip(c *timeline.Clip) bool {
	switch c.Track {
	case timeline.TrackVideo, timeline.TrackAudio, timeline.TrackText:
	default:
		return false
	}
	if c.Duration < timeline.MinClipDuration {
		return false
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.StartTime < 0 {
		c.StartTime = 0
	}
	if c.MediaEnd < c.MediaStart {
		c.MediaStart = 0
		c.MediaEnd = c.Duration
	}
	return true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
