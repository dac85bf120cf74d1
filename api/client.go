// Package api talks to the analysis backend: fetching scene metadata
// for the reconciliation loader and persisting trims.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/storycut/logger"
	"github.com/user/storycut/timeline"
)

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the analysis backend client.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// NewClient builds a client against the given base URL. A nil doer
// falls back to a default client with a sane timeout.
func NewClient(baseURL string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    doer,
	}
}

// TrimRequest is the payload of a trim persistence request.
type TrimRequest struct {
	NewClipStartTime float64 `json:"new_clip_start_time"`
	NewClipDuration  float64 `json:"new_clip_duration"`
}

// SceneMetadata is the backend's scene description, also returned as
// confirmation of a saved trim.
type SceneMetadata struct {
	SceneID       string           `json:"sceneId"`
	Title         string           `json:"title,omitempty"`
	SceneStart    float64          `json:"sceneStart"`
	SceneDuration float64          `json:"sceneDuration"`
	SourceURL     string           `json:"sourceVideoUrl"`
	HasAudio      bool             `json:"hasAudio"`
	Segments      []SegmentWindow  `json:"segments,omitempty"`
}

// SegmentWindow is one mezzanine segment of a scene, keyed by absolute
// millisecond offsets into the scene's media.
type SegmentWindow struct {
	Source string `json:"source"`
	From   int64  `json:"from"`
	To     int64  `json:"to"`
}

// SaveTrim persists a scene trim. Failures are logged and returned to
// the caller; there is no automatic retry — the save must be
// explicitly re-invoked.
func (c *Client) SaveTrim(ctx context.Context, storyID, sceneID string, trim TrimRequest) (*SceneMetadata, error) {
	endpoint := fmt.Sprintf("%s/analysis/%s/scene/%s/trim",
		c.baseURL, url.PathEscape(storyID), url.PathEscape(sceneID))

	body, err := json.Marshal(trim)
	if err != nil {
		return nil, fmt.Errorf("encoding trim request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building trim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("trim save failed", "storyId", storyID, "sceneId", sceneID, "error", err)
		return nil, fmt.Errorf("saving trim: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		logger.Error("trim save rejected", "storyId", storyID, "sceneId", sceneID, "status", resp.StatusCode)
		return nil, fmt.Errorf("trim save returned %d", resp.StatusCode)
	}

	var meta SceneMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding trim response: %w", err)
	}
	logger.Info("trim saved", "storyId", storyID, "sceneId", sceneID,
		"start", trim.NewClipStartTime, "duration", trim.NewClipDuration)
	return &meta, nil
}

// SceneClips fetches one scene's metadata and converts it into
// timeline clips: a video clip (mezzanine when segment windows are
// present) plus an audio clip when the scene carries audio. It
// implements the reconciliation loader.
func (c *Client) SceneClips(ctx context.Context, storyID, sceneID string) ([]timeline.Clip, error) {
	endpoint := fmt.Sprintf("%s/analysis/%s/scene/%s",
		c.baseURL, url.PathEscape(storyID), url.PathEscape(sceneID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building scene request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching scene %s: %w", sceneID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("scene fetch returned %d", resp.StatusCode)
	}

	var meta SceneMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding scene %s: %w", sceneID, err)
	}
	if meta.SceneID == "" {
		meta.SceneID = sceneID
	}
	return ClipsFromScene(meta), nil
}

// ClipsFromScene converts scene metadata into timeline clips.
func ClipsFromScene(meta SceneMetadata) []timeline.Clip {
	duration := meta.SceneDuration
	if duration < timeline.MinClipDuration {
		duration = timeline.MinClipDuration
	}

	video := timeline.NewClip(timeline.TrackVideo, meta.SceneStart, duration)
	video.Label = meta.Title
	video.Source = meta.SourceURL
	video.Meta = timeline.Metadata{
		SceneID:            meta.SceneID,
		IsMezzanineSegment: len(meta.Segments) > 0,
	}
	for _, seg := range meta.Segments {
		video.Segments = append(video.Segments, timeline.Segment{
			Source: seg.Source,
			From:   seg.From,
			To:     seg.To,
		})
	}

	clips := []timeline.Clip{video}
	if meta.HasAudio {
		audio := timeline.NewClip(timeline.TrackAudio, meta.SceneStart, duration)
		audio.Label = meta.Title
		audio.Source = meta.SourceURL
		audio.Meta = timeline.Metadata{SceneID: meta.SceneID}
		clips = append(clips, audio)
	}
	return clips
}

// ComputeTrim derives the trim payload for a scene: the earliest start
// and the overall span across the scene's video clips. Returns false
// when the scene has no video clips on the timeline.
func ComputeTrim(s *timeline.State, sceneID string) (TrimRequest, bool) {
	earliest := 0.0
	latest := 0.0
	found := false
	for _, c := range s.Clips {
		if c.Track != timeline.TrackVideo || c.Meta.SceneID != sceneID {
			continue
		}
		if !found || c.StartTime < earliest {
			earliest = c.StartTime
		}
		if end := c.End(); !found || end > latest {
			latest = end
		}
		found = true
	}
	if !found {
		return TrimRequest{}, false
	}
	return TrimRequest{
		NewClipStartTime: earliest,
		NewClipDuration:  latest - earliest,
	}, true
}
