// Package timeline holds the clip/track model for a story's edited
// timeline and the edit operations that mutate it.
package timeline

import "github.com/google/uuid"

// MinClipDuration is the shortest a clip may become through any edit.
const MinClipDuration = 0.1

// TrackType identifies the logical lane family a clip lives on.
type TrackType string

const (
	TrackVideo TrackType = "video"
	TrackAudio TrackType = "audio"
	TrackText  TrackType = "text"
)

// Lane identifies one of the six fixed lanes. Only the primary lane of
// each track type carries scene content; secondary lanes are reserved
// for overlays and never receive scene-owned clips.
type Lane int

const (
	LaneVideoPrimary Lane = iota
	LaneVideoOverlay
	LaneAudioPrimary
	LaneAudioOverlay
	LaneTextPrimary
	LaneTextOverlay
)

// Track returns the track type of the lane.
func (l Lane) Track() TrackType {
	switch l {
	case LaneVideoPrimary, LaneVideoOverlay:
		return TrackVideo
	case LaneAudioPrimary, LaneAudioOverlay:
		return TrackAudio
	default:
		return TrackText
	}
}

// Primary reports whether the lane is the scene-content lane of its track.
func (l Lane) Primary() bool {
	return l == LaneVideoPrimary || l == LaneAudioPrimary || l == LaneTextPrimary
}

// Metadata carries provenance flags used by the reconciliation
// classifier. It never influences layout.
type Metadata struct {
	SceneID            string `json:"sceneId,omitempty"`
	IsMezzanineSegment bool   `json:"isMezzanineSegment,omitempty"`
	AIGenerated        bool   `json:"aiGenerated,omitempty"`
	IsSubtitle         bool   `json:"isSubtitle,omitempty"`
}

// Segment is one underlying media file backing part of a mezzanine
// clip. From and To are absolute media offsets in milliseconds.
type Segment struct {
	Source string  `json:"source"`
	From   int64   `json:"from"`
	To     int64   `json:"to"`
}

// Clip is a time-bounded reference into underlying media placed on a
// track. StartTime and Duration are scene-relative seconds; MediaStart
// and MediaEnd are offsets into the backing media.
type Clip struct {
	ID         string    `json:"id"`
	Track      TrackType `json:"trackType"`
	StartTime  float64   `json:"startTime"`
	Duration   float64   `json:"duration"`
	MediaStart float64   `json:"mediaStart"`
	MediaEnd   float64   `json:"mediaEnd"`
	Selected   bool      `json:"selected"`
	Label      string    `json:"label,omitempty"`
	Source     string    `json:"source,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
	Meta       Metadata  `json:"metadata"`
}

// NewClip creates a clip with a fresh id on the given track.
func NewClip(track TrackType, start, duration float64) Clip {
	return Clip{
		ID:         uuid.NewString(),
		Track:      track,
		StartTime:  start,
		Duration:   duration,
		MediaStart: 0,
		MediaEnd:   duration,
	}
}

// End returns the exclusive end of the clip's span.
func (c Clip) End() float64 {
	return c.StartTime + c.Duration
}

// Contains reports whether t falls inside [StartTime, StartTime+Duration).
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTime && t < c.End()
}

// mediaRate is how many media seconds pass per visible second. Clips
// are played at unit rate unless the media span says otherwise.
func (c Clip) mediaRate() float64 {
	if c.Duration <= 0 {
		return 1
	}
	span := c.MediaEnd - c.MediaStart
	if span <= 0 {
		return 1
	}
	return span / c.Duration
}

// MediaAt maps a scene-relative position inside the clip to a media
// offset in seconds.
func (c Clip) MediaAt(t float64) float64 {
	return c.MediaStart + (t-c.StartTime)*c.mediaRate()
}

// clamp repairs invariant violations in place. Editing code clamps
// before mutation; this is the backstop for values arriving from
// persistence or remote payloads.
func (c *Clip) clamp(sceneDuration float64) {
	if c.StartTime < 0 {
		c.StartTime = 0
	}
	if c.Duration < MinClipDuration {
		c.Duration = MinClipDuration
	}
	if sceneDuration > 0 && c.End() > sceneDuration {
		if c.StartTime > sceneDuration-MinClipDuration {
			c.StartTime = sceneDuration - MinClipDuration
		}
		c.Duration = sceneDuration - c.StartTime
	}
	if c.MediaEnd < c.MediaStart {
		c.MediaEnd = c.MediaStart + c.Duration
	}
}

// cloneClip deep-copies a clip, including its segment list.
func cloneClip(c Clip) Clip {
	out := c
	if len(c.Segments) > 0 {
		out.Segments = make([]Segment, len(c.Segments))
		copy(out.Segments, c.Segments)
	}
	return out
}
