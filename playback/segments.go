package playback

import "github.com/user/storycut/timeline"

const (
	// preloadMax bounds the preloaded-source cache; the oldest entry
	// is evicted first when a third would be added.
	preloadMax = 2
	// preloadWindow is how close (seconds) the playhead must be to a
	// segment boundary before the next source is fetched.
	preloadWindow = 2.0
)

// sourceAt returns the backing source and in-source offset for a
// position inside the clip. Mezzanine clips pick the segment whose
// absolute millisecond window contains the media position; plain clips
// map straight onto their single source.
func sourceAt(c *timeline.Clip, pos float64) (source string, offset float64, ok bool) {
	media := c.MediaAt(pos)
	if len(c.Segments) == 0 {
		if c.Source == "" {
			return "", 0, false
		}
		return c.Source, media, true
	}
	mediaMs := media * 1000
	for _, seg := range c.Segments {
		if mediaMs >= float64(seg.From) && mediaMs < float64(seg.To) {
			return seg.Source, (mediaMs - float64(seg.From)) / 1000, true
		}
	}
	return "", 0, false
}

// nextSegmentSource returns the source backing the clip just after the
// active segment, plus the timeline position of the boundary between
// them.
func nextSegmentSource(c *timeline.Clip, pos float64) (source string, boundary float64, ok bool) {
	if len(c.Segments) < 2 {
		return "", 0, false
	}
	mediaMs := c.MediaAt(pos) * 1000
	for i, seg := range c.Segments {
		if mediaMs >= float64(seg.From) && mediaMs < float64(seg.To) {
			if i+1 >= len(c.Segments) {
				return "", 0, false
			}
			next := c.Segments[i+1]
			boundary = timeAtMedia(c, float64(seg.To)/1000)
			return next.Source, boundary, true
		}
	}
	return "", 0, false
}

// timeAtMedia inverts Clip.MediaAt: the timeline position at which the
// clip reaches the given media offset.
func timeAtMedia(c *timeline.Clip, media float64) float64 {
	span := c.MediaEnd - c.MediaStart
	if span <= 0 || c.Duration <= 0 {
		return c.StartTime
	}
	rate := span / c.Duration
	return c.StartTime + (media-c.MediaStart)/rate
}

// preloadCache is a small FIFO of resolved sources awaiting hand-off.
type preloadCache struct {
	max     int
	order   []string
	entries map[string]string
}

func newPreloadCache(max int) *preloadCache {
	return &preloadCache{max: max, entries: make(map[string]string)}
}

func (p *preloadCache) has(source string) bool {
	_, ok := p.entries[source]
	return ok
}

// add stores a resolved source, evicting the oldest entry when full.
func (p *preloadCache) add(source, resolved string) {
	if _, ok := p.entries[source]; ok {
		p.entries[source] = resolved
		return
	}
	for len(p.order) >= p.max {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.entries, oldest)
	}
	p.order = append(p.order, source)
	p.entries[source] = resolved
}

// take removes and returns the resolved path for a source, if cached.
func (p *preloadCache) take(source string) (string, bool) {
	resolved, ok := p.entries[source]
	if !ok {
		return "", false
	}
	delete(p.entries, source)
	for i, s := range p.order {
		if s == source {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return resolved, true
}

func (p *preloadCache) clear() {
	p.order = nil
	p.entries = make(map[string]string)
}

func (p *preloadCache) len() int {
	return len(p.order)
}
