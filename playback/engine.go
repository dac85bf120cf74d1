// Package playback drives the real media player from the timeline
// model: once per time-update tick it decides what should be audible
// and visible, pauses across content gaps, and hands off between the
// media segments backing a mezzanine clip.
package playback

import (
	"context"
	"errors"
	"time"

	"github.com/user/storycut/logger"
	"github.com/user/storycut/timeline"
)

// Player is the subset of media player control the engine needs. The
// mpv IPC client implements it.
type Player interface {
	LoadFile(path string) error
	Seek(seconds float64) error
	SetPause(paused bool) error
	SetMute(muted bool) error
	Seekable() (bool, error)
}

// Resolver turns a clip's source reference into a loadable path or
// URL. Preloading resolves ahead of the playhead so a segment swap can
// happen without waiting on I/O.
type Resolver interface {
	Resolve(ctx context.Context, source string) (string, error)
}

// PassthroughResolver resolves sources to themselves.
type PassthroughResolver struct{}

func (PassthroughResolver) Resolve(_ context.Context, source string) (string, error) {
	return source, nil
}

// ErrUnplayable is reported when a clip's source cannot be loaded and
// no previously resolved source exists to fall back to.
var ErrUnplayable = errors.New("playback: source unplayable")

// seekableTimeout bounds how long a hand-off waits for the newly
// loaded source to accept seeks.
const seekableTimeout = 5 * time.Second

// maxLoadAttempts is how many times a failing source is retried before
// it is marked unplayable and ticks stop touching the player for it.
const maxLoadAttempts = 3

// Engine synchronizes the player with the timeline each tick.
type Engine struct {
	player   Player
	resolver Resolver
	state    *timeline.State

	playing      bool
	wasPlaying   bool
	inGap        bool
	explicitMute bool
	muted        bool

	currentSource string
	lastResolved  string
	unplayable    map[string]bool
	loadFailures  map[string]int
	preloads      *preloadCache

	onGap   func(inGap bool)
	started bool
}

// NewEngine wires the engine to a player, a source resolver, and the
// timeline state it reads every tick.
func NewEngine(player Player, resolver Resolver, state *timeline.State) *Engine {
	if resolver == nil {
		resolver = PassthroughResolver{}
	}
	return &Engine{
		player:       player,
		resolver:     resolver,
		state:        state,
		unplayable:   make(map[string]bool),
		loadFailures: make(map[string]int),
		preloads:     newPreloadCache(preloadMax),
	}
}

// SetOnGapChange registers the callback signalled when the playhead
// enters or leaves a content gap.
func (e *Engine) SetOnGapChange(fn func(inGap bool)) {
	e.onGap = fn
}

// Start resets the engine's volatile per-session state.
func (e *Engine) Start() {
	e.started = true
	e.playing = false
	e.wasPlaying = false
	e.inGap = false
	e.currentSource = ""
	e.lastResolved = ""
	e.unplayable = make(map[string]bool)
	e.loadFailures = make(map[string]int)
	e.preloads.clear()
}

// Close pauses playback and drops preloaded sources.
func (e *Engine) Close() {
	if !e.started {
		return
	}
	e.started = false
	_ = e.player.SetPause(true)
	e.preloads.clear()
}

// Playing reports whether the engine considers playback running.
func (e *Engine) Playing() bool {
	return e.playing
}

// InGap reports whether the playhead is currently in a content gap.
func (e *Engine) InGap() bool {
	return e.inGap
}

// Play starts playback unless the playhead sits in a gap.
func (e *Engine) Play() error {
	if e.inGap {
		e.wasPlaying = true
		return nil
	}
	if err := e.player.SetPause(false); err != nil {
		return err
	}
	e.playing = true
	return nil
}

// Pause stops playback.
func (e *Engine) Pause() error {
	if err := e.player.SetPause(true); err != nil {
		return err
	}
	e.playing = false
	e.wasPlaying = false
	return nil
}

// SetExplicitMute records a user mute. While set, the automatic
// audio-gap policy is suppressed: explicit mute always wins until the
// user unmutes.
func (e *Engine) SetExplicitMute(muted bool) error {
	e.explicitMute = muted
	return e.applyMute(muted || e.autoMuteWanted())
}

// ExplicitMute reports whether the user has muted.
func (e *Engine) ExplicitMute() bool {
	return e.explicitMute
}

// Muted reports the current state of the audio output.
func (e *Engine) Muted() bool {
	return e.muted
}

func (e *Engine) autoMuteWanted() bool {
	return e.state.QueryAt(timeline.TrackAudio, e.state.Playhead) == nil
}

func (e *Engine) applyMute(muted bool) error {
	if muted == e.muted {
		return nil
	}
	if err := e.player.SetMute(muted); err != nil {
		return err
	}
	e.muted = muted
	return nil
}

// Tick runs one synchronization pass at the given scene-relative
// playhead position.
func (e *Engine) Tick(ctx context.Context, pos float64) error {
	e.state.Playhead = pos

	// Audio policy: mute when no audio clip is active, unless the
	// user's explicit mute is already in force.
	if e.explicitMute {
		if err := e.applyMute(true); err != nil {
			return err
		}
	} else if err := e.applyMute(e.state.QueryAt(timeline.TrackAudio, pos) == nil); err != nil {
		return err
	}

	effective := e.state.VideoContentEnd()

	// At or beyond the last video clip is the natural end of content:
	// pause, but never raise the gap UI.
	if effective == 0 || pos >= effective {
		if e.inGap {
			e.setGap(false)
		}
		if e.playing {
			if err := e.player.SetPause(true); err != nil {
				return err
			}
			e.playing = false
			e.wasPlaying = false
		}
		return nil
	}

	vclip := e.state.QueryAt(timeline.TrackVideo, pos)
	if vclip == nil {
		// Entered a gap: pause and signal; remember whether to resume.
		if !e.inGap {
			e.wasPlaying = e.playing
			if e.playing {
				if err := e.player.SetPause(true); err != nil {
					return err
				}
				e.playing = false
			}
			e.setGap(true)
		}
		return nil
	}

	source, offset, ok := sourceAt(vclip, pos)

	// A clip whose source already failed stays on the timeline but
	// shows the gap-like signal while the playhead is over it.
	if ok && e.unplayable[source] {
		if !e.inGap {
			e.wasPlaying = e.playing
			if e.playing {
				if err := e.player.SetPause(true); err != nil {
					return err
				}
				e.playing = false
			}
			e.setGap(true)
		}
		return nil
	}

	if e.inGap {
		// Left the gap: resume only if playback was running before.
		e.setGap(false)
		if e.wasPlaying {
			if err := e.player.SetPause(false); err != nil {
				return err
			}
			e.playing = true
		}
		e.wasPlaying = false
	}

	if !ok {
		return nil
	}
	if source != e.currentSource {
		if err := e.handoff(ctx, source, offset); err != nil {
			return err
		}
	}

	e.maybePreload(ctx, vclip, pos)
	return nil
}

// TimelinePos maps a position reported by the player, relative to the
// start of the currently loaded source, back onto the timeline. It
// reports false when the player's source does not line up with the
// clip under the playhead, which happens transiently around hand-offs.
func (e *Engine) TimelinePos(sourcePos float64) (float64, bool) {
	if e.currentSource == "" || e.inGap {
		return 0, false
	}
	c := e.state.QueryAt(timeline.TrackVideo, e.state.Playhead)
	if c == nil {
		return 0, false
	}
	var media float64
	switch {
	case len(c.Segments) == 0:
		if c.Source != e.currentSource {
			return 0, false
		}
		media = sourcePos
	default:
		found := false
		for _, seg := range c.Segments {
			if seg.Source == e.currentSource {
				media = float64(seg.From)/1000 + sourcePos
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	pos := timeAtMedia(c, media)
	if pos < c.StartTime || pos > c.End() {
		return 0, false
	}
	return pos, true
}

func (e *Engine) setGap(inGap bool) {
	e.inGap = inGap
	if e.onGap != nil {
		e.onGap(inGap)
	}
}

// handoff switches the player to a different backing source. If the
// source was preloaded the swap is instant; otherwise it is resolved,
// loaded, and waited on before seeking.
func (e *Engine) handoff(ctx context.Context, source string, offset float64) error {
	wasPlaying := e.playing
	if wasPlaying {
		if err := e.player.SetPause(true); err != nil {
			return err
		}
	}

	resolved, preloaded := e.preloads.take(source)
	if !preloaded {
		var err error
		resolved, err = e.resolver.Resolve(ctx, source)
		if err != nil {
			return e.loadFailed(source, err)
		}
	}

	if err := e.player.LoadFile(resolved); err != nil {
		return e.loadFailed(source, err)
	}
	if !preloaded {
		if err := e.waitSeekable(ctx); err != nil {
			return e.loadFailed(source, err)
		}
	}
	if err := e.player.Seek(offset); err != nil {
		return e.loadFailed(source, err)
	}

	e.currentSource = source
	e.lastResolved = resolved
	delete(e.loadFailures, source)
	if wasPlaying {
		if err := e.player.SetPause(false); err != nil {
			return err
		}
		e.playing = true
	}
	logger.Debug("segment hand-off", "source", source, "offset", offset, "preloaded", preloaded)
	return nil
}

// loadFailed falls back to the previously resolved source when one
// exists; otherwise the clip is present-but-unplayable and shows the
// gap-like UI instead of being removed. A source that keeps failing is
// marked unplayable after maxLoadAttempts so ticks over it stop
// re-issuing loads against the fallback.
func (e *Engine) loadFailed(source string, cause error) error {
	logger.Warn("media load failed", "source", source, "error", cause)
	e.loadFailures[source]++
	if e.loadFailures[source] >= maxLoadAttempts {
		e.unplayable[source] = true
	}
	if e.lastResolved != "" {
		if err := e.player.LoadFile(e.lastResolved); err == nil {
			return nil
		}
	}
	e.unplayable[source] = true
	e.setGap(true)
	return ErrUnplayable
}

// waitSeekable polls the player until the loaded source accepts seeks.
func (e *Engine) waitSeekable(ctx context.Context) error {
	deadline := time.Now().Add(seekableTimeout)
	for {
		ok, err := e.player.Seekable()
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("playback: source never became seekable")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// maybePreload resolves the next segment's source once the playhead is
// within the lookahead window of a segment boundary.
func (e *Engine) maybePreload(ctx context.Context, c *timeline.Clip, pos float64) {
	next, boundary, ok := nextSegmentSource(c, pos)
	if !ok || next == e.currentSource || e.unplayable[next] {
		return
	}
	if boundary-pos > preloadWindow {
		return
	}
	if e.preloads.has(next) {
		return
	}
	resolved, err := e.resolver.Resolve(ctx, next)
	if err != nil {
		logger.Debug("preload resolve failed", "source", next, "error", err)
		return
	}
	e.preloads.add(next, resolved)
	logger.Debug("preloaded next segment", "source", next, "boundary", boundary)
}
