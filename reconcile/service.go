// Package reconcile keeps the timeline's contents consistent with the
// scene sequence coming out of the story graph, without destroying
// independently generated content such as captions and AI outputs.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/storycut/logger"
	"github.com/user/storycut/story"
	"github.com/user/storycut/timeline"
)

// Status is the service state machine position.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

// syncThrottle is the minimum spacing between sync starts. Events
// arriving sooner are dropped, not queued: the next emission
// supersedes them anyway.
const syncThrottle = 500 * time.Millisecond

// ErrSyncDropped is returned when an event is discarded by the
// throttle or the in-progress guard.
var ErrSyncDropped = errors.New("reconcile: sync dropped")

// Loader fetches the timeline clips belonging to one scene.
type Loader interface {
	SceneClips(ctx context.Context, storyID, sceneID string) ([]timeline.Clip, error)
}

// Service diffs incoming scene sequences against the timeline and
// selectively clears and reloads scene-derived content. All mutation
// happens on the caller's goroutine; the in-progress guard keeps at
// most one sync in flight.
type Service struct {
	state  *timeline.State
	loader Loader

	status        Status
	lastSyncStart time.Time
	loaded        map[string]bool
	lastSequence  story.SceneSequence
	onChange      func()

	now func() time.Time
}

// NewService wires the reconciliation service to the timeline state it
// manages and the loader that fetches scene clips.
func NewService(state *timeline.State, loader Loader) *Service {
	return &Service{
		state:  state,
		loader: loader,
		status: StatusIdle,
		loaded: make(map[string]bool),
		now:    time.Now,
	}
}

// SetOnChange registers a callback invoked after the timeline has been
// modified by a sync.
func (s *Service) SetOnChange(fn func()) {
	s.onChange = fn
}

// Status returns the current state machine position.
func (s *Service) Status() Status {
	return s.status
}

// LoadedScenes returns the ids recorded by the last successful sync.
func (s *Service) LoadedScenes() []string {
	out := make([]string, 0, len(s.loaded))
	for _, id := range s.lastSequence.SceneIDs {
		if s.loaded[id] {
			out = append(out, id)
		}
	}
	return out
}

// HandleSequence reconciles the timeline with a new scene sequence.
// Events are dropped while a sync is in flight or within the throttle
// window; ErrSyncDropped reports the drop to the caller.
func (s *Service) HandleSequence(ctx context.Context, seq story.SceneSequence) error {
	if s.status == StatusSyncing {
		logger.Debug("scene sequence dropped, sync in progress", "storyId", seq.StoryID)
		return ErrSyncDropped
	}
	if !s.lastSyncStart.IsZero() && s.now().Sub(s.lastSyncStart) < syncThrottle {
		logger.Debug("scene sequence dropped by throttle", "storyId", seq.StoryID)
		return ErrSyncDropped
	}
	return s.sync(ctx, seq)
}

// HandleSceneRemoved drops the scene from the tracked sequence and
// reconciles immediately. Removals bypass the throttle but still
// respect the in-progress guard.
func (s *Service) HandleSceneRemoved(ctx context.Context, ev story.SceneRemoved) error {
	if s.status == StatusSyncing {
		return ErrSyncDropped
	}
	// Before the first sequence sync there is nothing to reconcile
	// against: a full pass would classify clips restored from
	// persistence as stale and clear them all. Remove only the named
	// scene's clips instead.
	if len(s.lastSequence.SceneIDs) == 0 && len(s.loaded) == 0 {
		s.removeSceneClips(ev.SceneID)
		return nil
	}
	seq := s.lastSequence
	ids := make([]string, 0, len(seq.SceneIDs))
	for _, id := range seq.SceneIDs {
		if id != ev.SceneID {
			ids = append(ids, id)
		}
	}
	seq.SceneIDs = ids
	seq.Timestamp = s.now().UnixMilli()
	delete(s.loaded, ev.SceneID)
	return s.sync(ctx, seq)
}

// removeSceneClips deletes one scene's non-preserved clips without a
// full reconciliation pass.
func (s *Service) removeSceneClips(sceneID string) {
	var ids []string
	for _, c := range s.state.Clips {
		if c.Meta.SceneID == sceneID && !preserveClip(c) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	s.state.RemoveClips(ids...)
	delete(s.loaded, sceneID)
	logger.Info("removed scene clips", "sceneId", sceneID, "removed", len(ids))
	if s.onChange != nil {
		s.onChange()
	}
}

// Run consumes bus events until ctx is done. Both channels feed the
// same single-threaded loop, preserving the event-driven, one-sync-at-
// a-time execution model.
func (s *Service) Run(ctx context.Context, bus *story.Bus) {
	seqs := bus.SubscribeSequences()
	removals := bus.SubscribeRemovals()
	for {
		select {
		case <-ctx.Done():
			return
		case seq, ok := <-seqs:
			if !ok {
				return
			}
			if err := s.HandleSequence(ctx, seq); err != nil && !errors.Is(err, ErrSyncDropped) {
				logger.Error("scene sequence sync failed", "storyId", seq.StoryID, "error", err)
			}
		case ev, ok := <-removals:
			if !ok {
				return
			}
			if err := s.HandleSceneRemoved(ctx, ev); err != nil && !errors.Is(err, ErrSyncDropped) {
				logger.Error("scene removal sync failed", "sceneId", ev.SceneID, "error", err)
			}
		}
	}
}

// sync performs one reconciliation pass. All fallible work (the scene
// clip fetches) happens before any mutation, so a failure leaves the
// existing timeline untouched.
func (s *Service) sync(ctx context.Context, seq story.SceneSequence) error {
	s.status = StatusSyncing
	s.lastSyncStart = s.now()

	// Classify the existing items and collect scene ids whose clips
	// are about to be cleared so the load pass re-fetches them.
	var remove []string
	cleared := make(map[string]bool)
	for _, c := range s.state.Clips {
		if preserveClip(c) {
			continue
		}
		remove = append(remove, c.ID)
		if c.Meta.SceneID != "" {
			cleared[c.Meta.SceneID] = true
		}
	}

	// Fetch clips for the scenes that will need loading.
	type sceneLoad struct {
		id    string
		clips []timeline.Clip
	}
	var loads []sceneLoad
	for _, id := range seq.SceneIDs {
		if s.loaded[id] && !cleared[id] {
			continue
		}
		clips, err := s.loader.SceneClips(ctx, seq.StoryID, id)
		if err != nil {
			s.status = StatusError
			return fmt.Errorf("loading scene %s: %w", id, err)
		}
		loads = append(loads, sceneLoad{id: id, clips: clips})
	}

	// Mutation: delete the non-preserved set, then append the fetched
	// scene clips in sequence order. The scene duration grows first so
	// the add-time clamp cannot squash clips landing past the old end.
	s.state.RemoveClips(remove...)
	end := s.state.ContentEnd()
	for _, l := range loads {
		for _, c := range l.clips {
			if e := c.StartTime + c.Duration; e > end {
				end = e
			}
		}
	}
	if end > s.state.Duration {
		s.state.Duration = end
	}
	for _, l := range loads {
		for _, c := range l.clips {
			s.state.AddClip(c)
		}
	}

	s.loaded = make(map[string]bool, len(seq.SceneIDs))
	for _, id := range seq.SceneIDs {
		s.loaded[id] = true
	}
	s.lastSequence = seq
	s.status = StatusSynced

	logger.Info("timeline reconciled",
		"storyId", seq.StoryID,
		"scenes", len(seq.SceneIDs),
		"removed", len(remove),
		"loaded", len(loads))

	if s.onChange != nil {
		s.onChange()
	}
	return nil
}
