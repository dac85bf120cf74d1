package db

import (
	"database/sql"
	"sync"
	"time"

	"github.com/user/storycut/logger"
	"github.com/user/storycut/timeline"
)

// Autosaver writes the timeline to the database after edits settle.
// Each Notify restarts the debounce window, so a burst of edits costs
// one write.
type Autosaver struct {
	db      *sql.DB
	storyID string
	state   func() *timeline.State
	delay   time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewAutosaver builds an autosaver for one story's timeline. state is
// called at save time so the freshest edit is what lands on disk.
func NewAutosaver(db *sql.DB, storyID string, state func() *timeline.State, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Autosaver{db: db, storyID: storyID, state: state, delay: delay}
}

// Notify marks the timeline dirty and (re)starts the debounce timer.
func (a *Autosaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.save)
}

// Flush saves immediately if a save is pending.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	pending := a.timer != nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	if pending {
		a.save()
	}
}

// Close flushes any pending save and stops the autosaver.
func (a *Autosaver) Close() {
	a.Flush()
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

func (a *Autosaver) save() {
	a.mu.Lock()
	a.timer = nil
	a.mu.Unlock()

	s := a.state()
	if s == nil {
		return
	}
	if err := SaveTimeline(a.db, a.storyID, s.Clone()); err != nil {
		logger.Error("timeline autosave failed", "storyId", a.storyID, "error", err)
		return
	}
	logger.Debug("timeline autosaved", "storyId", a.storyID, "clips", len(s.Clips))
}
