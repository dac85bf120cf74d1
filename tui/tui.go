// Package tui is the thin rendering and interaction adapter over the
// timeline engine: it polls playback once per tick, translates pointer
// gestures into edit operations, and renders the lane view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/storycut/api"
	"github.com/user/storycut/logger"
	"github.com/user/storycut/playback"
	"github.com/user/storycut/reconcile"
	"github.com/user/storycut/story"
	"github.com/user/storycut/thumbs"
	"github.com/user/storycut/timeline"
	"github.com/user/storycut/tui/components"
	"github.com/user/storycut/tui/styles"
)

const (
	// tickInterval is the media-time-update cadence.
	tickInterval = 100 * time.Millisecond
	// frameInterval bounds redraw work during rapid drag/scroll: a
	// redraw happens immediately if this much time has passed,
	// otherwise the previous frame is reused.
	frameInterval = 16700 * time.Microsecond
	// messageDisplayDuration is how long transient messages stay up.
	messageDisplayDuration = 3 * time.Second
	// timelineTop is the screen row of the tracks box top border.
	timelineTop = 0
	// scrubStep is the keyboard seek step in seconds.
	scrubStep = 1.0
)

// tickMsg is sent on every tick interval to run the sync engine.
type tickMsg time.Time

// clearMessageMsg clears the transient status message.
type clearMessageMsg struct{}

// trimSavedMsg reports the outcome of a post-gesture trim save.
type trimSavedMsg struct {
	sceneID string
	err     error
}

// SceneSequenceMsg delivers a story-graph sequence event into the UI
// loop, so reconciliation mutates the timeline on the same goroutine
// as every other edit.
type SceneSequenceMsg struct {
	Seq story.SceneSequence
}

// SceneRemovedMsg delivers a scene-removed event into the UI loop.
type SceneRemovedMsg struct {
	Ev story.SceneRemoved
}

// previewMsg reports the outcome of a thumbnail extraction.
type previewMsg struct {
	path string
	err  error
}

// PlayerPoller reads the player's own clock. The mpv IPC client
// implements it.
type PlayerPoller interface {
	GetTimePos() (float64, error)
	GetPaused() (bool, error)
}

// Model is the Bubbletea model for the editor surface.
type Model struct {
	engine  *playback.Engine
	editor  *timeline.Editor
	service *reconcile.Service
	backend *api.Client
	thumbs  *thumbs.Cache
	player  PlayerPoller
	storyID string

	width  int
	height int

	drag     dragState
	lastTick time.Time

	// render limiter state
	lastRender time.Time
	cachedView string

	message  string
	quitting bool
}

// NewModel wires the TUI to the engine, editor, and backend client.
func NewModel(engine *playback.Engine, editor *timeline.Editor, service *reconcile.Service, backend *api.Client, storyID string) *Model {
	return &Model{
		engine:  engine,
		editor:  editor,
		service: service,
		backend: backend,
		storyID: storyID,
	}
}

// SetThumbnailCache enables preview-frame extraction.
func (m *Model) SetThumbnailCache(c *thumbs.Cache) {
	m.thumbs = c
}

// SetPlayerPoller makes the player's reported position drive the
// playhead instead of wall-clock extrapolation.
func (m *Model) SetPlayerPoller(p PlayerPoller) {
	m.player = p
}

func (m *Model) state() *timeline.State {
	return m.editor.State()
}

// Init starts the tick loop.
func (m *Model) Init() tea.Cmd {
	m.lastTick = time.Now()
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		pos := m.state().Playhead
		if m.engine.Playing() {
			pos = m.nextPlayhead(pos, now)
		}
		m.lastTick = now
		if err := m.engine.Tick(context.Background(), pos); err != nil {
			logger.Warn("playback tick failed", "error", err)
		}
		return m, tickCmd()

	case clearMessageMsg:
		m.message = ""
		return m, nil

	case trimSavedMsg:
		if msg.err != nil {
			m.message = styles.ErrorText.Render(fmt.Sprintf("trim save failed: %v", msg.err))
		} else {
			m.message = styles.SecondaryText.Render("trim saved: " + msg.sceneID)
		}
		return m, clearMessageCmd()

	case SceneSequenceMsg:
		if err := m.service.HandleSequence(context.Background(), msg.Seq); err != nil && !errors.Is(err, reconcile.ErrSyncDropped) {
			m.message = styles.ErrorText.Render(fmt.Sprintf("sync failed: %v", err))
			return m, clearMessageCmd()
		}
		return m, nil

	case SceneRemovedMsg:
		if err := m.service.HandleSceneRemoved(context.Background(), msg.Ev); err != nil && !errors.Is(err, reconcile.ErrSyncDropped) {
			m.message = styles.ErrorText.Render(fmt.Sprintf("scene removal failed: %v", err))
			return m, clearMessageCmd()
		}
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.message = styles.ErrorText.Render(fmt.Sprintf("preview failed: %v", msg.err))
		} else {
			m.message = styles.SecondaryText.Render("preview: " + msg.path)
		}
		return m, clearMessageCmd()

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// nextPlayhead advances the playhead one tick. The player's own clock
// is authoritative when a poller is wired and its position maps back
// onto the timeline; otherwise the playhead advances by wall-clock
// time, as during hand-offs or when the socket is momentarily slow.
func (m *Model) nextPlayhead(pos float64, now time.Time) float64 {
	if m.player != nil {
		if paused, err := m.player.GetPaused(); err == nil && !paused {
			if sourcePos, err := m.player.GetTimePos(); err == nil {
				if mapped, ok := m.engine.TimelinePos(sourcePos); ok {
					return mapped
				}
			}
		}
	}
	if !m.lastTick.IsZero() {
		pos += now.Sub(m.lastTick).Seconds()
	}
	return pos
}

func clearMessageCmd() tea.Cmd {
	return tea.Tick(messageDisplayDuration, func(time.Time) tea.Msg {
		return clearMessageMsg{}
	})
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case " ":
		var err error
		if m.engine.Playing() {
			err = m.engine.Pause()
		} else {
			err = m.engine.Play()
		}
		if err != nil {
			m.message = styles.ErrorText.Render(err.Error())
			return m, clearMessageCmd()
		}

	case "m":
		if err := m.engine.SetExplicitMute(!m.engine.ExplicitMute()); err != nil {
			m.message = styles.ErrorText.Render(err.Error())
			return m, clearMessageCmd()
		}

	case "left":
		m.scrubTo(m.state().Playhead - scrubStep)

	case "right":
		m.scrubTo(m.state().Playhead + scrubStep)

	case "s":
		s := m.state()
		if c := s.QueryAt(timeline.TrackVideo, s.Playhead); c != nil {
			m.editor.Split(c.ID, s.Playhead)
		}

	case "x", "delete", "backspace":
		if n := m.editor.DeleteSelected(); n > 0 {
			m.message = styles.SecondaryText.Render(fmt.Sprintf("deleted %d clip(s)", n))
			return m, clearMessageCmd()
		}

	case "u":
		if !m.editor.Undo() {
			m.message = styles.SecondaryText.Render("nothing to undo")
			return m, clearMessageCmd()
		}

	case "w":
		return m, m.saveTrimCmd(m.sceneUnderPlayhead())

	case "p":
		return m, m.previewFrameCmd()
	}
	return m, nil
}

// previewFrameCmd extracts a thumbnail for the clip under the
// playhead.
func (m *Model) previewFrameCmd() tea.Cmd {
	if m.thumbs == nil {
		return nil
	}
	s := m.state()
	c := s.QueryAt(timeline.TrackVideo, s.Playhead)
	if c == nil || c.Source == "" {
		return nil
	}
	source := c.Source
	second := c.MediaAt(s.Playhead)
	cache := m.thumbs
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		path, err := cache.Get(ctx, source, second)
		if err != nil {
			return previewMsg{err: err}
		}
		return previewMsg{path: path}
	}
}

func (m *Model) scrubTo(pos float64) {
	s := m.state()
	if pos < 0 {
		pos = 0
	}
	if s.Duration > 0 && pos > s.Duration {
		pos = s.Duration
	}
	if err := m.engine.Tick(context.Background(), pos); err != nil {
		logger.Warn("scrub tick failed", "error", err)
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	layout := components.NewLayout(m.width, m.state().Duration)
	row := msg.Y - timelineTop

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || m.drag.active() {
			return m, nil
		}
		kind, clip := hitTest(m.state(), layout, msg.X, row)
		switch kind {
		case dragScrub:
			m.drag = dragState{kind: dragScrub}
			m.scrubTo(layout.TimeAt(msg.X))
		case dragMove, dragTrimStart, dragTrimEnd:
			m.selectOnly(clip.ID)
			if !m.editor.Begin() {
				return m, nil
			}
			m.drag = dragState{
				kind:       kind,
				clipID:     clip.ID,
				grabOffset: layout.TimeAt(msg.X) - clip.StartTime,
				sceneID:    clip.Meta.SceneID,
			}
		case dragNone:
			m.selectOnly("")
		}

	case tea.MouseActionMotion:
		if !m.drag.active() {
			return m, nil
		}
		t := layout.TimeAt(msg.X)
		switch m.drag.kind {
		case dragScrub:
			m.scrubTo(t)
		case dragMove:
			if c := m.state().Clip(m.drag.clipID); c != nil {
				if m.editor.Move(m.drag.clipID, t-m.drag.grabOffset-c.StartTime) {
					m.drag.moved = true
				}
			}
		case dragTrimStart:
			if m.editor.TrimStartTo(m.drag.clipID, t) {
				m.drag.moved = true
			}
		case dragTrimEnd:
			if m.editor.TrimEndTo(m.drag.clipID, t) {
				m.drag.moved = true
			}
		}

	case tea.MouseActionRelease:
		if !m.drag.active() {
			return m, nil
		}
		drag := m.drag
		m.drag.reset()
		if drag.kind == dragScrub {
			return m, nil
		}
		m.editor.End()
		// A finished trim gesture persists the scene's trim once.
		if drag.moved && drag.sceneID != "" && (drag.kind == dragTrimStart || drag.kind == dragTrimEnd) {
			return m, m.saveTrimCmd(drag.sceneID)
		}
	}
	return m, nil
}

func (m *Model) selectOnly(id string) {
	s := m.state()
	for i := range s.Clips {
		s.Clips[i].Selected = s.Clips[i].ID == id
	}
	s.Selected = make(map[string]bool)
	if id != "" {
		s.Selected[id] = true
	}
}

func (m *Model) sceneUnderPlayhead() string {
	s := m.state()
	if c := s.QueryAt(timeline.TrackVideo, s.Playhead); c != nil {
		return c.Meta.SceneID
	}
	return ""
}

// saveTrimCmd persists a scene's trim to the backend. Failures are
// reported, never retried automatically.
func (m *Model) saveTrimCmd(sceneID string) tea.Cmd {
	if sceneID == "" || m.backend == nil {
		return nil
	}
	trim, ok := api.ComputeTrim(m.state(), sceneID)
	if !ok {
		return nil
	}
	storyID := m.storyID
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := backend.SaveTrim(ctx, storyID, sceneID, trim)
		return trimSavedMsg{sceneID: sceneID, err: err}
	}
}

// View renders the editor surface, reusing the previous frame when
// called again inside the frame interval.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}
	if m.cachedView != "" && time.Since(m.lastRender) < frameInterval {
		return m.cachedView
	}

	s := m.state()
	layout := components.NewLayout(m.width, s.Duration)

	tracks := components.Tracks(s, layout, m.engine.InGap(), m.width)
	help := styles.SecondaryText.Render(
		" space play/pause · m mute · s split · x delete · u undo · w save trim · drag to move/trim · q quit")
	status := components.StatusBar(components.StatusBarState{
		Playing:      m.engine.Playing(),
		Muted:        m.engine.Muted(),
		ExplicitMute: m.engine.ExplicitMute(),
		InGap:        m.engine.InGap(),
		TimePos:      s.Playhead,
		ContentEnd:   s.VideoContentEnd(),
		SyncStatus:   string(m.service.Status()),
		Message:      m.message,
	}, m.width)

	view := lipgloss.JoinVertical(lipgloss.Left, tracks, help, status)
	m.cachedView = view
	m.lastRender = time.Now()
	return view
}
