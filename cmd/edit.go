package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/user/storycut/api"
	"github.com/user/storycut/config"
	"github.com/user/storycut/db"
	"github.com/user/storycut/logger"
	"github.com/user/storycut/mpv"
	"github.com/user/storycut/pkg/timeutil"
	"github.com/user/storycut/playback"
	"github.com/user/storycut/reconcile"
	"github.com/user/storycut/story"
	"github.com/user/storycut/thumbs"
	"github.com/user/storycut/timeline"
	"github.com/user/storycut/tui"
	"github.com/user/storycut/tui/forms"
)

var editStart string

var editCmd = &cobra.Command{
	Use:   "edit <story-id> [video-file]",
	Short: "Open a story's timeline for editing",
	Long: `Open the timeline editor for a story. The edited video is played
through mpv while the timeline tracks are edited in the terminal.
Story-graph scene events are accepted on the configured HTTP listener
and reconciled into the timeline.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer logger.Close()

		storyID := args[0]

		videoPath := ""
		if len(args) > 1 {
			videoPath = args[1]
		} else if err := forms.NewVideoPathForm(&videoPath).Run(); err != nil {
			return err
		}

		absPath, err := filepath.Abs(videoPath)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := os.Stat(absPath)
		if os.IsNotExist(err) {
			return fmt.Errorf("video file not found: %s", absPath)
		}
		if err != nil {
			return fmt.Errorf("failed to access video file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("path is a directory, not a video file: %s", absPath)
		}

		// Persistence: load the stored timeline, dropping anything corrupt.
		dbPath := ""
		if cfg.DataDir != "" {
			dbPath = filepath.Join(cfg.DataDir, "data.db")
		}
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		state, err := db.LoadTimeline(database, storyID)
		if err != nil {
			return fmt.Errorf("failed to load timeline: %w", err)
		}

		if editStart != "" {
			start, perr := timeutil.ParseTime(editStart)
			if perr != nil {
				return perr
			}
			if state.Duration > 0 && start > state.Duration {
				start = state.Duration
			}
			state.Playhead = start
		}

		history := timeline.NewHistory()
		editor := timeline.NewEditor(state, history, cfg.SnapThreshold)

		autosaver := db.NewAutosaver(database, storyID, func() *timeline.State { return state },
			time.Duration(cfg.AutosaveDebounceMS)*time.Millisecond)
		defer autosaver.Close()
		editor.SetOnEdit(autosaver.Notify)

		// Launch mpv and wait for its IPC socket.
		process, err := mpv.Launch(absPath, cfg.MpvSocket)
		if err != nil {
			return fmt.Errorf("failed to launch mpv: %w", err)
		}
		defer func() {
			if process.Process != nil {
				_ = process.Process.Kill()
			}
		}()

		client := mpv.NewClient(cfg.MpvSocket)
		var connectErr error
		for i := 0; i < 50; i++ { // Wait up to 5 seconds
			time.Sleep(100 * time.Millisecond)
			connectErr = client.Connect()
			if connectErr == nil {
				break
			}
		}
		if connectErr != nil {
			return fmt.Errorf("failed to connect to mpv: %w", connectErr)
		}
		defer client.Close()

		// A fresh story has no stored clips; size the editable span
		// from the video mpv just loaded.
		if state.Duration == 0 {
			if d, derr := client.GetDuration(); derr == nil && d > 0 {
				state.Duration = d
				if state.Playhead > d {
					state.Playhead = d
				}
			}
		}

		backend := api.NewClient(cfg.BackendURL, nil)

		engine := playback.NewEngine(client, playback.PassthroughResolver{}, state)
		engine.Start()
		defer engine.Close()

		service := reconcile.NewService(state, backend)
		service.SetOnChange(autosaver.Notify)

		bus := story.NewBus()
		defer bus.Close()
		listener := story.NewListener(cfg.ListenAddr, bus)
		if err := listener.Start(); err != nil {
			return fmt.Errorf("failed to start event listener: %w", err)
		}
		defer listener.Close()

		model := tui.NewModel(engine, editor, service, backend, storyID)
		model.SetPlayerPoller(client)
		thumbDir := ""
		if cfg.DataDir != "" {
			thumbDir = filepath.Join(cfg.DataDir, "thumbs")
		} else if home, herr := os.UserHomeDir(); herr == nil {
			thumbDir = filepath.Join(home, ".local", "share", "storycut", "thumbs")
		}
		if thumbDir != "" {
			if cache, cerr := thumbs.NewCache(thumbDir); cerr == nil {
				model.SetThumbnailCache(cache)
			}
		}
		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

		// Pump bus events into the UI loop so all timeline mutation
		// stays on one goroutine.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
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
					program.Send(tui.SceneSequenceMsg{Seq: seq})
				case ev, ok := <-removals:
					if !ok {
						return
					}
					program.Send(tui.SceneRemovedMsg{Ev: ev})
				}
			}
		}()

		logger.Info("editor session started", "storyId", storyID, "video", absPath)
		_, err = program.Run()
		autosaver.Flush()
		return err
	},
}

func init() {
	editCmd.Flags().StringVar(&editStart, "start", "",
		"open with the playhead at this position (seconds, M:SS, or H:MM:SS)")
}
