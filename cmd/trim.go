package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/storycut/api"
	"github.com/user/storycut/config"
	"github.com/user/storycut/db"
	"github.com/user/storycut/logger"
	"github.com/user/storycut/tui/forms"
)

var trimCmd = &cobra.Command{
	Use:   "trim <story-id> <scene-id>",
	Short: "Persist a scene's trim to the backend",
	Long: `Compute the trim for one scene from the saved timeline (earliest
video clip start and overall span) and persist it to the analysis
backend. Saves are never retried automatically; re-run on failure.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer logger.Close()

		storyID, sceneID := args[0], args[1]

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

		trim, ok := api.ComputeTrim(state, sceneID)
		if !ok {
			return fmt.Errorf("no video clips for scene %s on the timeline", sceneID)
		}

		save := false
		if err := forms.NewConfirmTrimForm(sceneID, trim.NewClipStartTime, trim.NewClipDuration, &save).Run(); err != nil {
			return err
		}
		if !save {
			fmt.Println("Trim not saved.")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		backend := api.NewClient(cfg.BackendURL, nil)
		meta, err := backend.SaveTrim(ctx, storyID, sceneID, trim)
		if err != nil {
			return fmt.Errorf("trim save failed: %w", err)
		}

		fmt.Printf("Trim saved for scene %s (start %.2fs, duration %.2fs)\n",
			meta.SceneID, trim.NewClipStartTime, trim.NewClipDuration)
		return nil
	},
}
