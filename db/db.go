// Package db persists timeline state in SQLite.
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens or creates the SQLite database at the given path.
// Parent directories are created if they don't exist.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = defaultPath()
		if err != nil {
			return nil, err
		}
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrate runs all database migrations.
// Migrations are idempotent (safe to run multiple times).
func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS timelines (
			story_id TEXT PRIMARY KEY,
			playhead REAL NOT NULL DEFAULT 0,
			duration REAL NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS timeline_clips (
			id TEXT PRIMARY KEY,
			story_id TEXT NOT NULL,
			track TEXT NOT NULL,
			position INTEGER NOT NULL,
			start_time REAL NOT NULL,
			duration REAL NOT NULL,
			media_start REAL NOT NULL,
			media_end REAL NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			scene_id TEXT NOT NULL DEFAULT '',
			mezzanine INTEGER NOT NULL DEFAULT 0,
			ai_generated INTEGER NOT NULL DEFAULT 0,
			subtitle INTEGER NOT NULL DEFAULT 0,
			segments TEXT NOT NULL DEFAULT '[]'
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_timeline_clips_story
		ON timeline_clips(story_id, position)
	`)
	return err
}

// defaultPath returns the database location under the user data dir.
func defaultPath() (string, error) {
	if v := os.Getenv("STORYCUT_DATA_HOME"); v != "" {
		return filepath.Join(v, "data.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "storycut", "data.db"), nil
}
