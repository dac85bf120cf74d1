// Package thumbs extracts and caches clip thumbnails via ffmpeg.
package thumbs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/user/storycut/deps"
	"github.com/user/storycut/logger"
)

// cacheCap bounds the cache; the oldest entry is evicted first.
const cacheCap = 100

// Cache is a bounded FIFO cache of extracted thumbnail files keyed by
// source and second.
type Cache struct {
	dir string

	mu      sync.Mutex
	order   []string
	entries map[string]string
	nextID  int
}

// NewCache stores thumbnails under dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, entries: make(map[string]string)}, nil
}

// Get returns the thumbnail for one second of a source, extracting it
// on a miss. The extracted frame is a small JPEG.
func (c *Cache) Get(ctx context.Context, source string, second float64) (string, error) {
	key := fmt.Sprintf("%s@%.1f", source, second)

	c.mu.Lock()
	if path, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return path, nil
	}
	c.nextID++
	out := filepath.Join(c.dir, fmt.Sprintf("thumb_%06d.jpg", c.nextID))
	c.mu.Unlock()

	if err := extractFrame(ctx, source, second, out); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.order) >= cacheCap {
		oldest := c.order[0]
		c.order = c.order[1:]
		if stale, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
				logger.Debug("thumbnail evict failed", "path", stale, "error", err)
			}
		}
	}
	c.order = append(c.order, key)
	c.entries[key] = out
	return out, nil
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// extractFrame grabs a single scaled frame with ffmpeg.
func extractFrame(ctx context.Context, source string, second float64, out string) error {
	if err := deps.CheckFfmpeg(); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", second),
		"-i", source,
		"-frames:v", "1",
		"-vf", "scale=160:-1",
		"-y",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w: %s", err, string(output))
	}
	return nil
}
