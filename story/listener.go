package story

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/storycut/logger"
)

// Listener exposes a small HTTP surface the story-graph collaborator
// posts its events to. Events are validated and republished on the
// typed bus.
type Listener struct {
	addr   string
	bus    *Bus
	server *http.Server
}

// NewListener builds a listener bound to addr, publishing to bus.
func NewListener(addr string, bus *Bus) *Listener {
	l := &Listener{addr: addr, bus: bus}
	l.server = &http.Server{
		Addr:              addr,
		Handler:           l.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return l
}

func (l *Listener) router() *chi.Mux {
	r := chi.NewRouter()
	r.Post("/events/scene-sequence", l.handleSequence)
	r.Post("/events/scene-removed", l.handleRemoved)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// Start begins serving in a background goroutine.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("event listener stopped", "error", err)
		}
	}()
	logger.Info("event listener started", "addr", l.addr)
	return nil
}

// Close shuts the listener down.
func (l *Listener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}

func (l *Listener) handleSequence(w http.ResponseWriter, r *http.Request) {
	var seq SceneSequence
	if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed scene-sequence payload"})
		return
	}
	if seq.StoryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "storyId is required"})
		return
	}
	if seq.Timestamp == 0 {
		seq.Timestamp = time.Now().UnixMilli()
	}
	l.bus.PublishSequence(seq)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (l *Listener) handleRemoved(w http.ResponseWriter, r *http.Request) {
	var ev SceneRemoved
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.SceneID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sceneId is required"})
		return
	}
	l.bus.PublishRemoval(ev)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
