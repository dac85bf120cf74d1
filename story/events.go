// Package story carries the contract between the story-graph
// collaborator and the timeline: the scene-sequence events it emits
// and a typed bus for delivering them.
package story

import "sync"

// SceneSequence is emitted whenever the set or order of scene nodes in
// the story graph changes. It supersedes the previous emission and is
// never persisted; the timeline's own clip model is what gets saved.
type SceneSequence struct {
	SceneIDs  []string `json:"sceneIds"`
	StoryID   string   `json:"storyId"`
	Timestamp int64    `json:"timestamp"`
}

// SceneRemoved is emitted when a single scene node is deleted from the
// graph.
type SceneRemoved struct {
	SceneID string `json:"sceneId"`
}

// Bus is a typed publish/subscribe channel between the story graph and
// the reconciliation service. Publishing never blocks: a subscriber
// that has fallen behind loses the event, which is safe because every
// sequence supersedes the last.
type Bus struct {
	mu       sync.Mutex
	seqSubs  []chan SceneSequence
	remSubs  []chan SceneRemoved
	closed   bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeSequences returns a channel receiving scene-sequence events.
func (b *Bus) SubscribeSequences() <-chan SceneSequence {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan SceneSequence, 8)
	b.seqSubs = append(b.seqSubs, ch)
	return ch
}

// SubscribeRemovals returns a channel receiving scene-removed events.
func (b *Bus) SubscribeRemovals() <-chan SceneRemoved {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan SceneRemoved, 8)
	b.remSubs = append(b.remSubs, ch)
	return ch
}

// PublishSequence delivers a scene-sequence event to all subscribers.
func (b *Bus) PublishSequence(seq SceneSequence) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.seqSubs {
		select {
		case ch <- seq:
		default:
		}
	}
}

// PublishRemoval delivers a scene-removed event to all subscribers.
func (b *Bus) PublishRemoval(ev SceneRemoved) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.remSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes all subscriber channels. Publishing after Close is a
// no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.seqSubs {
		close(ch)
	}
	for _, ch := range b.remSubs {
		close(ch)
	}
	b.seqSubs = nil
	b.remSubs = nil
}
