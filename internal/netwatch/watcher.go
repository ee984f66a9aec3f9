package netwatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"mailpilot-mcp-server/internal/mailapp"
)

// DefaultCapacity bounds the observation ring. Old entries fall off; the
// watcher is a diagnostic window, not a durable log.
const DefaultCapacity = 512

// Observation is one backend exchange annotated with the entity keys found
// in its URL. Exchanges with no recognizable keys are dropped.
type Observation struct {
	At     time.Time `json:"at"`
	URL    string    `json:"url"`
	Status int       `json:"status"`
	Keys   []Key     `json:"keys"`
}

// Watcher collects annotated backend traffic from an attached session into a
// bounded ring buffer. Safe for concurrent use; the session delivers events
// from its own goroutine while tools read snapshots.
type Watcher struct {
	mu   sync.Mutex
	ring []Observation
	next int
	full bool
}

// NewWatcher builds a watcher with the given ring capacity. Zero or negative
// means DefaultCapacity.
func NewWatcher(capacity int) *Watcher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Watcher{ring: make([]Observation, capacity)}
}

// Attach subscribes the watcher to the session's network events until ctx is
// cancelled. Static assets and keyless exchanges are filtered out.
func (w *Watcher) Attach(ctx context.Context, sess *mailapp.Session) error {
	return sess.ObserveNetwork(ctx, func(ev mailapp.NetworkEvent) {
		if isStaticAsset(ev) {
			return
		}
		keys := FromURL(ev.URL)
		if len(keys) == 0 {
			return
		}
		w.add(Observation{At: ev.At, URL: ev.URL, Status: ev.Status, Keys: keys})
	})
}

func (w *Watcher) add(obs Observation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ring[w.next] = obs
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.full = true
	}
}

// Recent returns up to limit observations, newest first. A non-positive
// limit returns everything retained.
func (w *Watcher) Recent(limit int) []Observation {
	w.mu.Lock()
	defer w.mu.Unlock()

	size := w.next
	if w.full {
		size = len(w.ring)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Observation, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (w.next - i + len(w.ring)) % len(w.ring)
		out = append(out, w.ring[idx])
	}
	return out
}

// ForKey returns retained observations that reference the given entity
// value, newest first. Matching is by value only so callers do not need to
// know whether the backend called it a thread or a conversation.
func (w *Watcher) ForKey(value string) []Observation {
	value = normalizeValue(value)
	if value == "" {
		return nil
	}

	var out []Observation
	for _, obs := range w.Recent(0) {
		for _, key := range obs.Keys {
			if key.Value == value {
				out = append(out, obs)
				break
			}
		}
	}
	return out
}

func isStaticAsset(ev mailapp.NetworkEvent) bool {
	if strings.HasPrefix(ev.MIMEType, "image/") || strings.HasPrefix(ev.MIMEType, "font/") {
		return true
	}
	switch ev.MIMEType {
	case "text/css", "application/javascript", "text/javascript":
		return true
	}
	return false
}
