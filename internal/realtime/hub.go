// Package realtime fans out change notifications to connected clients.
// Delivery is at-most-once: a subscriber that falls behind loses messages.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	MessageEvent  = "event"
	MessageUpdate = "update"

	defaultBuffer = 32
)

// WorldEventTopic carries a notification for every event recorded in a world.
func WorldEventTopic(worldID int64) string {
	return fmt.Sprintf("world_event-%d", worldID)
}

// PlayerTopic carries a notification when a player's record changes.
func PlayerTopic(playerID int64) string {
	return fmt.Sprintf("player-%d", playerID)
}

type Message struct {
	ID     string    `json:"id"`
	Topic  string    `json:"topic"`
	Name   string    `json:"name"`
	Data   any       `json:"data,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, name string, data any) error
}

var _ Publisher = (*Hub)(nil)

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   map[string]map[*Subscription]struct{}{},
		buffer: buffer,
		logger: logger.With("component", "realtime"),
	}
}

type Subscription struct {
	hub   *Hub
	topic string
	ch    chan Message
	once  sync.Once
}

// C yields messages published to the subscription's topic. It is closed by
// Close.
func (s *Subscription) C() <-chan Message { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if subs, ok := s.hub.subs[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.subs, s.topic)
			}
		}
		close(s.ch)
	})
}

func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{hub: h, topic: topic, ch: make(chan Message, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = map[*Subscription]struct{}{}
	}
	h.subs[topic][sub] = struct{}{}
	return sub
}

// Publish never blocks on slow subscribers.
func (h *Hub) Publish(ctx context.Context, topic, name string, data any) error {
	msg := Message{
		ID:     uuid.NewString(),
		Topic:  topic,
		Name:   name,
		Data:   data,
		SentAt: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("dropped realtime message", "topic", topic, "name", name, "subscribers", dropped)
	}
	return nil
}

// Subscribers reports how many subscriptions a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
