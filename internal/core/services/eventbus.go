package services

import (
	"log/slog"
	"sync"

	"github.com/varekai/opsmind/internal/core/domain"
)

// EventBus fans engine events out to subscribers keyed by run ID. It is the
// event-sink implementation observers (logging, metrics, report streaming)
// attach to without coupling to engine internals.
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string][]chan domain.EngineEvent // key: run ID, "" = all runs
}

// NewEventBus creates an empty bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[string][]chan domain.EngineEvent),
	}
}

var _ domain.EventSink = (*EventBus)(nil)

// Subscribe returns a channel receiving events for one run ID, or for all
// runs when runID is empty. The second return value unsubscribes.
func (b *EventBus) Subscribe(runID string) (<-chan domain.EngineEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.EngineEvent, 100) // buffer to keep the publisher non-blocking
	b.subs[runID] = append(b.subs[runID], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subs[runID]
		for i, sub := range subscribers {
			if sub == ch {
				close(ch)
				b.subs[runID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[runID]) == 0 {
			delete(b.subs, runID)
		}
	}

	return ch, unsub
}

// Publish delivers an event to run-specific and catch-all subscribers. Full
// channels drop the event rather than block the engine.
func (b *EventBus) Publish(e domain.EngineEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := []string{""}
	if e.RunID != "" {
		keys = append(keys, e.RunID)
	}
	for _, key := range keys {
		for _, ch := range b.subs[key] {
			select {
			case ch <- e:
			default:
				b.logger.Warn("event bus channel full, dropping event", "run_id", e.RunID, "type", e.Type)
			}
		}
	}
}
