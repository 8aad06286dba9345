package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varekai/opsmind/internal/core/domain"
)

func TestEventBusDeliversToRunSubscriber(t *testing.T) {
	bus := NewEventBus(testLogger())
	ch, unsub := bus.Subscribe("run-1")
	defer unsub()

	bus.Publish(domain.EngineEvent{Type: domain.EventStepStarted, RunID: "run-1", StepNumber: 1})
	bus.Publish(domain.EngineEvent{Type: domain.EventStepStarted, RunID: "run-2", StepNumber: 1})

	require.Len(t, ch, 1, "only run-1 events reach the run-1 subscriber")
	e := <-ch
	assert.Equal(t, "run-1", e.RunID)
}

func TestEventBusCatchAllSubscriber(t *testing.T) {
	bus := NewEventBus(testLogger())
	ch, unsub := bus.Subscribe("")
	defer unsub()

	bus.Publish(domain.EngineEvent{Type: domain.EventStepStarted, RunID: "run-1"})
	bus.Publish(domain.EngineEvent{Type: domain.EventStepCompleted, RunID: "run-2"})

	assert.Len(t, ch, 2)
}

func TestEventBusNoDoubleDelivery(t *testing.T) {
	bus := NewEventBus(testLogger())
	ch, unsub := bus.Subscribe("")
	defer unsub()

	// An event without a run ID must reach the catch-all subscriber once.
	bus.Publish(domain.EngineEvent{Type: domain.EventStepStarted})

	assert.Len(t, ch, 1)
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(testLogger())
	ch, unsub := bus.Subscribe("run-1")

	unsub()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic or deliver.
	bus.Publish(domain.EngineEvent{Type: domain.EventStepStarted, RunID: "run-1"})
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus(testLogger())
	ch, unsub := bus.Subscribe("run-1")
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 150; i++ {
			bus.Publish(domain.EngineEvent{Type: domain.EventStepStarted, RunID: "run-1", StepNumber: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full subscriber channel")
	}
	assert.Equal(t, 100, len(ch), "overflow events are dropped, not queued")
}
