package sim

import (
	"maps"
	"sync"

	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
)

// EventCounts tallies bus traffic per event type.
type EventCounts struct {
	Published map[string]uint64
	Failed    map[string]uint64
}

// eventTally observes the bus. Handler failures are logged once per event.
type eventTally struct {
	mu        sync.Mutex
	published map[string]uint64
	failed    map[string]uint64
	logger    log.Log
}

func newEventTally(logger log.Log) *eventTally {
	return &eventTally{
		published: make(map[string]uint64),
		failed:    make(map[string]uint64),
		logger:    logger,
	}
}

func (t *eventTally) OnPublish(eventType string, _ bus.Event) {
	t.mu.Lock()
	t.published[eventType]++
	t.mu.Unlock()
}

func (t *eventTally) OnDelivered(eventType string, handlers int, err error, durationMicros int64) {
	if err == nil {
		return
	}
	t.mu.Lock()
	t.failed[eventType]++
	t.mu.Unlock()
	t.logger.Debug("Event handlers failed",
		log.String("event", eventType),
		log.Int("handlers", handlers),
		log.Int64("micros", durationMicros),
		log.Error(err))
}

func (t *eventTally) snapshot() EventCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return EventCounts{Published: maps.Clone(t.published), Failed: maps.Clone(t.failed)}
}
