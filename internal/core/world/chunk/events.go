package chunk

import "github.com/juniorbueno0/coppercaves/internal/core/world/grid"

const (
	EventSpawned   = "chunk.spawned"
	EventDespawned = "chunk.despawned"

	eventSource = "chunk_cache"
)

// SpawnedEvent is the payload of EventSpawned. Content is a private copy.
type SpawnedEvent struct {
	Coord   grid.Coord
	Content []Content
	Digest  uint64
}

// DespawnedEvent is the payload of EventDespawned. Every listed handle has
// already been released.
type DespawnedEvent struct {
	Coord   grid.Coord
	Handles []Handle
}
