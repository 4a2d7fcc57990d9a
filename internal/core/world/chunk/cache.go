package chunk

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/terrain"
	"github.com/juniorbueno0/coppercaves/pkg/concurrent"
	"github.com/juniorbueno0/coppercaves/pkg/generic"
	"github.com/juniorbueno0/coppercaves/pkg/sequence"
)

// Options configures a Cache.
type Options struct {
	Geometry       grid.Geometry
	RenderDistance int
	// Extent bounds chunk coordinates to |X|, |Y| <= Extent unless Unbounded.
	Extent    int
	Unbounded bool
	// Zero disables a budget.
	MaxLoadedChunks int
	MaxContentItems int
	// Workers bounds parallel chunk generation; <= 1 generates inline.
	Workers int
}

// Result lists what one reconciliation did. Every slice is sorted.
type Result struct {
	Spawned   []grid.Coord
	Despawned []grid.Coord
	// Skipped holds desired coordinates outside the world bound.
	Skipped []grid.Coord
	// Deferred holds coordinates that did not fit the budget this time.
	Deferred []grid.Coord
}

// Changed reports whether anything was spawned or despawned.
func (r Result) Changed() bool {
	return len(r.Spawned) > 0 || len(r.Despawned) > 0
}

// Stats are running totals for the cache.
type Stats struct {
	Loaded    int
	Content   int
	Spawned   uint64
	Despawned uint64
	Deferred  uint64
}

// Cache owns the loaded chunks and reconciles them against a desired set.
// It has a single writer: all methods must be called from the tick goroutine.
type Cache struct {
	opts    Options
	sampler *terrain.Sampler
	logger  log.Log
	events  bus.EventBus

	records    map[grid.Coord]*Record
	owners     map[Handle]grid.Coord
	content    int
	nextHandle Handle
	stats      Stats

	buffers *generic.Pool[[]Content]
	pending []bus.Event
}

// NewCache creates an empty cache. events may be nil.
func NewCache(opts Options, sampler *terrain.Sampler, logger log.Log, events bus.EventBus) *Cache {
	cells := opts.Geometry.ChunkSize * opts.Geometry.ChunkSize
	return &Cache{
		opts:    opts,
		sampler: sampler,
		logger:  logger.With(log.String("component", "chunk_cache")),
		events:  events,
		records: make(map[grid.Coord]*Record),
		owners:  make(map[Handle]grid.Coord),
		buffers: generic.NewPool(func() []Content {
			return make([]Content, 0, cells)
		}),
	}
}

// InBounds reports whether a coordinate may ever be loaded.
func (c *Cache) InBounds(coord grid.Coord) bool {
	if c.opts.Unbounded {
		return true
	}
	e := c.opts.Extent
	return coord.X >= -e && coord.X <= e && coord.Y >= -e && coord.Y <= e
}

// Tick computes the desired set for viewpoint and reconciles against it.
func (c *Cache) Tick(ctx context.Context, viewpoint mgl64.Vec2) (Result, error) {
	return c.Reconcile(ctx, Desired(c.opts.Geometry, viewpoint, c.opts.RenderDistance))
}

// Reconcile evicts loaded chunks that are no longer desired, then spawns the
// desired chunks that are not loaded. Chunks both loaded and desired are left
// alone. Coordinates outside the world bound are skipped; coordinates that do
// not fit the budget are deferred and retried on the next call.
func (c *Cache) Reconcile(ctx context.Context, desired Set) (Result, error) {
	var res Result
	defer c.flush()

	for _, coord := range c.Loaded().Minus(desired) {
		c.despawn(coord)
		res.Despawned = append(res.Despawned, coord)
	}

	var admitted []grid.Coord
	cellsPerChunk := c.opts.Geometry.ChunkSize * c.opts.Geometry.ChunkSize
	pendingChunks, pendingContent := 0, 0
	for _, coord := range desired.Minus(c.Loaded()) {
		if !c.InBounds(coord) {
			res.Skipped = append(res.Skipped, coord)
			continue
		}
		if !c.fits(pendingChunks+1, pendingContent+cellsPerChunk) {
			res.Deferred = append(res.Deferred, coord)
			continue
		}
		admitted = append(admitted, coord)
		pendingChunks++
		pendingContent += cellsPerChunk
	}

	if len(res.Deferred) > 0 {
		c.stats.Deferred += uint64(len(res.Deferred))
		c.logger.Warn("Chunk spawn deferred, budget exhausted",
			log.Int("deferred", len(res.Deferred)),
			log.Int("loaded", len(c.records)),
			log.Int("content", c.content))
	}

	generated, err := concurrent.MapLimit(ctx, sequence.From(admitted), c.opts.Workers, c.generate)
	if err != nil {
		return res, fmt.Errorf("generate chunks: %w", err)
	}
	for _, rec := range generated {
		c.register(rec)
		res.Spawned = append(res.Spawned, rec.Coord)
	}

	if res.Changed() {
		c.logger.Debug("Chunks reconciled",
			log.Int("spawned", len(res.Spawned)),
			log.Int("despawned", len(res.Despawned)),
			log.Int("skipped", len(res.Skipped)),
			log.Int("loaded", len(c.records)))
	}
	return res, nil
}

func (c *Cache) fits(extraChunks, extraContent int) bool {
	if limit := c.opts.MaxLoadedChunks; limit > 0 && len(c.records)+extraChunks > limit {
		return false
	}
	if limit := c.opts.MaxContentItems; limit > 0 && c.content+extraContent > limit {
		return false
	}
	return true
}

// generate builds a record without handles. It only reads the sampler and may
// run on any goroutine.
func (c *Cache) generate(ctx context.Context, coord grid.Coord) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := c.buffers.Get()[:0]
	for cell := range c.opts.Geometry.Cells(coord) {
		s := c.sampler.At(cell)
		content = append(content, Content{Cell: cell, Kind: s.Kind, Noise: s.Noise})
	}
	return &Record{Coord: coord, Content: content}, nil
}

func (c *Cache) register(rec *Record) {
	for i := range rec.Content {
		c.nextHandle++
		rec.Content[i].Handle = c.nextHandle
		c.owners[c.nextHandle] = rec.Coord
	}
	c.records[rec.Coord] = rec
	c.content += len(rec.Content)
	c.stats.Spawned++

	c.publish(EventSpawned, SpawnedEvent{
		Coord:   rec.Coord,
		Content: slices.Clone(rec.Content),
		Digest:  rec.Digest(),
	})
}

func (c *Cache) despawn(coord grid.Coord) {
	rec, ok := c.records[coord]
	if !ok {
		return
	}
	handles := rec.Handles()
	for _, h := range handles {
		delete(c.owners, h)
	}
	delete(c.records, coord)
	c.content -= len(rec.Content)
	c.stats.Despawned++
	c.buffers.Put(rec.Content[:0])
	rec.Content = nil

	c.publish(EventDespawned, DespawnedEvent{Coord: coord, Handles: handles})
}

func (c *Cache) publish(typ string, data any) {
	if c.events == nil {
		return
	}
	c.pending = append(c.pending, bus.NewEvent(typ, eventSource, data))
}

// flush delivers the events of one reconciliation in order, despawns first.
func (c *Cache) flush() {
	if len(c.pending) == 0 {
		return
	}
	batch := c.pending
	c.pending = nil
	if err := c.events.PublishBatch(batch...); err != nil {
		c.logger.Warn("Chunk event handler failed", log.Int("events", len(batch)), log.Error(err))
	}
}

// Loaded returns a snapshot of the loaded set.
func (c *Cache) Loaded() Set {
	s := Set{m: make(map[grid.Coord]struct{}, len(c.records))}
	for coord := range c.records {
		s.m[coord] = struct{}{}
	}
	return s
}

// IsLoaded reports whether coord is materialized.
func (c *Cache) IsLoaded(coord grid.Coord) bool {
	_, ok := c.records[coord]
	return ok
}

// Record returns a copy of the record loaded at coord.
func (c *Cache) Record(coord grid.Coord) (Record, bool) {
	rec, ok := c.records[coord]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// ContentCount is the number of live content handles.
func (c *Cache) ContentCount() int { return c.content }

// OwnerOf returns the chunk owning a live handle.
func (c *Cache) OwnerOf(h Handle) (grid.Coord, bool) {
	coord, ok := c.owners[h]
	return coord, ok
}

// Handles returns every live handle mapped to its owner.
func (c *Cache) Handles() map[Handle]grid.Coord {
	out := make(map[Handle]grid.Coord, len(c.owners))
	for h, coord := range c.owners {
		out[h] = coord
	}
	return out
}

func (c *Cache) Stats() Stats {
	s := c.stats
	s.Loaded = len(c.records)
	s.Content = c.content
	return s
}
