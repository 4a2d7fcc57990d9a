package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/world/chunk"
	"github.com/juniorbueno0/coppercaves/internal/core/world/nav"
	"github.com/juniorbueno0/coppercaves/internal/injector"
	"github.com/juniorbueno0/coppercaves/internal/sim"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, cleanup, err := injector.InitializeSimulation()
	if err != nil {
		fmt.Println("Error creating simulation:", err)
		os.Exit(1)
	}
	defer cleanup()

	logger := log.Provide().With(log.String("component", "driver"))
	watchChunks(s, logger)

	go drift(ctx, s)

	if err = s.Run(ctx); err != nil {
		logger.Error("Simulation failed", log.Error(err))
	}

	counts := s.EventCounts()
	metrics := s.Events().GetMetrics()
	logger.Info("Event totals",
		log.Uint64("published", metrics.Published),
		log.Uint64("handler_errors", metrics.Errors),
		log.Uint64("chunks_spawned", counts.Published[chunk.EventSpawned]),
		log.Uint64("chunks_despawned", counts.Published[chunk.EventDespawned]),
		log.Uint64("nav_rebuilds", counts.Published[nav.EventRebuilt]))
}

// watchChunks logs the streaming events a renderer would consume.
func watchChunks(s *sim.Simulation, logger log.Log) {
	_, _ = s.Events().Subscribe(chunk.EventSpawned, func(e bus.Event) error {
		ev := e.Data().(chunk.SpawnedEvent)
		logger.Debug("Chunk spawned", log.Stringer("coord", ev.Coord), log.Uint64("digest", ev.Digest))
		return nil
	})
	_, _ = s.Events().Subscribe(chunk.EventDespawned, func(e bus.Event) error {
		ev := e.Data().(chunk.DespawnedEvent)
		logger.Debug("Chunk despawned", log.Stringer("coord", ev.Coord), log.Int("handles", len(ev.Handles)))
		return nil
	})
}

// drift moves the viewpoint on a slow circle so chunks stream in and out
// without a camera.
func drift(ctx context.Context, s *sim.Simulation) {
	radius := float64(s.Geometry().ChunkPixels() * 4)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for angle := 0.0; ; angle += 0.02 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SetViewpoint(mgl64.Vec2{math.Cos(angle) * radius, math.Sin(angle) * radius})
		}
	}
}
