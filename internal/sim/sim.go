// Package sim owns the whole simulation state and drives it tick by tick.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/juniorbueno0/coppercaves/internal/config"
	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/systems"
	"github.com/juniorbueno0/coppercaves/internal/core/world/agent"
	"github.com/juniorbueno0/coppercaves/internal/core/world/chunk"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/nav"
	"github.com/juniorbueno0/coppercaves/internal/core/world/noise"
	"github.com/juniorbueno0/coppercaves/internal/core/world/pathfind"
	"github.com/juniorbueno0/coppercaves/internal/core/world/terrain"
)

// TickReport summarizes one tick.
type TickReport struct {
	Number        uint64
	Desired       int
	Chunks        chunk.Result
	Moves         nav.MoveReport
	Commands      []agent.CommandReport
	// Failed names the systems whose update returned an error.
	Failed        []string
	NavGeneration uint64
	Duration      time.Duration
	Err           error
}

// Simulation owns the chunk cache, the navigation grid, the agents and the
// inputs queued for the next tick. Input methods are safe to call from any
// goroutine; they are serialized with Tick.
type Simulation struct {
	mu sync.Mutex

	cfg    *config.Config
	logger log.Log
	events bus.EventBus

	geom      grid.Geometry
	sampler   *terrain.Sampler
	cache     *chunk.Cache
	nav       *nav.Grid
	occupancy *nav.Occupancy
	roster    *agent.Roster
	selection *agent.Selection
	commander *agent.Commander
	systems   *systems.Manager
	tally     *eventTally

	viewpoint mgl64.Vec2
	desired   chunk.Set
	commands  []grid.Cell

	tick    uint64
	report  TickReport
	running int32
}

// Option customizes a Simulation.
type Option func(*options)

type options struct {
	finder agent.Pathfinder
}

// WithPathfinder replaces the default A* collaborator.
func WithPathfinder(p agent.Pathfinder) Option {
	return func(o *options) { o.finder = p }
}

// New builds a simulation from cfg: terrain, chunk cache, a populated and
// built navigation grid, and the agents listed in cfg.Sim.AgentSpawn.
func New(cfg *config.Config, logger log.Log, events bus.EventBus, opts ...Option) (*Simulation, error) {
	o := options{finder: pathfind.New()}
	for _, opt := range opts {
		opt(&o)
	}

	table, err := terrain.FromConfig(cfg.Terrain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	seed := cfg.Noise.Seed
	if cfg.Noise.SeedPhrase != "" {
		seed = noise.SeedFromPhrase(cfg.Noise.SeedPhrase)
	}
	sampler := terrain.NewSampler(noise.New(seed, cfg.Noise.Scale), table)
	geom := grid.Geometry{ChunkSize: cfg.World.ChunkSize, TileSize: cfg.World.TileSize}

	s := &Simulation{
		cfg:       cfg,
		logger:    logger.With(log.String("component", "sim")),
		events:    events,
		geom:      geom,
		sampler:   sampler,
		roster:    agent.NewRoster(),
		selection: agent.NewSelection(),
		systems:   systems.NewManager(logger),
		tally:     newEventTally(logger.With(log.String("component", "sim_events"))),
	}
	if events != nil {
		events.AddObserver(s.tally)
	}
	s.cache = chunk.NewCache(chunk.Options{
		Geometry:        geom,
		RenderDistance:  cfg.World.RenderDistance,
		Extent:          cfg.World.MaxChunkExtent,
		Unbounded:       cfg.World.Unbounded,
		MaxLoadedChunks: cfg.Budget.MaxLoadedChunks,
		MaxContentItems: cfg.Budget.MaxContentItems,
		Workers:         cfg.Sim.Workers,
	}, sampler, logger, events)

	s.nav = nav.NewGrid(nav.Bounds{
		MinX:   cfg.Nav.MinX,
		MinY:   cfg.Nav.MinY,
		Width:  cfg.Nav.Width,
		Height: cfg.Nav.Height,
	}, logger, events)
	s.nav.Populate(sampler.Obstacle, cfg.Nav.DefaultCost)
	s.nav.Build()

	s.occupancy = nav.NewOccupancy(s.nav, logger)
	s.commander = agent.NewCommander(o.finder, s.roster, s.selection, logger)

	s.systems.OnSystemError(func(name string, _ error) {
		s.report.Failed = append(s.report.Failed, name)
	})
	for _, sys := range []systems.System{
		systems.Func("interest", systems.PhaseInterest, s.interest),
		systems.Func("reconcile", systems.PhaseReconcile, s.reconcile),
		systems.Func("movement", systems.PhaseMovement, s.movement),
		systems.Func("commands", systems.PhaseCommands, s.issueCommands),
	} {
		if err := s.systems.RegisterSystem(sys); err != nil {
			return nil, err
		}
	}

	for i, at := range cfg.Sim.AgentSpawn {
		name := fmt.Sprintf("worker-%d", i+1)
		if _, err := s.spawn(name, grid.Cell{X: at.X, Y: at.Y}); err != nil {
			s.logger.Warn("Initial agent not spawned",
				log.String("agent", name),
				log.Int("x", at.X),
				log.Int("y", at.Y),
				log.Error(err))
		}
	}

	s.logger.Info("Simulation created",
		log.Int64("seed", seed),
		log.Int("chunk_size", geom.ChunkSize),
		log.Int("render_distance", cfg.World.RenderDistance),
		log.Int("agents", s.roster.Len()))
	return s, nil
}

// SetViewpoint moves the streaming center. It is sampled once per tick.
func (s *Simulation) SetViewpoint(p mgl64.Vec2) {
	s.mu.Lock()
	s.viewpoint = p
	s.mu.Unlock()
}

func (s *Simulation) Viewpoint() mgl64.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewpoint
}

// ClickCell toggles a cell between wall and floor and rebuilds the
// navigation index. Occupied and out of bounds cells are left alone.
func (s *Simulation) ClickCell(c grid.Cell) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.occupancy.Toggle(c)
	if ok {
		s.logger.Debug("Cell toggled", log.Stringer("cell", c))
	}
	return ok
}

// ClickPixel is ClickCell for a world position.
func (s *Simulation) ClickPixel(p mgl64.Vec2) bool {
	return s.ClickCell(s.geom.PixelToCell(p))
}

// SelectAt toggles the selection of the agent standing on c and reports
// whether it is now selected.
func (s *Simulation) SelectAt(c grid.Cell) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.occupancy.OccupantAt(c)
	if !ok {
		return uuid.Nil, false, ErrNoAgentAtCell
	}
	return id, s.selection.Toggle(id), nil
}

// SpawnAgent places a new agent on a free passable cell.
func (s *Simulation) SpawnAgent(name string, c grid.Cell) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawn(name, c)
}

func (s *Simulation) spawn(name string, c grid.Cell) (uuid.UUID, error) {
	a := s.roster.Add(name, c)
	if _, err := s.occupancy.Place(a.ID, c); err != nil {
		s.roster.Remove(a.ID)
		return uuid.Nil, err
	}
	s.logger.Info("Agent spawned", log.String("agent", name), log.Stringer("cell", c))
	return a.ID, nil
}

// RemoveAgent frees the agent's cell and forgets it.
func (s *Simulation) RemoveAgent(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.occupancy.Remove(id); err != nil {
		return err
	}
	s.selection.Drop(id)
	s.roster.Remove(id)
	return nil
}

// CommandMove queues a move order for the selected agents. It is issued in
// the commands phase of the next tick, after the navigation index is fresh.
func (s *Simulation) CommandMove(target grid.Cell) {
	s.mu.Lock()
	s.commands = append(s.commands, target)
	s.mu.Unlock()
}

// Tick runs every phase once.
func (s *Simulation) Tick(ctx context.Context) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.tick++
	s.report = TickReport{Number: s.tick}
	err := s.systems.Update(ctx, systems.Tick{
		Number:    s.tick,
		DeltaTime: time.Second / time.Duration(max(s.cfg.Sim.TickRate, 1)),
	})
	s.report.Err = err
	s.report.Duration = time.Since(start)
	if ix, ierr := s.nav.Index(); ierr == nil {
		s.report.NavGeneration = ix.Generation()
	}
	return s.report
}

// Run ticks at cfg.Sim.TickRate until ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrAlreadyRunning
	}
	defer atomic.StoreInt32(&s.running, 0)

	interval := time.Second / time.Duration(max(s.cfg.Sim.TickRate, 1))
	s.logger.Info("Simulation started", log.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Simulation stopped", log.Uint64("ticks", s.Ticks()))
			return nil
		case <-ticker.C:
			report := s.Tick(ctx)
			if report.Err != nil && !errors.Is(report.Err, context.Canceled) {
				s.logger.Warn("Tick finished with errors",
					log.Uint64("tick", report.Number),
					log.Error(report.Err))
			}
		}
	}
}

func (s *Simulation) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// LastReport returns the report of the most recent tick.
func (s *Simulation) LastReport() TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *Simulation) interest(_ context.Context, _ systems.Tick) error {
	s.desired = chunk.Desired(s.geom, s.viewpoint, s.cfg.World.RenderDistance)
	s.report.Desired = s.desired.Len()
	return nil
}

func (s *Simulation) reconcile(ctx context.Context, _ systems.Tick) error {
	res, err := s.cache.Reconcile(ctx, s.desired)
	s.report.Chunks = res
	return err
}

func (s *Simulation) movement(_ context.Context, _ systems.Tick) error {
	for _, step := range s.commander.NextSteps() {
		s.occupancy.RequestMove(step.ID, step.To)
	}
	report := s.occupancy.Apply()
	s.commander.Resolve(report)
	s.report.Moves = report
	return nil
}

func (s *Simulation) issueCommands(_ context.Context, _ systems.Tick) error {
	if len(s.commands) == 0 {
		return nil
	}
	ix, err := s.nav.Index()
	if errors.Is(err, nav.ErrStaleIndex) {
		ix = s.nav.Build()
	}
	for _, target := range s.commands {
		s.report.Commands = append(s.report.Commands, s.commander.IssueMove(ix, target))
	}
	s.commands = s.commands[:0]
	return nil
}

// Close stops observing the event bus. The simulation must not tick after.
func (s *Simulation) Close() {
	if s.events != nil {
		s.events.RemoveObserver(s.tally)
	}
}

// EventCounts returns how many events of each type were published and how
// many had failing handlers.
func (s *Simulation) EventCounts() EventCounts { return s.tally.snapshot() }

func (s *Simulation) Geometry() grid.Geometry     { return s.geom }
func (s *Simulation) Sampler() *terrain.Sampler   { return s.sampler }
func (s *Simulation) Chunks() *chunk.Cache        { return s.cache }
func (s *Simulation) Nav() *nav.Grid              { return s.nav }
func (s *Simulation) Occupancy() *nav.Occupancy   { return s.occupancy }
func (s *Simulation) Roster() *agent.Roster       { return s.roster }
func (s *Simulation) Selection() *agent.Selection { return s.selection }
func (s *Simulation) Systems() *systems.Manager   { return s.systems }
func (s *Simulation) Events() bus.EventBus        { return s.events }
