package systems

import (
	"context"
	"time"
)

// System is one step of the simulation tick. Systems run to completion, one
// after another, on the tick goroutine.
type System interface {
	Name() string
	ExecutionPhase() ExecutionPhase
	Update(ctx context.Context, tick Tick) error
}

// ExecutionPhase orders systems within a tick. Lower phases run first.
type ExecutionPhase uint8

const (
	// PhaseInterest samples the viewpoint and computes the desired chunks.
	PhaseInterest ExecutionPhase = iota
	// PhaseReconcile evicts and spawns chunks.
	PhaseReconcile
	// PhaseMovement applies agent steps to occupancy with one rebuild.
	PhaseMovement
	// PhaseCommands issues queued path requests against the fresh index.
	PhaseCommands
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhaseInterest:
		return "interest"
	case PhaseReconcile:
		return "reconcile"
	case PhaseMovement:
		return "movement"
	case PhaseCommands:
		return "commands"
	default:
		return "unknown"
	}
}

// Tick identifies one run of all systems.
type Tick struct {
	Number    uint64
	DeltaTime time.Duration
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
}

func (m *Metrics) record(start time.Time, took time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += took
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	if m.ExecutionCount == 1 || took < m.MinExecutionTime {
		m.MinExecutionTime = took
	}
	m.LastExecutionTime = start
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}

type funcSystem struct {
	name  string
	phase ExecutionPhase
	fn    func(ctx context.Context, tick Tick) error
}

// Func adapts a function to a System.
func Func(name string, phase ExecutionPhase, fn func(ctx context.Context, tick Tick) error) System {
	return &funcSystem{name: name, phase: phase, fn: fn}
}

func (s *funcSystem) Name() string                   { return s.name }
func (s *funcSystem) ExecutionPhase() ExecutionPhase { return s.phase }
func (s *funcSystem) Update(ctx context.Context, tick Tick) error {
	return s.fn(ctx, tick)
}
