package systems

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
)

var (
	ErrDuplicateSystem = errors.New("systems: duplicate system name")
	ErrUnknownSystem   = errors.New("systems: unknown system")
)

// ManagerMetrics provides system manager statistics
type ManagerMetrics struct {
	RegisteredSystems uint32
	EnabledSystems    uint32
	Updates           uint64
	TotalUpdateTime   time.Duration
	AverageUpdateTime time.Duration
	SystemErrorCount  map[string]uint32
	LastUpdateTime    time.Time
}

type entry struct {
	system  System
	enabled bool
	metrics Metrics
}

// Manager runs systems in phase order, then registration order. A failing
// system is logged and counted; the rest of the tick still runs.
type Manager struct {
	entries []*entry
	byName  map[string]*entry
	logger  log.Log

	updates  uint64
	total    time.Duration
	last     time.Time
	errCount map[string]uint32
	onError  []func(string, error)
}

func NewManager(logger log.Log) *Manager {
	return &Manager{
		byName:   make(map[string]*entry),
		logger:   logger.With(log.String("component", "systems")),
		errCount: make(map[string]uint32),
	}
}

func (m *Manager) RegisterSystem(s System) error {
	if _, ok := m.byName[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, s.Name())
	}
	e := &entry{system: s, enabled: true}
	m.entries = append(m.entries, e)
	// Stable sort keeps registration order inside a phase.
	slices.SortStableFunc(m.entries, func(a, b *entry) int {
		return int(a.system.ExecutionPhase()) - int(b.system.ExecutionPhase())
	})
	m.byName[s.Name()] = e
	return nil
}

func (m *Manager) UnregisterSystem(name string) error {
	e, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	delete(m.byName, name)
	m.entries = slices.DeleteFunc(m.entries, func(x *entry) bool { return x == e })
	return nil
}

func (m *Manager) GetSystem(name string) (System, bool) {
	e, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return e.system, true
}

func (m *Manager) HasSystem(name string) bool {
	_, ok := m.byName[name]
	return ok
}

func (m *Manager) EnableSystem(name string) error  { return m.setEnabled(name, true) }
func (m *Manager) DisableSystem(name string) error { return m.setEnabled(name, false) }

func (m *Manager) setEnabled(name string, enabled bool) error {
	e, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	e.enabled = enabled
	return nil
}

// GetExecutionOrder lists enabled and disabled systems in run order.
func (m *Manager) GetExecutionOrder() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.system.Name()
	}
	return out
}

// OnSystemError registers a callback invoked for every failed Update.
func (m *Manager) OnSystemError(fn func(string, error)) {
	m.onError = append(m.onError, fn)
}

// Update runs one tick. It stops early only when ctx is done and returns the
// errors of all failed systems joined.
func (m *Manager) Update(ctx context.Context, tick Tick) error {
	start := time.Now()
	var all error
	for _, e := range m.entries {
		if !e.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(all, err)
		}
		name := e.system.Name()
		began := time.Now()
		err := e.system.Update(ctx, tick)
		e.metrics.record(began, time.Since(began), err)
		if err != nil {
			m.errCount[name]++
			all = errors.Join(all, fmt.Errorf("%s: %w", name, err))
			m.logger.Warn("System update failed",
				log.String("system", name),
				log.Stringer("phase", e.system.ExecutionPhase()),
				log.Uint64("tick", tick.Number),
				log.Error(err))
			for _, fn := range m.onError {
				fn(name, err)
			}
		}
	}
	m.updates++
	m.total += time.Since(start)
	m.last = start
	return all
}

func (m *Manager) GetSystemMetrics(name string) (Metrics, bool) {
	e, ok := m.byName[name]
	if !ok {
		return Metrics{}, false
	}
	return e.metrics, true
}

func (m *Manager) GetMetrics() ManagerMetrics {
	mm := ManagerMetrics{
		RegisteredSystems: uint32(len(m.entries)),
		Updates:           m.updates,
		TotalUpdateTime:   m.total,
		LastUpdateTime:    m.last,
		SystemErrorCount:  make(map[string]uint32, len(m.errCount)),
	}
	for _, e := range m.entries {
		if e.enabled {
			mm.EnabledSystems++
		}
	}
	if m.updates > 0 {
		mm.AverageUpdateTime = m.total / time.Duration(m.updates)
	}
	for k, v := range m.errCount {
		mm.SystemErrorCount[k] = v
	}
	return mm
}
