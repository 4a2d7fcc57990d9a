package injector

import (
	"github.com/google/wire"
	"github.com/juniorbueno0/coppercaves/internal/config"
	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/sim"
)

// SimulationSet wires config, logging, the event bus and the simulation.
var SimulationSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	ProvideSimulation,
)

// ProvideConfig loads the file named by CONFIG_PATH, or the defaults.
func ProvideConfig() (*config.Config, error) {
	return config.LoadEnv()
}

// ProvideLogger builds the process logger. The cleanup flushes it.
func ProvideLogger(cfg *config.Config) (*log.Logger, func()) {
	logger := log.New(log.ParseLevel(cfg.Log.Level))
	return logger, func() { _ = logger.Sync() }
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

// ProvideSimulation builds the simulation. The cleanup detaches it from the bus.
func ProvideSimulation(cfg *config.Config, logger log.Log, events bus.EventBus) (*sim.Simulation, func(), error) {
	s, err := sim.New(cfg, logger, events)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
