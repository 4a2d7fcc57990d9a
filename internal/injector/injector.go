//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"github.com/juniorbueno0/coppercaves/internal/sim"
)

func InitializeSimulation() (*sim.Simulation, func(), error) {
	wire.Build(SimulationSet)
	return nil, nil, nil
}
