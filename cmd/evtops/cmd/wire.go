//go:build wireinject

package cmd

import (
	"github.com/google/wire"

	"github.com/everitoken/evtops/lib/providers"
)

// initializeApp is the injector function
func initializeApp() (*application, error) {
	panic(wire.Build(
		providers.ProvideContext,
		providers.ProvideLogger,
		providers.ProvideConfig,
		providers.ProvideRuntime,
		providers.ProvideReconciler,
		wire.Struct(new(application), "*"),
	))
}
