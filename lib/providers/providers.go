package providers

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/everitoken/evtops/cmd/evtops/config"
	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

// LogLevel is the process log level; the CLI flips it to debug for verbose
// runs.
var LogLevel = new(slog.LevelVar)

func init() {
	LogLevel.Set(slog.LevelWarn)
}

// ProvideContext provides a base context
func ProvideContext() context.Context {
	return context.Background()
}

// ProvideLogger provides a structured logger
func ProvideLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: LogLevel,
	}))
}

// ProvideConfig provides the application configuration
func ProvideConfig() *config.Config {
	return config.Load()
}

// ProvideRuntime provides the container runtime handle
func ProvideRuntime() (runtime.Runtime, error) {
	return runtime.NewDocker()
}

// ProvideReconciler provides the reconciler with operator-facing name
// highlighting
func ProvideReconciler(rt runtime.Runtime) *reconcile.Reconciler {
	return reconcile.New(rt, reconcile.WithNameStyle(func(s string) string {
		return color.GreenString("%s", s)
	}))
}
