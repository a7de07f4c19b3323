package cmd

import (
	"context"
	"log/slog"

	"github.com/everitoken/evtops/cmd/evtops/config"
	"github.com/everitoken/evtops/lib/reconcile"
)

// application holds the initialized components shared by every command.
type application struct {
	Ctx        context.Context
	Logger     *slog.Logger
	Config     *config.Config
	Reconciler *reconcile.Reconciler
}
