// Package stack declares the desired specs of the services that make up an
// EVT chain environment and drives their lifecycle through the reconciler.
package stack

import (
	"context"
	"io"

	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

// Images of the managed services.
const (
	PostgresImage   = "bitnami/postgresql:11.1.0"
	MongoImage      = "mongo:latest"
	EvtImage        = "everitoken/evt:latest"
	EvtMainnetImage = "everitoken/evt-mainnet:latest"
	SnapshotImage   = "everitoken/snapshot:latest"
)

// DataVolume returns the data volume name declared for a container.
func DataVolume(name string) string { return name + "-data-volume" }

// ConfigVolume returns the config volume name declared for a container.
func ConfigVolume(name string) string { return name + "-config-volume" }

// SnapshotsVolume returns the snapshots volume name declared for a container.
func SnapshotsVolume(name string) string { return name + "-snapshots-volume" }

// service carries the per-family lifecycle delegations shared by every
// managed container.
type service struct {
	Name string
	rec  *reconcile.Reconciler
}

func (s service) Start(ctx context.Context) (reconcile.Result, error) {
	return s.rec.Start(ctx, s.Name)
}

func (s service) Stop(ctx context.Context) (reconcile.Result, error) {
	return s.rec.Stop(ctx, s.Name)
}

func (s service) Logs(ctx context.Context, tail int, follow bool) (io.ReadCloser, reconcile.Result, error) {
	return s.rec.Logs(ctx, s.Name, tail, follow)
}

func (s service) Detail(ctx context.Context) (*runtime.Detail, reconcile.Result, error) {
	return s.rec.Detail(ctx, s.Name)
}

// probe observes the service container.
func (s service) probe(ctx context.Context) (runtime.Observation, error) {
	return s.rec.Runtime().Probe(ctx, runtime.KindContainer, s.Name)
}
