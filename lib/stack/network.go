package stack

import (
	"context"

	"github.com/everitoken/evtops/lib/reconcile"
)

// Network manages the environment's bridge network.
type Network struct {
	Name string
	rec  *reconcile.Reconciler
}

// NewNetwork creates a Network manager for the named network.
func NewNetwork(rec *reconcile.Reconciler, name string) *Network {
	return &Network{Name: name, rec: rec}
}

// Init creates the network unless it already exists.
func (n *Network) Init(ctx context.Context) (reconcile.Result, error) {
	return n.rec.EnsureNetwork(ctx, n.Name)
}

// Clean deletes the network if present.
func (n *Network) Clean(ctx context.Context) (reconcile.Result, error) {
	return n.rec.RemoveNetwork(ctx, n.Name)
}
