package stack

import (
	"context"
	"fmt"

	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

const evtwdSocket = "/opt/evt/data/wallet/evtwd.sock"

// Evtwd manages the wallet daemon container.
type Evtwd struct {
	service
}

// NewEvtwd creates an Evtwd manager for the named container.
func NewEvtwd(rec *reconcile.Reconciler, name string) *Evtwd {
	return &Evtwd{service{Name: name, rec: rec}}
}

// Volumes lists the volumes declared for this service.
func (w *Evtwd) Volumes() []string {
	return []string{DataVolume(w.Name)}
}

// Init creates the data volume and reports when no evt image is present.
func (w *Evtwd) Init(ctx context.Context) ([]reconcile.Result, error) {
	results, err := (&Evtd{w.service}).checkChainImages(ctx)
	if err != nil {
		return results, err
	}

	res, err := w.rec.EnsureVolume(ctx, DataVolume(w.Name))
	if err != nil {
		return results, err
	}
	return append(results, res), nil
}

// Create provisions the wallet daemon container. The wallet talks over a
// unix socket in its data volume and joins no network.
func (w *Evtwd) Create(ctx context.Context) ([]reconcile.Result, error) {
	spec := runtime.ContainerSpec{
		Name:  w.Name,
		Image: EvtImage,
		Mounts: []runtime.Mount{
			{Volume: DataVolume(w.Name), Target: evtdDataMount},
		},
		Entrypoint: []string{"evtwd.sh", fmt.Sprintf("--unix-socket-path=%s", evtwdSocket)},
	}
	return w.rec.Create(ctx, spec, "evtwd")
}

// Clear removes the container and, when full is set, the data volume. The
// wallet volume is force-removed: a dangling container reference must not
// keep key material around after a clear.
func (w *Evtwd) Clear(ctx context.Context, full bool) ([]reconcile.Result, error) {
	return w.rec.Clear(ctx, w.Name, w.Volumes(), full, true)
}

// Evtc runs a wallet client command inside the running evtwd container and
// returns its buffered output.
func (w *Evtwd) Evtc(ctx context.Context, args []string) (string, reconcile.Result, error) {
	obs, err := w.probe(ctx)
	if err != nil {
		return "", reconcile.Result{}, err
	}
	switch obs.State {
	case runtime.StateAbsent:
		return "", reconcile.Result{
			Outcome: reconcile.Refused,
			Message: "Some necessary elements are not found, please run `evtwd init` first",
		}, nil
	case runtime.StateStopped:
		return "", reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is not running, please start it first", w.rec.Style(w.Name)),
		}, nil
	}

	cmd := append([]string{"/opt/evt/bin/evtc", fmt.Sprintf("--wallet-url=unix://%s", evtwdSocket)}, args...)
	out, err := w.rec.Runtime().Exec(ctx, w.Name, cmd)
	if err != nil {
		return "", reconcile.Result{}, err
	}
	return out.Output, reconcile.Result{Outcome: reconcile.Done}, nil
}
