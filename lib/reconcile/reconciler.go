// Package reconcile compares desired resource state against what the
// container runtime reports and issues the single corrective transition each
// operation allows. Repeating an operation whose desired state is already
// reached is a no-op that reports status instead of erroring, so operators
// can re-run commands freely during environment bring-up.
package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/distribution/reference"

	"github.com/everitoken/evtops/lib/logger"
	"github.com/everitoken/evtops/lib/runtime"
)

// Outcome classifies how an operation resolved.
type Outcome int

const (
	// Done means a corrective runtime call was issued.
	Done Outcome = iota
	// Skipped means the desired state was already reached; nothing was
	// issued.
	Skipped
	// Refused means the observed state conflicts with the operation;
	// nothing was issued.
	Refused
)

// Result is the operator-facing outcome of one reconciliation step.
// Conflicting state and expected absence are Results, never errors; an error
// return always means the runtime itself failed.
type Result struct {
	Outcome Outcome
	Message string
}

// Mutated reports whether the step changed runtime state.
func (r Result) Mutated() bool {
	return r.Outcome == Done
}

// Reconciler issues at most one corrective transition per operation against
// a runtime that is re-read on every call.
type Reconciler struct {
	rt    runtime.Runtime
	style func(string) string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithNameStyle sets the function used to highlight resource names in
// operator-facing messages.
func WithNameStyle(f func(string) string) Option {
	return func(r *Reconciler) { r.style = f }
}

// New creates a Reconciler over rt.
func New(rt runtime.Runtime, opts ...Option) *Reconciler {
	r := &Reconciler{
		rt:    rt,
		style: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Runtime exposes the underlying runtime for flows that go beyond single
// state transitions (exec, disposable tasks, detail).
func (r *Reconciler) Runtime() runtime.Runtime {
	return r.rt
}

// Style applies the configured name highlighting, for callers composing
// their own operator-facing messages.
func (r *Reconciler) Style(s string) string {
	return r.style(s)
}

// EnsureVolume creates the named volume unless it already exists.
func (r *Reconciler) EnsureVolume(ctx context.Context, name string) (Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindVolume, name)
	if err != nil {
		return Result{}, err
	}
	if obs.Exists() {
		return Result{Skipped, fmt.Sprintf("%s volume is already existed, no need to create one", r.style(name))}, nil
	}
	if err := r.rt.CreateVolume(ctx, name); err != nil {
		return Result{}, err
	}
	return Result{Done, fmt.Sprintf("%s volume is created", r.style(name))}, nil
}

// EnsureNetwork creates the named network unless it already exists.
func (r *Reconciler) EnsureNetwork(ctx context.Context, name string) (Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindNetwork, name)
	if err != nil {
		return Result{}, err
	}
	if obs.Exists() {
		return Result{Skipped, fmt.Sprintf("%s network is already existed, no need to create one", r.style(name))}, nil
	}
	if err := r.rt.CreateNetwork(ctx, name); err != nil {
		return Result{}, err
	}
	return Result{Done, fmt.Sprintf("%s network is created", r.style(name))}, nil
}

// RemoveNetwork deletes the named network if present.
func (r *Reconciler) RemoveNetwork(ctx context.Context, name string) (Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindNetwork, name)
	if err != nil {
		return Result{}, err
	}
	if !obs.Exists() {
		return Result{Skipped, fmt.Sprintf("%s network is not existed", r.style(name))}, nil
	}
	if err := r.rt.RemoveNetwork(ctx, name); err != nil {
		return Result{}, err
	}
	return Result{Done, fmt.Sprintf("%s network is deleted", r.style(name))}, nil
}

// validateImageRef rejects malformed image references before they reach the
// runtime.
func validateImageRef(ref string) error {
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	return nil
}

// EnsureImage pulls the image unless it is already present.
func (r *Reconciler) EnsureImage(ctx context.Context, ref string) (Result, error) {
	if err := validateImageRef(ref); err != nil {
		return Result{}, err
	}
	obs, err := r.rt.Probe(ctx, runtime.KindImage, ref)
	if err != nil {
		return Result{}, err
	}
	if obs.Exists() {
		return Result{Skipped, fmt.Sprintf("%s is already existed, no need to fetch again", r.style(ref))}, nil
	}
	log := logger.FromContext(ctx)
	log.InfoContext(ctx, "pulling image", "ref", ref)
	if err := r.rt.PullImage(ctx, ref); err != nil {
		return Result{}, err
	}
	return Result{Done, fmt.Sprintf("%s is pulled", r.style(ref))}, nil
}

// Create provisions the container described by spec. All prerequisites
// (image, network, declared volumes) are checked as an all-or-nothing gate
// before anything is touched. A stopped container with the same name is
// removed first so a stale spec cannot survive a recreate; a running one
// refuses the operation.
func (r *Reconciler) Create(ctx context.Context, spec runtime.ContainerSpec, group string) ([]Result, error) {
	if err := validateImageRef(spec.Image); err != nil {
		return nil, err
	}

	refused, err := r.CheckPrerequisites(ctx, spec, group)
	if err != nil {
		return nil, err
	}
	if refused != nil {
		return []Result{*refused}, nil
	}

	obs, err := r.rt.Probe(ctx, runtime.KindContainer, spec.Name)
	if err != nil {
		return nil, err
	}

	var results []Result
	switch obs.State {
	case runtime.StateRunning:
		return []Result{{Refused, fmt.Sprintf("%s container is already existed and running, cannot restart, run `%s stop` first", r.style(spec.Name), group)}}, nil
	case runtime.StateStopped:
		// Ports, volumes or entrypoint may have changed since the old
		// container was created; never restart it in place.
		results = append(results, Result{Done, fmt.Sprintf("%s container is existed but not running, try to remove old container and start a new one", r.style(spec.Name))})
		if err := r.rt.RemoveContainer(ctx, spec.Name); err != nil {
			return results, err
		}
	}

	if _, err := r.rt.CreateContainer(ctx, spec); err != nil {
		return results, err
	}
	results = append(results, Result{Done, fmt.Sprintf("%s container is created", r.style(spec.Name))})
	return results, nil
}

// CheckPrerequisites runs the all-or-nothing prerequisite gate on its own
// and returns the refusal when anything is missing, for flows that need the
// gate before further state checks of their own. Create runs it implicitly.
func (r *Reconciler) CheckPrerequisites(ctx context.Context, spec runtime.ContainerSpec, group string) (*Result, error) {
	missing, err := r.prerequisitesMissing(ctx, spec)
	if err != nil {
		return nil, err
	}
	if missing {
		return &Result{Refused, fmt.Sprintf("Some necessary elements are not found, please run `%s init` first", group)}, nil
	}
	return nil, nil
}

func (r *Reconciler) prerequisitesMissing(ctx context.Context, spec runtime.ContainerSpec) (bool, error) {
	probes := []struct {
		kind runtime.Kind
		name string
	}{{runtime.KindImage, spec.Image}}
	if spec.Network != "" {
		probes = append(probes, struct {
			kind runtime.Kind
			name string
		}{runtime.KindNetwork, spec.Network})
	}
	for _, m := range spec.Mounts {
		probes = append(probes, struct {
			kind runtime.Kind
			name string
		}{runtime.KindVolume, m.Volume})
	}

	for _, p := range probes {
		obs, err := r.rt.Probe(ctx, p.kind, p.name)
		if err != nil {
			return false, err
		}
		if !obs.Exists() {
			return true, nil
		}
	}
	return false, nil
}

// Start starts the named container if it exists and is not running.
func (r *Reconciler) Start(ctx context.Context, name string) (Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindContainer, name)
	if err != nil {
		return Result{}, err
	}
	switch obs.State {
	case runtime.StateAbsent:
		return Result{Refused, fmt.Sprintf("%s container is not existed", r.style(name))}, nil
	case runtime.StateRunning:
		return Result{Skipped, fmt.Sprintf("%s container is already running and cannot start", r.style(name))}, nil
	}
	if err := r.rt.StartContainer(ctx, name); err != nil {
		return Result{}, err
	}
	return Result{Done, fmt.Sprintf("%s container is started", r.style(name))}, nil
}

// Stop stops the named container if it is running.
func (r *Reconciler) Stop(ctx context.Context, name string) (Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindContainer, name)
	if err != nil {
		return Result{}, err
	}
	switch obs.State {
	case runtime.StateAbsent:
		return Result{Refused, fmt.Sprintf("%s container is not existed, please start first", r.style(name))}, nil
	case runtime.StateStopped:
		return Result{Skipped, fmt.Sprintf("%s container is already stopped", r.style(name))}, nil
	}
	if err := r.rt.StopContainer(ctx, name); err != nil {
		return Result{}, err
	}
	return Result{Done, fmt.Sprintf("%s container is stopped", r.style(name))}, nil
}

// Clear removes the named container and, when full is set, the declared
// volumes as well. A running container refuses the whole operation. With
// force set, volume removal proceeds even when a dangling container
// reference still holds the volume.
func (r *Reconciler) Clear(ctx context.Context, name string, volumes []string, full, force bool) ([]Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindContainer, name)
	if err != nil {
		return nil, err
	}

	var results []Result
	switch obs.State {
	case runtime.StateRunning:
		return []Result{{Refused, fmt.Sprintf("%s container is still running, cannot clean", r.style(name))}}, nil
	case runtime.StateStopped:
		if err := r.rt.RemoveContainer(ctx, name); err != nil {
			return results, err
		}
		results = append(results, Result{Done, fmt.Sprintf("%s container is removed", r.style(name))})
	case runtime.StateAbsent:
		results = append(results, Result{Skipped, fmt.Sprintf("%s container is not existed", r.style(name))})
	}

	if !full {
		return results, nil
	}

	for _, vol := range volumes {
		vobs, err := r.rt.Probe(ctx, runtime.KindVolume, vol)
		if err != nil {
			return results, err
		}
		if !vobs.Exists() {
			results = append(results, Result{Skipped, fmt.Sprintf("%s volume is not existed", r.style(vol))})
			continue
		}
		if err := r.rt.RemoveVolume(ctx, vol, force); err != nil {
			return results, err
		}
		results = append(results, Result{Done, fmt.Sprintf("%s volume is removed", r.style(vol))})
	}
	return results, nil
}

// Logs opens the container's log stream. The caller owns the returned
// reader when the result is Done.
func (r *Reconciler) Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindContainer, name)
	if err != nil {
		return nil, Result{}, err
	}
	if !obs.Exists() {
		return nil, Result{Refused, fmt.Sprintf("%s container is not existed, please start first", r.style(name))}, nil
	}
	rc, err := r.rt.ContainerLogs(ctx, name, tail, follow)
	if err != nil {
		return nil, Result{}, err
	}
	return rc, Result{Outcome: Done}, nil
}

// Detail returns the inspect summary of the named container.
func (r *Reconciler) Detail(ctx context.Context, name string) (*runtime.Detail, Result, error) {
	obs, err := r.rt.Probe(ctx, runtime.KindContainer, name)
	if err != nil {
		return nil, Result{}, err
	}
	if !obs.Exists() {
		return nil, Result{Refused, fmt.Sprintf("%s container is not found", r.style(name))}, nil
	}
	detail, err := r.rt.ContainerDetail(ctx, name)
	if err != nil {
		return nil, Result{}, err
	}
	return detail, Result{Outcome: Done}, nil
}
