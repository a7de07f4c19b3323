// Package runtimetest provides an in-memory Runtime for exercising
// reconciliation logic without a daemon. Every mutating call is recorded so
// tests can assert exactly which transitions were issued, and in what order.
package runtimetest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/everitoken/evtops/lib/runtime"
)

// Fake implements runtime.Runtime against in-memory resource maps.
type Fake struct {
	Containers map[string]runtime.State
	Volumes    map[string]bool
	Networks   map[string]bool
	Images     map[string]bool

	// Mutations records every state-changing call as "verb kind name".
	Mutations []string

	// Logs is returned by ContainerLogs and as task logs.
	Logs string

	// ExecResults maps the first word of an exec command to its result.
	ExecResults map[string]runtime.ExecResult

	// TaskResult is returned by RunTask; TaskSpecs records the submitted
	// specs.
	TaskResult runtime.TaskResult
	TaskSpecs  []runtime.TaskSpec

	// Err, when set, is returned by every call to simulate an unreachable
	// runtime.
	Err error
}

// New returns an empty fake runtime.
func New() *Fake {
	return &Fake{
		Containers:  map[string]runtime.State{},
		Volumes:     map[string]bool{},
		Networks:    map[string]bool{},
		Images:      map[string]bool{},
		ExecResults: map[string]runtime.ExecResult{},
	}
}

func (f *Fake) record(verb string, kind runtime.Kind, name string) {
	f.Mutations = append(f.Mutations, fmt.Sprintf("%s %s %s", verb, kind, name))
}

func (f *Fake) Probe(ctx context.Context, kind runtime.Kind, name string) (runtime.Observation, error) {
	if f.Err != nil {
		return runtime.Observation{}, f.Err
	}
	obs := runtime.Observation{Kind: kind, Name: name, State: runtime.StateAbsent}
	switch kind {
	case runtime.KindContainer:
		if st, ok := f.Containers[name]; ok {
			obs.State = st
			obs.Status = st.String()
		}
	case runtime.KindVolume:
		if f.Volumes[name] {
			obs.State = runtime.StateStopped
		}
	case runtime.KindNetwork:
		if f.Networks[name] {
			obs.State = runtime.StateStopped
		}
	case runtime.KindImage:
		if f.Images[name] {
			obs.State = runtime.StateStopped
		}
	}
	return obs, nil
}

func (f *Fake) CreateVolume(ctx context.Context, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record("create", runtime.KindVolume, name)
	f.Volumes[name] = true
	return nil
}

func (f *Fake) RemoveVolume(ctx context.Context, name string, force bool) error {
	if f.Err != nil {
		return f.Err
	}
	if !f.Volumes[name] {
		return fmt.Errorf("volume %s: %w", name, runtime.ErrNotFound)
	}
	verb := "remove"
	if force {
		verb = "force-remove"
	}
	f.record(verb, runtime.KindVolume, name)
	delete(f.Volumes, name)
	return nil
}

func (f *Fake) CreateNetwork(ctx context.Context, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record("create", runtime.KindNetwork, name)
	f.Networks[name] = true
	return nil
}

func (f *Fake) RemoveNetwork(ctx context.Context, name string) error {
	if f.Err != nil {
		return f.Err
	}
	if !f.Networks[name] {
		return fmt.Errorf("network %s: %w", name, runtime.ErrNotFound)
	}
	f.record("remove", runtime.KindNetwork, name)
	delete(f.Networks, name)
	return nil
}

func (f *Fake) PullImage(ctx context.Context, ref string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record("pull", runtime.KindImage, ref)
	f.Images[ref] = true
	return nil
}

func (f *Fake) CreateContainer(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.record("create", runtime.KindContainer, spec.Name)
	f.Containers[spec.Name] = runtime.StateStopped
	return "id-" + spec.Name, nil
}

func (f *Fake) StartContainer(ctx context.Context, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record("start", runtime.KindContainer, name)
	f.Containers[name] = runtime.StateRunning
	return nil
}

func (f *Fake) StopContainer(ctx context.Context, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record("stop", runtime.KindContainer, name)
	f.Containers[name] = runtime.StateStopped
	return nil
}

func (f *Fake) RemoveContainer(ctx context.Context, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record("remove", runtime.KindContainer, name)
	delete(f.Containers, name)
	return nil
}

func (f *Fake) ContainerLogs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.Containers[name]; !ok {
		return nil, fmt.Errorf("container %s: %w", name, runtime.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(f.Logs)), nil
}

func (f *Fake) Exec(ctx context.Context, name string, cmd []string) (runtime.ExecResult, error) {
	if f.Err != nil {
		return runtime.ExecResult{}, f.Err
	}
	if f.Containers[name] != runtime.StateRunning {
		return runtime.ExecResult{}, fmt.Errorf("container %s: %w", name, runtime.ErrNotRunning)
	}
	if len(cmd) > 0 {
		if res, ok := f.ExecResults[cmd[0]]; ok {
			return res, nil
		}
	}
	return runtime.ExecResult{}, nil
}

func (f *Fake) RunTask(ctx context.Context, spec runtime.TaskSpec) (runtime.TaskResult, error) {
	if f.Err != nil {
		return runtime.TaskResult{}, f.Err
	}
	f.TaskSpecs = append(f.TaskSpecs, spec)
	f.record("task", runtime.KindContainer, spec.Image)
	return f.TaskResult, nil
}

func (f *Fake) ContainerDetail(ctx context.Context, name string) (*runtime.Detail, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.Containers[name]; !ok {
		return nil, fmt.Errorf("container %s: %w", name, runtime.ErrNotFound)
	}
	return &runtime.Detail{ID: "id-" + name, Status: f.Containers[name].String()}, nil
}

func (f *Fake) ContainerImage(ctx context.Context, name string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	if _, ok := f.Containers[name]; !ok {
		return "", fmt.Errorf("container %s: %w", name, runtime.ErrNotFound)
	}
	return "image-of-" + name, nil
}
