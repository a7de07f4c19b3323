package runtime

import (
	"context"
	"io"
)

// Kind identifies the family of a managed runtime resource.
type Kind string

const (
	KindContainer Kind = "container"
	KindVolume    Kind = "volume"
	KindNetwork   Kind = "network"
	KindImage     Kind = "image"
)

// State is the observed lifecycle state of a resource. Volumes, networks
// and images only ever observe Absent or Stopped (present).
type State int

const (
	StateAbsent State = iota
	StateStopped
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "absent"
	}
}

// Observation is the result of a single existence probe. Status carries the
// raw runtime status string for containers ("exited", "created", ...).
type Observation struct {
	Kind   Kind
	Name   string
	State  State
	Status string
}

// Exists reports whether the resource was observed at all.
func (o Observation) Exists() bool {
	return o.State != StateAbsent
}

// PortBinding publishes a container port on a host address.
type PortBinding struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Proto         string
}

// Mount binds a named volume into a container.
type Mount struct {
	Volume   string
	Target   string
	ReadOnly bool
}

// ContainerSpec is the desired configuration for a container create.
// Immutable once submitted.
type ContainerSpec struct {
	Name       string
	Image      string
	Network    string
	Ports      []PortBinding
	Mounts     []Mount
	Entrypoint []string
	Cmd        []string
}

// TaskSpec describes a disposable one-shot container: run a single command
// to completion and discard the container. When AutoRemove is set the
// runtime reaps the container itself and no logs are collected.
type TaskSpec struct {
	Image      string
	Entrypoint []string
	Cmd        []string
	Mounts     []Mount
	AutoRemove bool
}

// TaskResult is the exit of a disposable task.
type TaskResult struct {
	ExitCode int
	Logs     string
}

// ExecResult is the exit of an exec inside a running container.
type ExecResult struct {
	ExitCode int
	Output   string
}

// PortDetail is one published port of a running container.
type PortDetail struct {
	IP          string
	PublicPort  int
	PrivatePort int
	Proto       string
}

// Detail is the inspect summary shown to operators.
type Detail struct {
	ID      string
	Image   string
	ImageID string
	Command string
	Network string
	Status  string
	Ports   []PortDetail
	Mounts  []string
}

// Runtime is the container-runtime boundary. It is the authoritative source
// of truth and is queried fresh on every call; implementations never cache
// state across invocations. A NotFound from the runtime is folded into an
// Absent observation, every other error propagates as-is.
type Runtime interface {
	Probe(ctx context.Context, kind Kind, name string) (Observation, error)

	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string, force bool) error

	CreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error

	PullImage(ctx context.Context, ref string) error

	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error

	// ContainerLogs returns a demultiplexed log stream: the last tail
	// lines, kept open when follow is set.
	ContainerLogs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error)

	// Exec runs cmd inside a running container and buffers its output.
	Exec(ctx context.Context, name string, cmd []string) (ExecResult, error)

	// RunTask launches a disposable task container and blocks until it
	// exits.
	RunTask(ctx context.Context, spec TaskSpec) (TaskResult, error)

	ContainerDetail(ctx context.Context, name string) (*Detail, error)

	// ContainerImage returns the image reference an existing container was
	// created from.
	ContainerImage(ctx context.Context, name string) (string, error)
}
