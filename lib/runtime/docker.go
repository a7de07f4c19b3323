package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/everitoken/evtops/lib/logger"
)

// dockerRuntime implements Runtime over the Docker Engine API.
type dockerRuntime struct {
	cli *client.Client
}

// NewDocker creates a Runtime backed by the local Docker daemon, configured
// from the environment.
func NewDocker() (Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &dockerRuntime{cli: cli}, nil
}

func (d *dockerRuntime) Probe(ctx context.Context, kind Kind, name string) (Observation, error) {
	obs := Observation{Kind: kind, Name: name}

	var err error
	switch kind {
	case KindContainer:
		var info types.ContainerJSON
		info, err = d.cli.ContainerInspect(ctx, name)
		if err == nil {
			obs.Status = info.State.Status
			if info.State.Running {
				obs.State = StateRunning
			} else {
				obs.State = StateStopped
			}
			return obs, nil
		}
	case KindVolume:
		_, err = d.cli.VolumeInspect(ctx, name)
	case KindNetwork:
		_, err = d.cli.NetworkInspect(ctx, name, types.NetworkInspectOptions{})
	case KindImage:
		_, _, err = d.cli.ImageInspectWithRaw(ctx, name)
	default:
		return obs, fmt.Errorf("unknown resource kind %q", kind)
	}

	if err == nil {
		obs.State = StateStopped
		return obs, nil
	}
	if errdefs.IsNotFound(err) {
		obs.State = StateAbsent
		return obs, nil
	}
	return obs, fmt.Errorf("probe %s %s: %w", kind, name, err)
}

func (d *dockerRuntime) CreateVolume(ctx context.Context, name string) error {
	if _, err := d.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return fmt.Errorf("create volume %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) RemoveVolume(ctx context.Context, name string, force bool) error {
	if err := d.cli.VolumeRemove(ctx, name, force); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("volume %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("remove volume %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) CreateNetwork(ctx context.Context, name string) error {
	if _, err := d.cli.NetworkCreate(ctx, name, types.NetworkCreate{}); err != nil {
		return fmt.Errorf("create network %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) RemoveNetwork(ctx context.Context, name string) error {
	if err := d.cli.NetworkRemove(ctx, name); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("network %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("remove network %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) PullImage(ctx context.Context, ref string) error {
	log := logger.FromContext(ctx)
	log.DebugContext(ctx, "pulling image", "ref", ref)

	rc, err := d.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer rc.Close()

	// The pull is not complete until the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}

func (d *dockerRuntime) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	cfg, hostCfg, err := buildContainerConfig(spec)
	if err != nil {
		return "", err
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

func (d *dockerRuntime) StartContainer(ctx context.Context, name string) error {
	if err := d.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) StopContainer(ctx context.Context, name string) error {
	if err := d.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return fmt.Errorf("stop container %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) RemoveContainer(ctx context.Context, name string) error {
	if err := d.cli.ContainerRemove(ctx, name, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}

func (d *dockerRuntime) ContainerLogs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error) {
	info, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("inspect container %s: %w", name, err)
	}

	// A non-positive tail keeps the whole log.
	tailOpt := "all"
	if tail > 0 {
		tailOpt = strconv.Itoa(tail)
	}
	rc, err := d.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tailOpt,
		Follow:     follow,
	})
	if err != nil {
		return nil, fmt.Errorf("container logs %s: %w", name, err)
	}

	// TTY containers produce a raw stream; everything else is multiplexed
	// and has to go through stdcopy.
	if info.Config != nil && info.Config.Tty {
		return rc, nil
	}
	return demuxLogs(rc), nil
}

func (d *dockerRuntime) Exec(ctx context.Context, name string, cmd []string) (ExecResult, error) {
	exec, err := d.cli.ContainerExecCreate(ctx, name, types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, execCreateError(name, err)
	}

	resp, err := d.cli.ContainerExecAttach(ctx, exec.ID, types.ExecStartCheck{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec attach in %s: %w", name, err)
	}
	defer resp.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, resp.Reader); err != nil {
		return ExecResult{}, fmt.Errorf("exec read in %s: %w", name, err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec inspect in %s: %w", name, err)
	}

	return ExecResult{ExitCode: inspect.ExitCode, Output: out.String()}, nil
}

func (d *dockerRuntime) RunTask(ctx context.Context, spec TaskSpec) (TaskResult, error) {
	cfg := &container.Config{
		Image:      spec.Image,
		Entrypoint: strslice.StrSlice(spec.Entrypoint),
		Cmd:        strslice.StrSlice(spec.Cmd),
	}
	hostCfg := &container.HostConfig{
		AutoRemove: spec.AutoRemove,
		Mounts:     buildMounts(spec.Mounts),
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return TaskResult{}, fmt.Errorf("create task container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return TaskResult{}, fmt.Errorf("start task container: %w", err)
	}

	cond := container.WaitConditionNotRunning
	if spec.AutoRemove {
		cond = container.WaitConditionRemoved
	}

	var exit int
	waitCh, errCh := d.cli.ContainerWait(ctx, resp.ID, cond)
	select {
	case err := <-errCh:
		return TaskResult{}, fmt.Errorf("wait for task container: %w", err)
	case w := <-waitCh:
		exit = int(w.StatusCode)
	}

	if spec.AutoRemove {
		// The daemon reaped the container together with its logs.
		return TaskResult{ExitCode: exit}, nil
	}

	rc, err := d.ContainerLogs(ctx, resp.ID, 0, false)
	if err != nil {
		return TaskResult{}, err
	}
	logs, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return TaskResult{}, fmt.Errorf("read task logs: %w", err)
	}

	if err := d.RemoveContainer(ctx, resp.ID); err != nil {
		return TaskResult{}, err
	}

	return TaskResult{ExitCode: exit, Logs: string(logs)}, nil
}

func (d *dockerRuntime) ContainerDetail(ctx context.Context, name string) (*Detail, error) {
	list, err := d.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	// The name filter matches substrings; require the exact name.
	var found *types.Container
	for i, c := range list {
		for _, n := range c.Names {
			if n == "/"+name {
				found = &list[i]
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("container %s: %w", name, ErrNotFound)
	}

	detail := &Detail{
		ID:      found.ID,
		Image:   found.Image,
		ImageID: found.ImageID,
		Command: found.Command,
		Status:  found.Status,
	}
	if found.NetworkSettings != nil {
		nets := make([]string, 0, len(found.NetworkSettings.Networks))
		for n := range found.NetworkSettings.Networks {
			nets = append(nets, n)
		}
		sort.Strings(nets)
		if len(nets) > 0 {
			detail.Network = nets[0]
		}
	}
	for _, p := range found.Ports {
		detail.Ports = append(detail.Ports, PortDetail{
			IP:          p.IP,
			PublicPort:  int(p.PublicPort),
			PrivatePort: int(p.PrivatePort),
			Proto:       p.Type,
		})
	}
	for _, m := range found.Mounts {
		detail.Mounts = append(detail.Mounts, fmt.Sprintf("%s->%s", m.Name, m.Destination))
	}
	return detail, nil
}

func (d *dockerRuntime) ContainerImage(ctx context.Context, name string) (string, error) {
	info, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("container %s: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("inspect container %s: %w", name, err)
	}
	return info.Config.Image, nil
}

// execCreateError folds the daemon's exec-create failures onto the package
// sentinels: a missing container is ErrNotFound, the conflict a stopped
// container reports is ErrNotRunning.
func execCreateError(name string, err error) error {
	switch {
	case errdefs.IsNotFound(err):
		return fmt.Errorf("container %s: %w", name, ErrNotFound)
	case errdefs.IsConflict(err):
		return fmt.Errorf("container %s: %w", name, ErrNotRunning)
	}
	return fmt.Errorf("exec create in %s: %w", name, err)
}

func buildContainerConfig(spec ContainerSpec) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		proto := p.Proto
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("port %d/%s: %w", p.ContainerPort, proto, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostIP:   p.HostIP,
			HostPort: strconv.Itoa(p.HostPort),
		})
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Entrypoint:   strslice.StrSlice(spec.Entrypoint),
		Cmd:          strslice.StrSlice(spec.Cmd),
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Mounts:       buildMounts(spec.Mounts),
	}
	if spec.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(spec.Network)
	}
	return cfg, hostCfg, nil
}

func buildMounts(mounts []Mount) []mount.Mount {
	out := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, mount.Mount{
			Type:     mount.TypeVolume,
			Source:   m.Volume,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return out
}

// demuxLogs splits a multiplexed log stream through stdcopy, merging stdout
// and stderr into one readable stream.
func demuxLogs(rc io.ReadCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		rc.Close()
		pw.CloseWithError(err)
	}()
	return pr
}
