package stack

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"time"

	"github.com/samber/lo"

	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

const (
	evtdDataMount      = "/opt/evt/data"
	evtdSnapshotsMount = "/opt/evt/snapshots"
	evtdHTTPPort       = 8888
	evtdP2PPort        = 7888
	evtdSocket         = "unix:///opt/evt/data/evtd.sock"
	reversibleFolder   = "/opt/evt/data/reversible"

	// taskSuccessMarker is printed by evtd maintenance commands on clean
	// completion; its absence in a task log means failure.
	taskSuccessMarker = "node_management_success"
)

// ChainImage resolves the evtd image for a chain type (testnet or mainnet).
func ChainImage(chain string) (string, error) {
	switch chain {
	case "testnet":
		return EvtImage, nil
	case "mainnet":
		return EvtMainnetImage, nil
	default:
		return "", fmt.Errorf("unknown chain type %q, expect testnet or mainnet", chain)
	}
}

// DefaultReversibleFile names the reversible-blocks backup written today.
func DefaultReversibleFile() string {
	return fmt.Sprintf("rev-%s.logs", time.Now().Format("2006-01-02"))
}

// Evtd manages the node daemon container.
type Evtd struct {
	service
}

// NewEvtd creates an Evtd manager for the named container.
func NewEvtd(rec *reconcile.Reconciler, name string) *Evtd {
	return &Evtd{service{Name: name, rec: rec}}
}

// Volumes lists the volumes declared for this service.
func (e *Evtd) Volumes() []string {
	return []string{DataVolume(e.Name), SnapshotsVolume(e.Name)}
}

// Init creates the declared volumes and reports when no evt image is
// present. Images are deliberately not pulled here: operators choose between
// the testnet and mainnet image themselves.
func (e *Evtd) Init(ctx context.Context) ([]reconcile.Result, error) {
	results, err := e.checkChainImages(ctx)
	if err != nil {
		return results, err
	}

	for _, vol := range e.Volumes() {
		res, err := e.rec.EnsureVolume(ctx, vol)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Evtd) checkChainImages(ctx context.Context) ([]reconcile.Result, error) {
	rt := e.rec.Runtime()
	present := 0
	for _, img := range []string{EvtImage, EvtMainnetImage} {
		obs, err := rt.Probe(ctx, runtime.KindImage, img)
		if err != nil {
			return nil, err
		}
		if obs.Exists() {
			present++
		}
	}
	if present > 0 {
		return nil, nil
	}
	return []reconcile.Result{{
		Outcome: reconcile.Refused,
		Message: fmt.Sprintf("Neither find image: %s or %s, please pull one first",
			e.rec.Style(EvtImage), e.rec.Style(EvtMainnetImage)),
	}}, nil
}

// EvtdCreateOptions are the desired-spec parameters for an evtd create.
type EvtdCreateOptions struct {
	Chain        string
	Network      string
	Host         string
	HTTPPort     int // 0 leaves the rpc port unexposed
	P2PPort      int // 0 leaves the p2p port unexposed
	PostgresName string
	PostgresDB   string // enables the postgres and history plugins when set
	PostgresPass string
	ExtraArgs    []string
}

// entrypoint assembles the evtd launch command for the desired options.
func (o EvtdCreateOptions) entrypoint() []string {
	args := []string{
		"evtd.sh",
		fmt.Sprintf("--http-server-address=0.0.0.0:%d", evtdHTTPPort),
		fmt.Sprintf("--p2p-listen-endpoint=0.0.0.0:%d", evtdP2PPort),
	}
	if o.PostgresDB != "" {
		args = append(args,
			"--plugin=evt::postgres_plugin",
			"--plugin=evt::history_plugin",
			"--plugin=evt::history_api_plugin",
		)
		if o.PostgresPass == "" {
			args = append(args, fmt.Sprintf("--postgres-uri=postgresql://postgres@%s:%d/%s",
				o.PostgresName, postgresPort, o.PostgresDB))
		} else {
			args = append(args, fmt.Sprintf("--postgres-uri=postgresql://postgres:%s@%s:%d/%s",
				o.PostgresPass, o.PostgresName, postgresPort, o.PostgresDB))
		}
	}
	return append(args, o.ExtraArgs...)
}

// ports maps the desired host bindings; a zero port disables the binding.
func (o EvtdCreateOptions) ports() []runtime.PortBinding {
	all := []runtime.PortBinding{
		{HostIP: o.Host, HostPort: o.HTTPPort, ContainerPort: evtdHTTPPort},
		{HostIP: o.Host, HostPort: o.P2PPort, ContainerPort: evtdP2PPort},
	}
	return lo.Filter(all, func(p runtime.PortBinding, _ int) bool {
		return p.HostPort != 0
	})
}

// Create provisions the evtd container. Enabling the postgres plugins
// requires the postgres container to be up before evtd is created, since the
// node refuses to start without its history store.
func (e *Evtd) Create(ctx context.Context, opts EvtdCreateOptions) ([]reconcile.Result, error) {
	image, err := ChainImage(opts.Chain)
	if err != nil {
		return nil, err
	}

	spec := runtime.ContainerSpec{
		Name:    e.Name,
		Image:   image,
		Network: opts.Network,
		Ports:   opts.ports(),
		Mounts: []runtime.Mount{
			{Volume: DataVolume(e.Name), Target: evtdDataMount},
			{Volume: SnapshotsVolume(e.Name), Target: evtdSnapshotsMount},
		},
		Entrypoint: opts.entrypoint(),
	}

	// The prerequisite gate goes first so a bare environment points the
	// operator at `evtd init`, not at the postgres wiring.
	refused, err := e.rec.CheckPrerequisites(ctx, spec, "evtd")
	if err != nil {
		return nil, err
	}
	if refused != nil {
		return []reconcile.Result{*refused}, nil
	}

	var results []reconcile.Result
	if opts.PostgresDB != "" {
		obs, err := e.rec.Runtime().Probe(ctx, runtime.KindContainer, opts.PostgresName)
		if err != nil {
			return nil, err
		}
		switch obs.State {
		case runtime.StateAbsent:
			return []reconcile.Result{{
				Outcome: reconcile.Refused,
				Message: fmt.Sprintf("%s container is not existed, please run `postgres create` first", e.rec.Style(opts.PostgresName)),
			}}, nil
		case runtime.StateStopped:
			return []reconcile.Result{{
				Outcome: reconcile.Refused,
				Message: fmt.Sprintf("%s container is not running, please run it first", e.rec.Style(opts.PostgresName)),
			}}, nil
		}
		results = append(results, reconcile.Result{
			Outcome: reconcile.Skipped,
			Message: fmt.Sprintf("%s, %s, %s are enabled",
				e.rec.Style("postgres_plugin"), e.rec.Style("history_plugin"), e.rec.Style("history_api_plugin")),
		})
	}

	created, err := e.rec.Create(ctx, spec, "evtd")
	return append(results, created...), err
}

// Clear removes the container and, when full is set, the declared volumes.
func (e *Evtd) Clear(ctx context.Context, full bool) ([]reconcile.Result, error) {
	return e.rec.Clear(ctx, e.Name, e.Volumes(), full, false)
}

// ExportReversible writes the reversible blocks into a backup file inside
// the data volume through a disposable task container running the same image
// as the node.
func (e *Evtd) ExportReversible(ctx context.Context, file string) (reconcile.Result, error) {
	return e.reversibleTask(ctx, "export",
		fmt.Sprintf("mkdir -p %[1]s && /opt/evt/bin/evtd.sh --export-reversible-blocks=%[1]s/%[2]s", reversibleFolder, file))
}

// ImportReversible restores reversible blocks from a backup file inside the
// data volume.
func (e *Evtd) ImportReversible(ctx context.Context, file string) (reconcile.Result, error) {
	return e.reversibleTask(ctx, "import",
		fmt.Sprintf("evtd.sh --import-reversible-blocks=%s/%s", reversibleFolder, file))
}

func (e *Evtd) reversibleTask(ctx context.Context, verb, command string) (reconcile.Result, error) {
	obs, err := e.probe(ctx)
	if err != nil {
		return reconcile.Result{}, err
	}
	switch obs.State {
	case runtime.StateAbsent:
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is not existed", e.rec.Style(e.Name)),
		}, nil
	case runtime.StateRunning:
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is still running, cannot %s reversible blocks", e.rec.Style(e.Name), verb),
		}, nil
	}

	rt := e.rec.Runtime()
	vobs, err := rt.Probe(ctx, runtime.KindVolume, DataVolume(e.Name))
	if err != nil {
		return reconcile.Result{}, err
	}
	if !vobs.Exists() {
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s volume is not existed", e.rec.Style(DataVolume(e.Name))),
		}, nil
	}

	// The task reuses the stopped container's image so export and import
	// always run the binary version that wrote the data.
	image, err := rt.ContainerImage(ctx, e.Name)
	if err != nil {
		return reconcile.Result{}, err
	}

	report, err := e.rec.RunTask(ctx, runtime.TaskSpec{
		Image:      image,
		Entrypoint: []string{"/bin/bash", "-c", command},
		Mounts: []runtime.Mount{
			{Volume: DataVolume(e.Name), Target: evtdDataMount},
		},
	}, taskSuccessMarker)
	if err != nil {
		return reconcile.Result{}, err
	}

	if !report.Succeeded {
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s reversible blocks failed\n\n%s", verb, report.Logs),
		}, nil
	}
	return reconcile.Result{
		Outcome: reconcile.Done,
		Message: fmt.Sprintf("%s reversible blocks successfully\n\n%s", verb, report.Logs),
	}, nil
}

var snapshotFieldPattern = regexp.MustCompile(`\|->(\w+) : (.*)`)

// ParseSnapshotFields extracts the field table the producer snapshot command
// prints as `|->name : value` lines.
func ParseSnapshotFields(output string) map[string]string {
	fields := map[string]string{}
	for _, m := range snapshotFieldPattern.FindAllStringSubmatch(output, -1) {
		fields[m[1]] = m[2]
	}
	return fields
}

// Snapshot asks the running node to produce a snapshot and returns the
// parsed field table.
func (e *Evtd) Snapshot(ctx context.Context, withPostgres bool) (map[string]string, reconcile.Result, error) {
	obs, err := e.probe(ctx)
	if err != nil {
		return nil, reconcile.Result{}, err
	}
	switch obs.State {
	case runtime.StateAbsent:
		return nil, reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is not existed", e.rec.Style(e.Name)),
		}, nil
	case runtime.StateStopped:
		return nil, reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is not running, cannot create snapshot", e.rec.Style(e.Name)),
		}, nil
	}

	cmd := []string{"/opt/evt/bin/evtc", "-u", evtdSocket, "producer", "snapshot"}
	if withPostgres {
		cmd = append(cmd, "-p")
	}
	out, err := e.rec.Runtime().Exec(ctx, e.Name, cmd)
	if err != nil {
		return nil, reconcile.Result{}, err
	}

	return ParseSnapshotFields(out.Output), reconcile.Result{Outcome: reconcile.Done}, nil
}

// SnapshotUploadOptions carry the credentials and metadata for uploading a
// produced snapshot from the snapshots volume.
type SnapshotUploadOptions struct {
	AWSKey    string
	AWSSecret string
}

// UploadSnapshot ships a produced snapshot to the object store through a
// disposable uploader container with the snapshots volume mounted; the
// snapshot file only exists inside that volume.
func (e *Evtd) UploadSnapshot(ctx context.Context, fields map[string]string, opts SnapshotUploadOptions) (reconcile.Result, error) {
	name, ok := fields["snapshot_name"]
	if !ok {
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: "snapshot output carries no snapshot_name, cannot upload",
		}, nil
	}
	if opts.AWSKey == "" || opts.AWSSecret == "" {
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: "AWS key or secret is empty, cannot upload to S3",
		}, nil
	}

	args := []string{
		fmt.Sprintf("--file=/data/%s", path.Base(name)),
		fmt.Sprintf("--block-id=%s", fields["head_block_id"]),
		fmt.Sprintf("--block-num=%s", fields["head_block_num"]),
		fmt.Sprintf("--block-time=%s", fields["head_block_time"]),
		fmt.Sprintf("--aws-key=%s", opts.AWSKey),
		fmt.Sprintf("--aws-secret=%s", opts.AWSSecret),
	}

	report, err := e.rec.RunTask(ctx, runtime.TaskSpec{
		Image: SnapshotImage,
		Cmd:   args,
		Mounts: []runtime.Mount{
			{Volume: SnapshotsVolume(e.Name), Target: "/data"},
		},
	}, "")
	if err != nil {
		return reconcile.Result{}, err
	}

	outcome := reconcile.Done
	if !report.Succeeded {
		outcome = reconcile.Refused
	}
	return reconcile.Result{Outcome: outcome, Message: report.Logs}, nil
}

// FetchSnapshot downloads a published snapshot into the snapshots volume
// through a disposable fetcher container.
func (e *Evtd) FetchSnapshot(ctx context.Context, snapshot string) (reconcile.Result, error) {
	report, err := e.rec.RunTask(ctx, runtime.TaskSpec{
		Image: SnapshotImage,
		Cmd: []string{
			"python3", "snapshot_fetch.py",
			fmt.Sprintf("--name=%s", snapshot),
			fmt.Sprintf("--file=/data/%s", snapshot),
		},
		Mounts: []runtime.Mount{
			{Volume: SnapshotsVolume(e.Name), Target: "/data"},
		},
	}, "")
	if err != nil {
		return reconcile.Result{}, err
	}

	outcome := reconcile.Done
	if !report.Succeeded {
		outcome = reconcile.Refused
	}
	return reconcile.Result{Outcome: outcome, Message: report.Logs}, nil
}
