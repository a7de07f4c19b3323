package stack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
	"github.com/everitoken/evtops/lib/runtime/runtimetest"
)

func TestChainImage(t *testing.T) {
	img, err := ChainImage("testnet")
	require.NoError(t, err)
	assert.Equal(t, EvtImage, img)

	img, err = ChainImage("mainnet")
	require.NoError(t, err)
	assert.Equal(t, EvtMainnetImage, img)

	_, err = ChainImage("devnet")
	assert.Error(t, err)
}

func TestEvtdEntrypoint(t *testing.T) {
	tests := []struct {
		name string
		opts EvtdCreateOptions
		want []string
	}{
		{
			name: "plain node",
			opts: EvtdCreateOptions{},
			want: []string{
				"evtd.sh",
				"--http-server-address=0.0.0.0:8888",
				"--p2p-listen-endpoint=0.0.0.0:7888",
			},
		},
		{
			name: "postgres without password",
			opts: EvtdCreateOptions{PostgresName: "pg", PostgresDB: "evt"},
			want: []string{
				"evtd.sh",
				"--http-server-address=0.0.0.0:8888",
				"--p2p-listen-endpoint=0.0.0.0:7888",
				"--plugin=evt::postgres_plugin",
				"--plugin=evt::history_plugin",
				"--plugin=evt::history_api_plugin",
				"--postgres-uri=postgresql://postgres@pg:5432/evt",
			},
		},
		{
			name: "postgres with password",
			opts: EvtdCreateOptions{PostgresName: "pg", PostgresDB: "evt", PostgresPass: "s3cret"},
			want: []string{
				"evtd.sh",
				"--http-server-address=0.0.0.0:8888",
				"--p2p-listen-endpoint=0.0.0.0:7888",
				"--plugin=evt::postgres_plugin",
				"--plugin=evt::history_plugin",
				"--plugin=evt::history_api_plugin",
				"--postgres-uri=postgresql://postgres:s3cret@pg:5432/evt",
			},
		},
		{
			name: "extra passthrough arguments",
			opts: EvtdCreateOptions{ExtraArgs: []string{"--charge-free-mode", "--loadtest-mode"}},
			want: []string{
				"evtd.sh",
				"--http-server-address=0.0.0.0:8888",
				"--p2p-listen-endpoint=0.0.0.0:7888",
				"--charge-free-mode",
				"--loadtest-mode",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.entrypoint())
		})
	}
}

func TestEvtdPortsZeroDisables(t *testing.T) {
	opts := EvtdCreateOptions{Host: "127.0.0.1", HTTPPort: 8888, P2PPort: 0}
	ports := opts.ports()
	require.Len(t, ports, 1)
	assert.Equal(t, 8888, ports[0].HostPort)
	assert.Equal(t, evtdHTTPPort, ports[0].ContainerPort)

	opts = EvtdCreateOptions{Host: "127.0.0.1"}
	assert.Empty(t, opts.ports())
}

func TestParseSnapshotFields(t *testing.T) {
	output := `producer snapshot:
|->snapshot_name : /opt/evt/snapshots/snapshot-0001.bin
|->head_block_id : 0000abcd
|->head_block_num : 43210
|->head_block_time : 2019-06-01T10:00:00
trailing noise`

	fields := ParseSnapshotFields(output)
	assert.Equal(t, map[string]string{
		"snapshot_name":   "/opt/evt/snapshots/snapshot-0001.bin",
		"head_block_id":   "0000abcd",
		"head_block_num":  "43210",
		"head_block_time": "2019-06-01T10:00:00",
	}, fields)

	assert.Empty(t, ParseSnapshotFields("no fields here"))
}

func TestEvtdCreateRequiresRunningPostgres(t *testing.T) {
	f := runtimetest.New()
	f.Images[EvtImage] = true
	f.Networks["evt-net"] = true
	f.Volumes["evtd-data-volume"] = true
	f.Volumes["evtd-snapshots-volume"] = true
	f.Containers["pg"] = runtime.StateStopped

	evtd := NewEvtd(reconcile.New(f), "evtd")
	results, err := evtd.Create(context.Background(), EvtdCreateOptions{
		Chain:        "testnet",
		Network:      "evt-net",
		PostgresName: "pg",
		PostgresDB:   "evt",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, reconcile.Refused, results[0].Outcome)
	assert.Contains(t, results[0].Message, "not running")
	assert.Empty(t, f.Mutations)
}

// With the whole environment missing, the hint points at `evtd init`, not
// at the postgres wiring.
func TestEvtdCreateGateRunsBeforePostgresCheck(t *testing.T) {
	f := runtimetest.New()

	evtd := NewEvtd(reconcile.New(f), "evtd")
	results, err := evtd.Create(context.Background(), EvtdCreateOptions{
		Chain:        "testnet",
		Network:      "evt-net",
		PostgresName: "pg",
		PostgresDB:   "evt",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, reconcile.Refused, results[0].Outcome)
	assert.Contains(t, results[0].Message, "run `evtd init` first")
	assert.Empty(t, f.Mutations)
}

func TestEvtdCreateWiresPostgresPlugins(t *testing.T) {
	f := runtimetest.New()
	f.Images[EvtImage] = true
	f.Networks["evt-net"] = true
	f.Volumes["evtd-data-volume"] = true
	f.Volumes["evtd-snapshots-volume"] = true
	f.Containers["pg"] = runtime.StateRunning

	evtd := NewEvtd(reconcile.New(f), "evtd")
	results, err := evtd.Create(context.Background(), EvtdCreateOptions{
		Chain:        "testnet",
		Network:      "evt-net",
		Host:         "127.0.0.1",
		HTTPPort:     8888,
		P2PPort:      7888,
		PostgresName: "pg",
		PostgresDB:   "evt",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Message, "postgres_plugin")
	assert.Equal(t, reconcile.Done, results[1].Outcome)
	assert.Equal(t, []string{"create container evtd"}, f.Mutations)
}

func TestExportReversibleRefusedWhileRunning(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtd"] = runtime.StateRunning
	f.Volumes["evtd-data-volume"] = true

	evtd := NewEvtd(reconcile.New(f), "evtd")
	res, err := evtd.ExportReversible(context.Background(), "rev.logs")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "still running")
	assert.Empty(t, f.TaskSpecs)
}

func TestExportReversibleRunsTaskWithNodeImage(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtd"] = runtime.StateStopped
	f.Volumes["evtd-data-volume"] = true
	f.TaskResult = runtime.TaskResult{Logs: "node_management_success"}

	evtd := NewEvtd(reconcile.New(f), "evtd")
	res, err := evtd.ExportReversible(context.Background(), "rev.logs")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)

	require.Len(t, f.TaskSpecs, 1)
	spec := f.TaskSpecs[0]
	// The task reuses the image of the existing container.
	assert.Equal(t, "image-of-evtd", spec.Image)
	require.Len(t, spec.Mounts, 1)
	assert.Equal(t, "evtd-data-volume", spec.Mounts[0].Volume)
	assert.Contains(t, spec.Entrypoint[2], "--export-reversible-blocks=/opt/evt/data/reversible/rev.logs")
}

// A task that completes without printing the success marker is reported as a
// failure with the raw log shown, never as an error.
func TestImportReversibleMarkerMissing(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtd"] = runtime.StateStopped
	f.Volumes["evtd-data-volume"] = true
	f.TaskResult = runtime.TaskResult{Logs: "failed to open backup file"}

	evtd := NewEvtd(reconcile.New(f), "evtd")
	res, err := evtd.ImportReversible(context.Background(), "rev.logs")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "import reversible blocks failed")
	assert.Contains(t, res.Message, "failed to open backup file")
}

func TestSnapshotRequiresRunningNode(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtd"] = runtime.StateStopped

	evtd := NewEvtd(reconcile.New(f), "evtd")
	_, res, err := evtd.Snapshot(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "cannot create snapshot")
}

func TestSnapshotParsesProducerOutput(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtd"] = runtime.StateRunning
	f.ExecResults["/opt/evt/bin/evtc"] = runtime.ExecResult{
		Output: "|->snapshot_name : /opt/evt/snapshots/snap.bin\n|->head_block_num : 7\n",
	}

	evtd := NewEvtd(reconcile.New(f), "evtd")
	fields, res, err := evtd.Snapshot(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)
	assert.Equal(t, "7", fields["head_block_num"])
}

func TestUploadSnapshotBuildsUploaderTask(t *testing.T) {
	f := runtimetest.New()
	f.TaskResult = runtime.TaskResult{ExitCode: 0, Logs: "uploaded"}

	evtd := NewEvtd(reconcile.New(f), "evtd")
	fields := map[string]string{
		"snapshot_name":   "/opt/evt/snapshots/snap.bin",
		"head_block_id":   "abcd",
		"head_block_num":  "7",
		"head_block_time": "2019-06-01T10:00:00",
	}
	res, err := evtd.UploadSnapshot(context.Background(), fields, SnapshotUploadOptions{
		AWSKey: "k", AWSSecret: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)

	require.Len(t, f.TaskSpecs, 1)
	spec := f.TaskSpecs[0]
	assert.Equal(t, SnapshotImage, spec.Image)
	assert.Contains(t, spec.Cmd, "--file=/data/snap.bin")
	assert.Contains(t, spec.Cmd, "--block-num=7")
	require.Len(t, spec.Mounts, 1)
	assert.Equal(t, "evtd-snapshots-volume", spec.Mounts[0].Volume)
}

func TestUploadSnapshotWithoutName(t *testing.T) {
	f := runtimetest.New()
	evtd := NewEvtd(reconcile.New(f), "evtd")

	res, err := evtd.UploadSnapshot(context.Background(), map[string]string{}, SnapshotUploadOptions{
		AWSKey: "k", AWSSecret: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Empty(t, f.TaskSpecs)
}

// Missing credentials refuse the upload outright instead of launching an
// uploader task that is bound to fail.
func TestUploadSnapshotWithoutCredentials(t *testing.T) {
	f := runtimetest.New()
	evtd := NewEvtd(reconcile.New(f), "evtd")
	fields := map[string]string{"snapshot_name": "/opt/evt/snapshots/snap.bin"}

	res, err := evtd.UploadSnapshot(context.Background(), fields, SnapshotUploadOptions{AWSKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "AWS key or secret is empty")
	assert.Empty(t, f.TaskSpecs)
}
