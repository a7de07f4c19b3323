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

func TestVolumeNames(t *testing.T) {
	assert.Equal(t, "evtd-data-volume", DataVolume("evtd"))
	assert.Equal(t, "pg-config-volume", ConfigVolume("pg"))
	assert.Equal(t, "evtd-snapshots-volume", SnapshotsVolume("evtd"))
}

func TestNetworkInitAndClean(t *testing.T) {
	f := runtimetest.New()
	net := NewNetwork(reconcile.New(f), "evt-net")
	ctx := context.Background()

	res, err := net.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)

	res, err = net.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Skipped, res.Outcome)

	res, err = net.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)

	res, err = net.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Skipped, res.Outcome)
	assert.Contains(t, res.Message, "not existed")
}

func TestMongoCreateSpec(t *testing.T) {
	f := runtimetest.New()
	f.Images[MongoImage] = true
	f.Networks["evt-net"] = true
	f.Volumes["mongo-data-volume"] = true

	mongo := NewMongo(reconcile.New(f), "mongo")
	results, err := mongo.Create(context.Background(), MongoCreateOptions{
		Network: "evt-net",
		Host:    "127.0.0.1",
		Port:    27017,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, reconcile.Done, results[0].Outcome)
	assert.Equal(t, []string{"create container mongo"}, f.Mutations)
}

func TestEvtwdCreateSpec(t *testing.T) {
	f := runtimetest.New()
	f.Images[EvtImage] = true
	f.Volumes["evtwd-data-volume"] = true

	wd := NewEvtwd(reconcile.New(f), "evtwd")
	results, err := wd.Create(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, reconcile.Done, results[0].Outcome)
}

func TestEvtwdClearForcesVolumeRemoval(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtwd"] = runtime.StateStopped
	f.Volumes["evtwd-data-volume"] = true

	wd := NewEvtwd(reconcile.New(f), "evtwd")
	results, err := wd.Clear(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// The wallet volume goes away even with a dangling reference on it.
	assert.Contains(t, f.Mutations, "force-remove volume evtwd-data-volume")
	assert.NotContains(t, f.Volumes, "evtwd-data-volume")
}

func TestEvtcRequiresRunningWallet(t *testing.T) {
	f := runtimetest.New()
	wd := NewEvtwd(reconcile.New(f), "evtwd")

	_, res, err := wd.Evtc(context.Background(), []string{"get", "domain", "test"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "run `evtwd init` first")

	f.Containers["evtwd"] = runtime.StateStopped
	_, res, err = wd.Evtc(context.Background(), []string{"get", "domain", "test"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "not running")
}

func TestEvtcRunsWalletClient(t *testing.T) {
	f := runtimetest.New()
	f.Containers["evtwd"] = runtime.StateRunning
	f.ExecResults["/opt/evt/bin/evtc"] = runtime.ExecResult{Output: "wallet: ok\n"}

	wd := NewEvtwd(reconcile.New(f), "evtwd")
	out, res, err := wd.Evtc(context.Background(), []string{"wallet", "list"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)
	assert.Equal(t, "wallet: ok\n", out)
}

func TestEvtdInitReportsMissingImages(t *testing.T) {
	f := runtimetest.New()
	evtd := NewEvtd(reconcile.New(f), "evtd")

	results, err := evtd.Init(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Message, "please pull one first")
	// Volumes are still created; only images stay the operator's call.
	assert.Contains(t, f.Volumes, "evtd-data-volume")
	assert.Contains(t, f.Volumes, "evtd-snapshots-volume")
}
