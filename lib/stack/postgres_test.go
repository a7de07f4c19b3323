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

func newPostgresFake() *runtimetest.Fake {
	f := runtimetest.New()
	f.Images[PostgresImage] = true
	f.Networks["evt-net"] = true
	f.Volumes["pg-data-volume"] = true
	f.Volumes["pg-config-volume"] = true
	return f
}

func TestPostgresVolumes(t *testing.T) {
	pg := NewPostgres(reconcile.New(runtimetest.New()), "pg")
	assert.Equal(t, []string{"pg-data-volume", "pg-config-volume"}, pg.Volumes())
}

func TestPostgresInitCreatesMissingPieces(t *testing.T) {
	f := runtimetest.New()
	pg := NewPostgres(reconcile.New(f), "pg")

	results, err := pg.Init(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{
		"pull image " + PostgresImage,
		"create volume pg-data-volume",
		"create volume pg-config-volume",
	}, f.Mutations)

	// Second init is a pure no-op.
	f.Mutations = nil
	results, err = pg.Init(context.Background())
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, reconcile.Skipped, r.Outcome)
	}
	assert.Empty(t, f.Mutations)
}

func TestPostgresCreateWritesHBABootstrap(t *testing.T) {
	f := newPostgresFake()
	pg := NewPostgres(reconcile.New(f), "pg")

	results, err := pg.Create(context.Background(), PostgresCreateOptions{
		Network: "evt-net",
		Host:    "127.0.0.1",
		Port:    5432,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	require.Len(t, f.TaskSpecs, 1)
	task := f.TaskSpecs[0]
	assert.Equal(t, PostgresImage, task.Image)
	assert.True(t, task.AutoRemove)
	assert.Contains(t, task.Entrypoint[2], "pg_hba.conf")
	assert.Contains(t, task.Entrypoint[2], "0.0.0.0/0               trust")
	require.Len(t, task.Mounts, 1)
	assert.Equal(t, "pg-config-volume", task.Mounts[0].Volume)
}

func TestPostgresCreateWithPasswordUsesMD5(t *testing.T) {
	f := newPostgresFake()
	pg := NewPostgres(reconcile.New(f), "pg")

	results, err := pg.Create(context.Background(), PostgresCreateOptions{
		Network:  "evt-net",
		Host:     "127.0.0.1",
		Port:     5432,
		Password: "hunter2",
	})
	require.NoError(t, err)

	var noticed bool
	for _, r := range results {
		if r.Outcome == reconcile.Skipped {
			noticed = true
		}
	}
	assert.True(t, noticed, "password notice expected")

	require.Len(t, f.TaskSpecs, 1)
	assert.Contains(t, f.TaskSpecs[0].Entrypoint[2], "0.0.0.0/0               md5")
}

func TestPostgresCreateRefusedSkipsBootstrap(t *testing.T) {
	f := newPostgresFake()
	f.Containers["pg"] = runtime.StateRunning
	pg := NewPostgres(reconcile.New(f), "pg")

	results, err := pg.Create(context.Background(), PostgresCreateOptions{
		Network: "evt-net", Host: "127.0.0.1", Port: 5432,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, reconcile.Refused, results[0].Outcome)
	assert.Empty(t, f.TaskSpecs)
}

func TestHBAConf(t *testing.T) {
	conf := hbaConf("md5")
	assert.Contains(t, conf, "local   all             all                                     trust")
	assert.Contains(t, conf, "0.0.0.0/0               md5")
}

func TestCreateDBAlreadyExists(t *testing.T) {
	f := newPostgresFake()
	f.Containers["pg"] = runtime.StateRunning
	f.ExecResults["psql"] = runtime.ExecResult{Output: " t\n(1 row)\n"}
	pg := NewPostgres(reconcile.New(f), "pg")

	res, err := pg.CreateDB(context.Background(), "evt")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Skipped, res.Outcome)
	assert.Contains(t, res.Message, "already created")
}

func TestCreateDBNotRunning(t *testing.T) {
	f := newPostgresFake()
	f.Containers["pg"] = runtime.StateStopped
	pg := NewPostgres(reconcile.New(f), "pg")

	res, err := pg.CreateDB(context.Background(), "evt")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
	assert.Contains(t, res.Message, "cannot create database")
}

func TestUpdatePasswordChecksMarker(t *testing.T) {
	f := newPostgresFake()
	f.Containers["pg"] = runtime.StateRunning
	f.ExecResults["psql"] = runtime.ExecResult{Output: "ALTER ROLE\n"}
	pg := NewPostgres(reconcile.New(f), "pg")

	res, err := pg.UpdatePassword(context.Background(), "newpass")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Done, res.Outcome)

	f.ExecResults["psql"] = runtime.ExecResult{Output: "ERROR: syntax error\n"}
	res, err = pg.UpdatePassword(context.Background(), "newpass")
	require.NoError(t, err)
	assert.Equal(t, reconcile.Refused, res.Outcome)
}
