package runtime

import (
	"errors"
	"testing"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
)

func TestExecCreateErrorMapping(t *testing.T) {
	err := execCreateError("pg", errdefs.NotFound(errors.New("no such container")))
	assert.ErrorIs(t, err, ErrNotFound)

	err = execCreateError("pg", errdefs.Conflict(errors.New("container pg is not running")))
	assert.ErrorIs(t, err, ErrNotRunning)

	err = execCreateError("pg", errors.New("cannot connect to the docker daemon"))
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotRunning)
}

func TestBuildContainerConfig(t *testing.T) {
	cfg, hostCfg, err := buildContainerConfig(ContainerSpec{
		Name:    "pg",
		Image:   "bitnami/postgresql:11.1.0",
		Network: "evt-net",
		Ports: []PortBinding{
			{HostIP: "127.0.0.1", HostPort: 5432, ContainerPort: 5432},
		},
		Mounts: []Mount{
			{Volume: "pg-data-volume", Target: "/bitnami"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, "bitnami/postgresql:11.1.0", cfg.Image)
	assert.Len(t, cfg.ExposedPorts, 1)
	assert.Equal(t, "evt-net", string(hostCfg.NetworkMode))
	assert.Len(t, hostCfg.Mounts, 1)
	assert.Equal(t, "pg-data-volume", hostCfg.Mounts[0].Source)
}
