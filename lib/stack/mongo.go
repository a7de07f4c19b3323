package stack

import (
	"context"

	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

const (
	mongoDataMount = "/data/db"
	mongoPort      = 27017
)

// Mongo manages the mongodb service container.
type Mongo struct {
	service
}

// NewMongo creates a Mongo manager for the named container.
func NewMongo(rec *reconcile.Reconciler, name string) *Mongo {
	return &Mongo{service{Name: name, rec: rec}}
}

// Volumes lists the volumes declared for this service.
func (m *Mongo) Volumes() []string {
	return []string{DataVolume(m.Name)}
}

// Init pulls the mongo image and creates the data volume.
func (m *Mongo) Init(ctx context.Context) ([]reconcile.Result, error) {
	var results []reconcile.Result

	res, err := m.rec.EnsureImage(ctx, MongoImage)
	if err != nil {
		return results, err
	}
	results = append(results, res)

	res, err = m.rec.EnsureVolume(ctx, DataVolume(m.Name))
	if err != nil {
		return results, err
	}
	results = append(results, res)
	return results, nil
}

// MongoCreateOptions are the desired-spec parameters for a mongo create.
type MongoCreateOptions struct {
	Network string
	Host    string
	Port    int
}

// Create provisions the mongo container.
func (m *Mongo) Create(ctx context.Context, opts MongoCreateOptions) ([]reconcile.Result, error) {
	spec := runtime.ContainerSpec{
		Name:    m.Name,
		Image:   MongoImage,
		Network: opts.Network,
		Ports: []runtime.PortBinding{
			{HostIP: opts.Host, HostPort: opts.Port, ContainerPort: mongoPort},
		},
		Mounts: []runtime.Mount{
			{Volume: DataVolume(m.Name), Target: mongoDataMount},
		},
	}
	return m.rec.Create(ctx, spec, "mongo")
}

// Clear removes the container and, when full is set, the data volume.
func (m *Mongo) Clear(ctx context.Context, full bool) ([]reconcile.Result, error) {
	return m.rec.Clear(ctx, m.Name, m.Volumes(), full, false)
}
