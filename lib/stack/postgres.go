package stack

import (
	"context"
	"fmt"
	"strings"

	"github.com/everitoken/evtops/lib/logger"
	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

const (
	postgresDataMount   = "/bitnami"
	postgresConfigMount = "/opt/bitnami/postgresql/conf"
	postgresPort        = 5432
)

// Postgres manages the postgres service container.
type Postgres struct {
	service
}

// NewPostgres creates a Postgres manager for the named container.
func NewPostgres(rec *reconcile.Reconciler, name string) *Postgres {
	return &Postgres{service{Name: name, rec: rec}}
}

// Volumes lists the volumes declared for this service.
func (p *Postgres) Volumes() []string {
	return []string{DataVolume(p.Name), ConfigVolume(p.Name)}
}

// Init pulls the postgres image and creates the declared volumes, skipping
// whatever already exists.
func (p *Postgres) Init(ctx context.Context) ([]reconcile.Result, error) {
	var results []reconcile.Result

	res, err := p.rec.EnsureImage(ctx, PostgresImage)
	if err != nil {
		return results, err
	}
	results = append(results, res)

	for _, vol := range p.Volumes() {
		res, err := p.rec.EnsureVolume(ctx, vol)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// PostgresCreateOptions are the desired-spec parameters for a postgres
// create.
type PostgresCreateOptions struct {
	Network  string
	Host     string
	Port     int
	Password string
}

// Create provisions the postgres container and then writes the default
// pg_hba.conf into the config volume through a disposable task. The
// bootstrap step is best-effort: the container has not been started yet, so
// a follow-up create can repair it.
func (p *Postgres) Create(ctx context.Context, opts PostgresCreateOptions) ([]reconcile.Result, error) {
	spec := runtime.ContainerSpec{
		Name:    p.Name,
		Image:   PostgresImage,
		Network: opts.Network,
		Ports: []runtime.PortBinding{
			{HostIP: opts.Host, HostPort: opts.Port, ContainerPort: postgresPort},
		},
		Mounts: []runtime.Mount{
			{Volume: DataVolume(p.Name), Target: postgresDataMount},
			{Volume: ConfigVolume(p.Name), Target: postgresConfigMount},
		},
	}

	results, err := p.rec.Create(ctx, spec, "postgres")
	if err != nil {
		return results, err
	}
	if len(results) == 0 || !results[len(results)-1].Mutated() {
		return results, nil
	}

	method := "trust"
	if opts.Password != "" {
		method = "md5"
		results = append(results, reconcile.Result{
			Outcome: reconcile.Skipped,
			Message: fmt.Sprintf("%s: Password is set only if it's the first time creating postgres, otherwise it will reuse old password. Please use %s command.",
				p.rec.Style("NOTICE"), p.rec.Style("postgres updpass")),
		})
	}

	results = append(results, reconcile.Result{
		Outcome: reconcile.Done,
		Message: fmt.Sprintf("writing default %s", p.rec.Style("pg_hba.conf")),
	})

	task := runtime.TaskSpec{
		Image:      PostgresImage,
		Entrypoint: []string{"/bin/bash", "-c", fmt.Sprintf("cat > %s/pg_hba.conf <<'EOF'\n%s\nEOF", postgresConfigMount, hbaConf(method))},
		Mounts: []runtime.Mount{
			{Volume: ConfigVolume(p.Name), Target: postgresConfigMount},
		},
		AutoRemove: true,
	}
	if _, err := p.rec.RunTask(ctx, task, ""); err != nil {
		// Best-effort: the primary container is not started yet.
		log := logger.FromContext(ctx)
		log.WarnContext(ctx, "pg_hba bootstrap failed", "error", err)
	}

	return results, nil
}

// hbaConf renders the authentication policy written on create. Remote
// connections use the given method, local ones are always trusted.
func hbaConf(method string) string {
	return fmt.Sprintf(`# TYPE  DATABASE        USER            ADDRESS                 METHOD
local   all             all                                     trust
host    all             all             127.0.0.1/32            trust
host    all             all             ::1/128                 trust
host    all             all             0.0.0.0/0               %s`, method)
}

// CreateDB creates a database inside the running postgres container unless
// it already exists.
func (p *Postgres) CreateDB(ctx context.Context, dbname string) (reconcile.Result, error) {
	if res, ok, err := p.requireRunning(ctx, "cannot create database"); !ok {
		return res, err
	}

	rt := p.rec.Runtime()
	check := fmt.Sprintf("SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname='%s');", dbname)
	out, err := rt.Exec(ctx, p.Name, []string{"psql", "-U", "postgres", "-c", check})
	if err != nil {
		return reconcile.Result{}, err
	}
	if strings.Contains(out.Output, "t\n") {
		return reconcile.Result{
			Outcome: reconcile.Skipped,
			Message: fmt.Sprintf("%s database is already created, skip creation", p.rec.Style(dbname)),
		}, nil
	}

	out, err = rt.Exec(ctx, p.Name, []string{"psql", "-U", "postgres", "-c", fmt.Sprintf("CREATE DATABASE %s", dbname)})
	if err != nil {
		return reconcile.Result{}, err
	}
	if !strings.Contains(out.Output, "CREATE DATABASE") {
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("creating database %s failed\n%s", p.rec.Style(dbname), out.Output),
		}, nil
	}
	return reconcile.Result{
		Outcome: reconcile.Done,
		Message: fmt.Sprintf("Created database: %s in postgres", p.rec.Style(dbname)),
	}, nil
}

// UpdatePassword alters the postgres superuser password in the running
// container.
func (p *Postgres) UpdatePassword(ctx context.Context, password string) (reconcile.Result, error) {
	if res, ok, err := p.requireRunning(ctx, "cannot update password"); !ok {
		return res, err
	}

	alter := fmt.Sprintf("ALTER USER postgres WITH PASSWORD '%s';", password)
	out, err := p.rec.Runtime().Exec(ctx, p.Name, []string{"psql", "-U", "postgres", "-c", alter})
	if err != nil {
		return reconcile.Result{}, err
	}
	if !strings.Contains(out.Output, "ALTER ROLE") {
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("updating password failed\n%s", out.Output),
		}, nil
	}
	return reconcile.Result{Outcome: reconcile.Done, Message: "Update password successfully"}, nil
}

// Clear removes the container and, when full is set, the declared volumes.
func (p *Postgres) Clear(ctx context.Context, full bool) ([]reconcile.Result, error) {
	return p.rec.Clear(ctx, p.Name, p.Volumes(), full, false)
}

func (p *Postgres) requireRunning(ctx context.Context, action string) (reconcile.Result, bool, error) {
	obs, err := p.probe(ctx)
	if err != nil {
		return reconcile.Result{}, false, err
	}
	switch obs.State {
	case runtime.StateAbsent:
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is not existed", p.rec.Style(p.Name)),
		}, false, nil
	case runtime.StateStopped:
		return reconcile.Result{
			Outcome: reconcile.Refused,
			Message: fmt.Sprintf("%s container is not running, %s", p.rec.Style(p.Name), action),
		}, false, nil
	}
	return reconcile.Result{}, true, nil
}
