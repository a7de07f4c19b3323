package reconcile

import (
	"context"
	"strings"

	"github.com/everitoken/evtops/lib/logger"
	"github.com/everitoken/evtops/lib/runtime"
)

// TaskReport is the outcome of a disposable task container run.
type TaskReport struct {
	Succeeded bool
	ExitCode  int
	Logs      string
}

// RunTask launches a one-shot task container and blocks until it exits. When
// marker is non-empty the buffered exit log is scanned for it literally; a
// missing marker is a failed report carrying the raw log, never an error.
// The log is not parsed beyond that.
func (r *Reconciler) RunTask(ctx context.Context, spec runtime.TaskSpec, marker string) (TaskReport, error) {
	log := logger.FromContext(ctx)
	log.DebugContext(ctx, "running task container", "image", spec.Image)

	res, err := r.rt.RunTask(ctx, spec)
	if err != nil {
		return TaskReport{}, err
	}

	report := TaskReport{ExitCode: res.ExitCode, Logs: res.Logs}
	if marker == "" {
		report.Succeeded = res.ExitCode == 0
	} else {
		report.Succeeded = strings.Contains(res.Logs, marker)
	}
	return report, nil
}
