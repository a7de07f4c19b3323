package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everitoken/evtops/lib/runtime"
	"github.com/everitoken/evtops/lib/runtime/runtimetest"
)

func TestRunTaskMarkerFound(t *testing.T) {
	f := runtimetest.New()
	f.TaskResult = runtime.TaskResult{
		ExitCode: 0,
		Logs:     "exporting blocks...\nnode_management_success\n",
	}
	r := New(f)

	report, err := r.RunTask(context.Background(), runtime.TaskSpec{Image: "everitoken/evt:latest"}, "node_management_success")
	require.NoError(t, err)
	assert.True(t, report.Succeeded)
}

// A completed task whose output lacks the success marker is a failed report
// with the raw log attached, not an error.
func TestRunTaskMarkerMissing(t *testing.T) {
	f := runtimetest.New()
	f.TaskResult = runtime.TaskResult{
		ExitCode: 0,
		Logs:     "exporting blocks...\nunexpected shutdown\n",
	}
	r := New(f)

	report, err := r.RunTask(context.Background(), runtime.TaskSpec{Image: "everitoken/evt:latest"}, "node_management_success")
	require.NoError(t, err)
	assert.False(t, report.Succeeded)
	assert.Contains(t, report.Logs, "unexpected shutdown")
}

func TestRunTaskWithoutMarkerUsesExitCode(t *testing.T) {
	f := runtimetest.New()
	f.TaskResult = runtime.TaskResult{ExitCode: 1, Logs: "boom"}
	r := New(f)

	report, err := r.RunTask(context.Background(), runtime.TaskSpec{Image: "mongo:latest"}, "")
	require.NoError(t, err)
	assert.False(t, report.Succeeded)
	assert.Equal(t, 1, report.ExitCode)
}
