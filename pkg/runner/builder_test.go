package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/berth-ci/berth-cmd/internal/errtestutil"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJobRunner returns canned statuses per job name and records the order
// jobs were started in.
type fakeJobRunner struct {
	statuses map[string]resultstore.Status

	mutex   sync.Mutex
	started []string
	jobIDs  map[string]uint64
}

func newFakeJobRunner(statuses map[string]resultstore.Status) *fakeJobRunner {
	return &fakeJobRunner{
		statuses: statuses,
		jobIDs:   make(map[string]uint64),
	}
}

func (f *fakeJobRunner) RunJob(ctx context.Context, jobID uint64, job pipeyml.Job) JobResult {
	f.mutex.Lock()
	f.started = append(f.started, job.Name)
	f.jobIDs[job.Name] = jobID
	f.mutex.Unlock()
	status, ok := f.statuses[job.Name]
	if !ok {
		status = resultstore.StatusSuccess
	}
	res := JobResult{JobID: jobID, Name: job.Name, Stage: job.StageName, Status: status}
	if status == resultstore.StatusFailed {
		res.Error = errors.New("fake failure")
	}
	return res
}

func parseTestPipeline(t *testing.T, manifest string) pipeyml.Pipeline {
	t.Helper()
	pipeline, errs := pipeyml.Parse(strings.NewReader(manifest), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	return pipeline
}

func TestBuilder_AllStagesSucceed(t *testing.T) {
	pipeline := parseTestPipeline(t, `
stages: [build, deploy]
compile:
  stage: build
  script: [echo compile]
release:
  stage: deploy
  script: [echo release]
`)
	fake := newFakeJobRunner(nil)
	result, err := New(pipeline, fake, BuildOptions{}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusSuccess, result.Status)
	require.Len(t, result.Stages, 2)
	assert.Equal(t, "build", result.Stages[0].Name)
	assert.Equal(t, "deploy", result.Stages[1].Name)
	// stages run in series
	assert.Equal(t, []string{"compile", "release"}, fake.started)
	assert.Equal(t, uint64(1), fake.jobIDs["compile"])
	assert.Equal(t, uint64(2), fake.jobIDs["release"])
}

func TestBuilder_StopsAtFailedStage(t *testing.T) {
	pipeline := parseTestPipeline(t, `
stages: [build, deploy]
compile:
  stage: build
  script: [echo compile]
release:
  stage: deploy
  script: [echo release]
`)
	fake := newFakeJobRunner(map[string]resultstore.Status{
		"compile": resultstore.StatusFailed,
	})
	result, err := New(pipeline, fake, BuildOptions{}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusFailed, result.Status)
	require.Len(t, result.Stages, 1, "deploy stage skipped")
	assert.Equal(t, []string{"compile"}, fake.started)
}

func TestBuilder_StageFilter(t *testing.T) {
	pipeline := parseTestPipeline(t, `
stages: [build, deploy]
compile:
  stage: build
  script: [echo compile]
release:
  stage: deploy
  script: [echo release]
`)
	fake := newFakeJobRunner(nil)
	result, err := New(pipeline, fake, BuildOptions{StageFilter: "deploy"}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusSuccess, result.Status)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, "deploy", result.Stages[0].Name)
	assert.Equal(t, []string{"release"}, fake.started)
}

func TestBuilder_NoJobs(t *testing.T) {
	pipeline := parseTestPipeline(t, `
myJob:
  script: [echo hello]
`)
	fake := newFakeJobRunner(nil)
	result, err := New(pipeline, fake, BuildOptions{StageFilter: "no-such-stage"}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusNone, result.Status)
	assert.Empty(t, fake.started)
}

func TestBuilder_ParallelJobsInStage(t *testing.T) {
	pipeline := parseTestPipeline(t, `
a:
  script: [echo a]
b:
  script: [echo b]
c:
  script: [echo c]
`)
	fake := newFakeJobRunner(nil)
	result, err := New(pipeline, fake, BuildOptions{}).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Stages, 1)
	assert.Len(t, result.Stages[0].Jobs, 3)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, fake.started)

	ids := []uint64{fake.jobIDs["a"], fake.jobIDs["b"], fake.jobIDs["c"]}
	assert.ElementsMatch(t, []uint64{1, 2, 3}, ids, "job IDs are unique and sequential")
}

func TestBuilder_CancelledJobsMarkStageCancelled(t *testing.T) {
	pipeline := parseTestPipeline(t, `
stages: [build, deploy]
compile:
  stage: build
  script: [echo compile]
release:
  stage: deploy
  script: [echo release]
`)
	fake := newFakeJobRunner(map[string]resultstore.Status{
		"compile": resultstore.StatusCancelled,
		"release": resultstore.StatusCancelled,
	})
	result, err := New(pipeline, fake, BuildOptions{}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusCancelled, result.Status)
	require.Len(t, result.Stages, 1, "deploy stage skipped")
	assert.Equal(t, resultstore.StatusCancelled, result.Stages[0].Status)
	assert.Equal(t, []string{"compile"}, fake.started)
}

func TestBuilder_FailedJobBeatsCancelledSibling(t *testing.T) {
	pipeline := parseTestPipeline(t, `
a:
  script: [echo a]
b:
  script: [echo b]
`)
	fake := newFakeJobRunner(map[string]resultstore.Status{
		"a": resultstore.StatusFailed,
		"b": resultstore.StatusCancelled,
	})
	result, err := New(pipeline, fake, BuildOptions{}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusFailed, result.Status)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, resultstore.StatusFailed, result.Stages[0].Status)
}

func TestBuilder_FailedJobMarksStageFailed(t *testing.T) {
	pipeline := parseTestPipeline(t, `
a:
  script: [echo a]
b:
  script: [echo b]
`)
	fake := newFakeJobRunner(map[string]resultstore.Status{
		"b": resultstore.StatusFailed,
	})
	result, err := New(pipeline, fake, BuildOptions{}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusFailed, result.Status)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, resultstore.StatusFailed, result.Stages[0].Status)
}
