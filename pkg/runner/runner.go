// Package runner executes a parsed pipeline: stages in declaration order,
// jobs inside a stage in parallel, each job as local shell commands. Job
// logs and statuses go into a result store, and artifacts are archived
// according to the jobs' artifact rules.
package runner

import (
	"context"
	"time"

	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("RUNNER")

// BuildOptions defines filtering options to control what parts of a pipeline
// should actually be executed.
type BuildOptions struct {
	StageFilter string
}

// Builder is the interface for running a pipeline. A pipeline may contain
// any number of stages, which in turn may contain any number of jobs. All
// stages are run in sequence, stopping at the first failed stage.
type Builder interface {
	Build(ctx context.Context) (Result, error)
}

// JobRunner is the interface for running a single pipeline job.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uint64, job pipeyml.Job) JobResult
}

// Result is a pipeline run result with the overall status, the individual
// stage results, and the duration of the entire run.
type Result struct {
	Status   resultstore.Status
	Options  BuildOptions
	Stages   []StageResult
	Duration time.Duration
}

// StageResult is a stage result with the overall status of the jobs that
// were executed for the stage.
type StageResult struct {
	Name     string
	Status   resultstore.Status
	Jobs     []JobResult
	Duration time.Duration
}

// JobResult is a single job's execution result.
type JobResult struct {
	JobID    uint64
	Name     string
	Stage    string
	Status   resultstore.Status
	Error    error
	Duration time.Duration
}
