package runner

import (
	"context"
	"strings"
	"time"

	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
)

type builder struct {
	pipeline pipeyml.Pipeline
	jobRun   JobRunner
	opts     BuildOptions
}

// New returns a Builder that runs the pipeline's stages in series using the
// provided JobRunner for each job.
func New(pipeline pipeyml.Pipeline, jobRun JobRunner, opts BuildOptions) Builder {
	return builder{
		pipeline: pipeline,
		jobRun:   jobRun,
		opts:     opts,
	}
}

func (b builder) Build(ctx context.Context) (Result, error) {
	result := Result{Options: b.opts}
	start := time.Now()
	stages := b.filterStages(b.pipeline.Stages, b.opts.StageFilter)
	queued := queueJobs(stages)
	stagesCount := len(stages)
	stagesDone := 0
	if countJobs(queued) == 0 {
		log.Warn().
			WithString("stages", "0/0").
			Message("No jobs to run.")
		result.Status = resultstore.StatusNone
		result.Duration = time.Since(start)
		return result, nil
	}
	for i, stage := range stages {
		if len(queued[i]) == 0 {
			// Declared stage without jobs. Nothing to run.
			continue
		}
		log.Info().
			WithStringf("stages", "%d/%d", stagesDone, stagesCount).
			WithString("stage", stage.Name).
			Message("Starting stage.")
		res := runStage(ctx, stage.Name, queued[i], b.jobRun)
		result.Stages = append(result.Stages, res)
		stagesDone++
		if res.Status != resultstore.StatusSuccess {
			var failed []string
			var cancelled []string
			for _, jobRes := range res.Jobs {
				if jobRes.Status == resultstore.StatusFailed {
					failed = append(failed, jobRes.Name)
				} else if jobRes.Status == resultstore.StatusCancelled {
					cancelled = append(cancelled, jobRes.Name)
				}
			}
			log.Warn().
				WithStringf("stages", "%d/%d", stagesDone, stagesCount).
				WithString("stage", res.Name).
				WithDuration("dur", res.Duration.Truncate(time.Second)).
				WithStringer("status", res.Status).
				WithString("failed", strings.Join(failed, ",")).
				WithString("cancelled", strings.Join(cancelled, ",")).
				Message("Failed stage. Skipping any further stages.")
			result.Status = res.Status
			break
		}
		log.Info().
			WithStringf("stages", "%d/%d", stagesDone, stagesCount).
			WithString("stage", res.Name).
			WithDuration("dur", res.Duration.Truncate(time.Second)).
			Message("Done with stage.")
		result.Status = resultstore.StatusSuccess
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (b builder) filterStages(stages []pipeyml.Stage, nameFilter string) []pipeyml.Stage {
	var result []pipeyml.Stage
	for _, stage := range stages {
		if nameFilter == "" || stage.Name == nameFilter {
			result = append(result, stage)
		} else {
			log.Debug().
				WithString("stage", stage.Name).
				WithString("filter", nameFilter).
				Message("Skipping stage because of filter.")
		}
	}
	return result
}

// queuedJob is a job with its run-order ID assigned.
type queuedJob struct {
	id  uint64
	job pipeyml.Job
}

// queueJobs assigns sequential job IDs in run order, starting at 1.
func queueJobs(stages []pipeyml.Stage) [][]queuedJob {
	queued := make([][]queuedJob, len(stages))
	var nextID uint64
	for i, stage := range stages {
		queued[i] = make([]queuedJob, 0, len(stage.Jobs))
		for _, job := range stage.Jobs {
			nextID++
			queued[i] = append(queued[i], queuedJob{id: nextID, job: job})
		}
	}
	return queued
}

func countJobs(queued [][]queuedJob) int {
	var count int
	for _, jobs := range queued {
		count += len(jobs)
	}
	return count
}
