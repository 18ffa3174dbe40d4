package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

// runStage runs all the stage's jobs in parallel, cancelling sibling jobs
// when one fails.
func runStage(ctx context.Context, stageName string, jobs []queuedJob, jobRun JobRunner) StageResult {
	run := stageRun{
		jobRun:    jobRun,
		jobCount:  len(jobs),
		stageName: stageName,
		start:     time.Now(),
	}
	for _, job := range jobs {
		run.startRunJobGoroutine(ctx, job)
	}
	return run.waitForResult()
}

type stageRun struct {
	stageName   string
	jobRun      JobRunner
	cancelFuncs []func()
	jobCount    int
	jobsDone    int32

	failed     bool
	cancelled  bool
	jobResults []JobResult
	start      time.Time

	wg    sync.WaitGroup
	mutex sync.Mutex
}

func (r *stageRun) startRunJobGoroutine(ctx context.Context, job queuedJob) {
	r.wg.Add(1)
	jobCtx, cancel := context.WithCancel(ctx)
	r.mutex.Lock()
	r.cancelFuncs = append(r.cancelFuncs, cancel)
	r.mutex.Unlock()
	go r.runJob(jobCtx, job)
}

func (r *stageRun) waitForResult() StageResult {
	r.wg.Wait()
	status := resultstore.StatusSuccess
	if r.failed {
		status = resultstore.StatusFailed
	} else if r.cancelled {
		status = resultstore.StatusCancelled
	}
	return StageResult{
		Name:     r.stageName,
		Status:   status,
		Jobs:     r.jobResults,
		Duration: time.Since(r.start),
	}
}

func (r *stageRun) addJobResult(res JobResult) {
	r.mutex.Lock()
	r.jobResults = append(r.jobResults, res)
	r.mutex.Unlock()
	atomic.AddInt32(&r.jobsDone, 1)
}

func (r *stageRun) runJob(ctx context.Context, job queuedJob) {
	defer r.wg.Done()
	logFunc := func(ev logger.Event) logger.Event {
		return ev.
			WithStringf("jobs", "%d/%d", atomic.LoadInt32(&r.jobsDone), r.jobCount).
			WithString("stage", r.stageName).
			WithString("job", job.job.Name)
	}
	log.Info().WithFunc(logFunc).Message("Starting job.")
	res := r.jobRun.RunJob(ctx, job.id, job.job)
	r.addJobResult(res)
	dur := res.Duration.Truncate(time.Second)
	if res.Status == resultstore.StatusCancelled {
		r.mutex.Lock()
		r.cancelled = true
		r.mutex.Unlock()
		log.Info().
			WithFunc(logFunc).
			WithDuration("dur", dur).
			Message("Cancelled job.")
	} else if res.Status != resultstore.StatusSuccess {
		r.mutex.Lock()
		r.failed = true
		cancels := make([]func(), len(r.cancelFuncs))
		copy(cancels, r.cancelFuncs)
		r.mutex.Unlock()
		log.Warn().
			WithError(res.Error).
			WithFunc(logFunc).
			WithDuration("dur", dur).
			Message("Failed job. Cancelling other jobs in stage.")
		for _, cancel := range cancels {
			cancel()
		}
	} else {
		log.Info().
			WithFunc(logFunc).
			WithDuration("dur", dur).
			Message("Done with job.")
	}
}
