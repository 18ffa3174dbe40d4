package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/berth-ci/berth-cmd/internal/ignorer"
	"github.com/berth-ci/berth-cmd/internal/strutil"
	"github.com/berth-ci/berth-cmd/pkg/artifactstore"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/berth-ci/berth-cmd/pkg/services"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"github.com/cli/safeexec"
)

// JobRunnerOptions holds the collaborators and settings a job runner needs.
type JobRunnerOptions struct {
	Store     resultstore.Store
	Artifacts artifactstore.Store
	Services  services.Config
	Waiter    services.Waiter

	// WorkDir is the directory job commands run in, usually the directory
	// holding the manifest.
	WorkDir string
	// VarSource resolves the variables exported into each job's
	// environment, in addition to the job's own variables.
	VarSource varsub.Source
	// Ignorer optionally excludes files from artifact archiving.
	Ignorer ignorer.Ignorer
}

// NewJobRunner returns a JobRunner that runs each job's commands locally
// via the shell, after waiting for the job's services to be ready.
func NewJobRunner(opts JobRunnerOptions) (JobRunner, error) {
	shPath, err := safeexec.LookPath("sh")
	if err != nil {
		return nil, fmt.Errorf("locate shell: %w", err)
	}
	return jobRunner{opts: opts, shPath: shPath}, nil
}

type jobRunner struct {
	opts   JobRunnerOptions
	shPath string
}

func (r jobRunner) RunJob(ctx context.Context, jobID uint64, job pipeyml.Job) JobResult {
	start := time.Now()
	result := JobResult{
		JobID: jobID,
		Name:  job.Name,
		Stage: job.StageName,
	}
	finish := func(status resultstore.Status, err error) JobResult {
		result.Status = status
		result.Error = err
		result.Duration = time.Since(start)
		r.addStatusUpdate(jobID, status)
		return result
	}

	r.addStatusUpdate(jobID, resultstore.StatusScheduling)

	logWriter, err := r.opts.Store.OpenLogWriter(jobID)
	if err != nil {
		return finish(resultstore.StatusFailed, fmt.Errorf("open log file: %w", err))
	}
	defer logWriter.Close()

	resolved, err := services.ResolveAll(job.Services, r.opts.Services)
	if err != nil {
		writeLogLine(logWriter, "ERROR: "+err.Error())
		return finish(resultstore.StatusFailed, err)
	}
	if len(resolved) > 0 {
		writeLogLine(logWriter, fmt.Sprintf("Waiting for %d service(s) to be ready...", len(resolved)))
		if err := r.opts.Waiter.WaitFor(ctx, resolved); err != nil {
			writeLogLine(logWriter, "ERROR: "+err.Error())
			if ctx.Err() != nil {
				return finish(resultstore.StatusCancelled, err)
			}
			return finish(resultstore.StatusFailed, err)
		}
	}

	r.addStatusUpdate(jobID, resultstore.StatusRunning)

	env := r.jobEnv(job, resolved)
	script := append(append([]string{}, job.BeforeScript...), job.Script...)
	for _, line := range script {
		if err := r.runCommand(ctx, logWriter, env, line); err != nil {
			if ctx.Err() != nil {
				writeLogLine(logWriter, "Cancelled.")
				return finish(resultstore.StatusCancelled, ctx.Err())
			}
			writeLogLine(logWriter, "ERROR: "+err.Error())
			r.collectArtifacts(jobID, job, logWriter, false)
			return finish(resultstore.StatusFailed, err)
		}
	}

	if err := r.collectArtifacts(jobID, job, logWriter, true); err != nil {
		return finish(resultstore.StatusFailed, err)
	}
	return finish(resultstore.StatusSuccess, nil)
}

func (r jobRunner) addStatusUpdate(jobID uint64, status resultstore.Status) {
	if err := r.opts.Store.AddStatusUpdate(jobID, time.Now(), status); err != nil {
		log.Warn().
			WithError(err).
			WithStringer("status", status).
			Message("Failed to store status update.")
	}
}

// jobEnv composes the environment for the job's commands: the OS env, then
// the resolved variables, then the job's own variables, then the service
// endpoint variables.
func (r jobRunner) jobEnv(job pipeyml.Job, resolved []services.Service) []string {
	env := os.Environ()
	if r.opts.VarSource != nil {
		for _, v := range r.opts.VarSource.ListVars() {
			env = append(env, v.Key+"="+strutil.Stringify(v.Value))
		}
	}
	if job.Variables != nil {
		for _, v := range job.Variables.ListVars() {
			env = append(env, v.Key+"="+strutil.Stringify(v.Value))
		}
	}
	for k, v := range services.MergeEnv(resolved) {
		env = append(env, k+"="+v)
	}
	return env
}

func (r jobRunner) runCommand(ctx context.Context, logWriter resultstore.LogLineWriteCloser, env []string, line string) error {
	writeLogLine(logWriter, "$ "+line)
	cmd := exec.CommandContext(ctx, r.shPath, "-c", line)
	cmd.Dir = r.opts.WorkDir
	cmd.Env = env
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go scanIntoLog(&wg, logWriter, stdout)
	go scanIntoLog(&wg, logWriter, stderr)
	wg.Wait()
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("command exited with code %d", exitErr.ExitCode())
		}
		return err
	}
	return nil
}

func scanIntoLog(wg *sync.WaitGroup, logWriter resultstore.LogLineWriteCloser, reader io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		writeLogLine(logWriter, scanner.Text())
	}
}

func (r jobRunner) collectArtifacts(jobID uint64, job pipeyml.Job, logWriter resultstore.LogLineWriteCloser, succeeded bool) error {
	rule := job.Artifacts
	if rule == nil || !rule.When.Matches(succeeded) {
		return nil
	}
	if r.opts.Artifacts == nil {
		return nil
	}
	writeLogLine(logWriter, fmt.Sprintf("Collecting artifacts: %v", rule.Paths))
	artifact, err := r.opts.Artifacts.Archive(fmt.Sprint(jobID), *rule, r.opts.WorkDir, r.opts.Ignorer)
	if err != nil {
		writeLogLine(logWriter, "ERROR: "+err.Error())
		return fmt.Errorf("collect artifacts: %w", err)
	}
	_, err = r.opts.Store.AddArtifact(jobID, resultstore.ArtifactMeta{
		Name:      artifact.Name,
		Path:      string(artifact.Tarball),
		ExpiresAt: artifact.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("store artifact metadata: %w", err)
	}
	writeLogLine(logWriter, fmt.Sprintf("Stored artifact %q.", artifact.Name))
	return nil
}

func writeLogLine(logWriter resultstore.LogLineWriteCloser, line string) {
	if err := logWriter.WriteLogLine(line); err != nil {
		log.Warn().WithError(err).Message("Failed to write log line.")
	}
}
