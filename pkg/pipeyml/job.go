package pipeyml

import (
	"errors"
	"fmt"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"gopkg.in/yaml.v3"
)

// Errors related to parsing jobs.
var (
	ErrJobNoScript     = errors.New("job is missing script")
	ErrJobEmptyScript  = errors.New("job script must have at least one command")
	ErrJobUnknownField = errors.New("unknown job field")
)

// Job is a pipeline job: bound to exactly one stage, holding the commands to
// run and an optional artifact rule.
type Job struct {
	Pos       Pos
	Name      string
	StageName string
	StagePos  Pos

	BeforeScript []string
	Script       []string
	Services     []ServiceRef
	Variables    varsub.SourceMap
	Artifacts    *ArtifactRule
}

func visitJobNode(key strNode, node *yaml.Node, pipeline Pipeline) (job Job, errSlice errutil.Slice) {
	job.Pos = newPosNode(node)
	job.Name = key.value
	job.StageName = pipeline.StageNames[0]
	job.StagePos = job.Pos

	items, errs := visitMapSlice(node)
	if len(errs) > 0 {
		errSlice.Add(errs...)
		return
	}

	// Job variables shadow pipeline variables, which in turn shadow the
	// external sources. The job's own variables are visited first so the
	// remaining fields can substitute against them, regardless of key order.
	source := pipeline.VarSource
	for _, item := range items {
		if item.key.value != propVariables {
			continue
		}
		vars, errs := visitVariablesNode(item.value,
			fmt.Sprintf("job %q variables", job.Name), pipeline.VarSource)
		errSlice.Add(errutil.ScopeSlice(errs, propVariables)...)
		job.Variables = vars
		if vars != nil {
			source = varsub.SourceSlice{vars, pipeline.VarSource}
		}
	}

	var hasScript bool
	for _, item := range items {
		switch item.key.value {
		case propVariables:
			// already visited
		case propStage:
			stage, err := visitString(item.value)
			if err != nil {
				errSlice.Add(errutil.Scope(err, propStage))
				continue
			}
			job.StageName = stage
			job.StagePos = newPosNode(item.value)
		case propBeforeScript:
			script, errs := visitScriptNode(item.value, source)
			errSlice.Add(errutil.ScopeSlice(errs, propBeforeScript)...)
			job.BeforeScript = script
		case propScript:
			hasScript = true
			script, errs := visitScriptNode(item.value, source)
			errSlice.Add(errutil.ScopeSlice(errs, propScript)...)
			job.Script = script
			if len(errs) == 0 && len(script) == 0 {
				errSlice.Add(errutil.Scope(
					wrapPosErrorNode(ErrJobEmptyScript, item.value), propScript))
			}
		case propServices:
			services, errs := visitServicesNode(item.value, source)
			errSlice.Add(errutil.ScopeSlice(errs, propServices)...)
			job.Services = services
		case propArtifacts:
			artifacts, errs := visitArtifactsNode(item.value, source)
			errSlice.Add(errutil.ScopeSlice(errs, propArtifacts)...)
			job.Artifacts = artifacts
		default:
			err := fmt.Errorf("%w: %q", ErrJobUnknownField, item.key.value)
			errSlice.Add(wrapPosErrorNode(err, item.key.node))
		}
	}
	if !hasScript {
		errSlice.Add(wrapPosErrorNode(ErrJobNoScript, node))
	}
	// Services declared on the pipeline level apply to all jobs,
	// in addition to the job's own.
	job.Services = append(append([]ServiceRef{}, pipeline.Services...), job.Services...)
	return
}

func visitScriptNode(node *yaml.Node, source varsub.Source) ([]string, errutil.Slice) {
	lines, errSlice := visitStringSequence(node)
	script := make([]string, 0, len(lines))
	for _, line := range lines {
		substituted, err := subStrNode(line, source)
		if err != nil {
			errSlice.Add(err)
			continue
		}
		script = append(script, substituted)
	}
	return script, errSlice
}
