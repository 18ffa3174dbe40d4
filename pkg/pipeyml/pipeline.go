package pipeyml

import (
	"errors"
	"fmt"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"gopkg.in/yaml.v3"
)

// Errors specific to parsing the pipeline document.
var (
	ErrStageDuplicate = errors.New("stage is declared more than once")
	ErrUndefinedStage = errors.New("job references undefined stage")
	ErrNoJobs         = errors.New("pipeline has no jobs")
)

// DefaultStageName is the stage that jobs belong to when the manifest
// declares no stages list and the job has no stage field.
const DefaultStageName = "test"

// Pipeline is the parsed .berth-ci.yml pipeline structure: an ordered set of
// named stages, each holding the jobs bound to it.
type Pipeline struct {
	StageNames []string
	Stages     []Stage
	Variables  varsub.SourceMap
	Services   []ServiceRef

	// VarSource is the combined variable source used while parsing, layering
	// the pipeline's own variables on top of the sources given in Args.
	VarSource varsub.Source
}

// ListJobs aggregates jobs from all stages into a single slice, in run order.
func (p Pipeline) ListJobs() []Job {
	var jobs []Job
	for _, stage := range p.Stages {
		jobs = append(jobs, stage.Jobs...)
	}
	return jobs
}

// Stage looks up a stage by name.
func (p Pipeline) Stage(name string) (Stage, bool) {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return Stage{}, false
}

func visitPipelineNode(node *yaml.Node, args Args) (pipeline Pipeline, errSlice errutil.Slice) {
	items, errs := visitMapSlice(node)
	errSlice.Add(errs...)

	// The reserved top-level keys must be visited before any of the job
	// nodes, as the jobs depend on the pipeline's variables and stage list,
	// regardless of key ordering in the file.
	var jobItems []mapItem
	var stageNames []strNode
	for _, item := range items {
		switch item.key.value {
		case propStages:
			var errs errutil.Slice
			stageNames, errs = visitStagesNode(item.value)
			errSlice.Add(errutil.ScopeSlice(errs, propStages)...)
		case propVariables:
			var errs errutil.Slice
			pipeline.Variables, errs = visitVariablesNode(item.value, "pipeline variables", nil)
			errSlice.Add(errutil.ScopeSlice(errs, propVariables)...)
		case propServices:
			var errs errutil.Slice
			pipeline.Services, errs = visitServicesNode(item.value, nil)
			errSlice.Add(errutil.ScopeSlice(errs, propServices)...)
		default:
			jobItems = append(jobItems, item)
		}
	}

	var varSource varsub.SourceSlice
	if pipeline.Variables != nil {
		varSource = append(varSource, pipeline.Variables)
	}
	if args.VarSource != nil {
		varSource = append(varSource, args.VarSource)
	}
	pipeline.VarSource = varSource

	for _, name := range stageNames {
		pipeline.StageNames = append(pipeline.StageNames, name.value)
	}
	if len(pipeline.StageNames) == 0 {
		pipeline.StageNames = []string{DefaultStageName}
	}

	stagesByName := make(map[string]*Stage, len(pipeline.StageNames))
	pipeline.Stages = make([]Stage, len(pipeline.StageNames))
	for i, name := range pipeline.StageNames {
		pipeline.Stages[i] = Stage{Name: name}
		if i < len(stageNames) {
			pipeline.Stages[i].Pos = newPosNode(stageNames[i].node)
		}
		stagesByName[name] = &pipeline.Stages[i]
	}

	if len(jobItems) == 0 {
		errSlice.Add(wrapPosErrorNode(ErrNoJobs, node))
		return
	}

	for _, item := range jobItems {
		job, errs := visitJobNode(item.key, item.value, pipeline)
		errSlice.Add(errutil.ScopeSlice(errs, item.key.value)...)
		stage, ok := stagesByName[job.StageName]
		if !ok {
			err := fmt.Errorf("%w: %q", ErrUndefinedStage, job.StageName)
			errSlice.Add(errutil.Scope(errutil.NewPos(err,
				job.StagePos.Line, job.StagePos.Column), item.key.value))
			continue
		}
		stage.Jobs = append(stage.Jobs, job)
	}
	return
}

func visitStagesNode(node *yaml.Node) ([]strNode, errutil.Slice) {
	names, errSlice := visitStringSequence(node)
	seen := make(map[string]struct{}, len(names))
	result := make([]strNode, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name.value]; ok {
			err := fmt.Errorf("%w: %q", ErrStageDuplicate, name.value)
			errSlice.Add(wrapPosErrorNode(err, name.node))
			continue
		}
		seen[name.value] = struct{}{}
		result = append(result, name)
	}
	return result, errSlice
}
