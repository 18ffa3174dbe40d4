package pipeyml_test

import (
	"strings"
	"testing"
	"time"

	"github.com/berth-ci/berth-cmd/internal/errtestutil"
	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVarSource = varsub.SourceMap{
	"REPO_NAME":  varsub.Val{Value: "nanohttp"},
	"GIT_BRANCH": varsub.Val{Value: "master"},
}

var testArgs = pipeyml.Args{
	VarSource: testVarSource,
}

func TestParse_AcceptanceTest(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
stages:
  - test
  - deploy

variables:
  PIP_CACHE_DIR: .cache/pip

services:
  - postgres:13

test:
  stage: test
  variables:
    DB_URL: postgres://localhost/test
  services:
    - redis:6
  before_script:
    - pip install -e .
  script:
    - pytest --cov

pages:
  stage: deploy
  script:
    - make docs
  artifacts:
    name: docs-${GIT_BRANCH}
    paths:
      - public/
    when: on_success
    expire_in: 30 days
`), testArgs)
	errtestutil.RequireNoErr(t, errs)

	assert.Equal(t, []string{"test", "deploy"}, got.StageNames)
	require.Len(t, got.Stages, 2)

	if v, ok := got.Variables.Lookup("PIP_CACHE_DIR"); assert.True(t, ok, "PIP_CACHE_DIR") {
		assert.Equal(t, ".cache/pip", v.Value)
	}

	require.Len(t, got.Services, 1, "pipeline services")
	assert.Equal(t, "postgres:13", got.Services[0].Name)

	testStage := got.Stages[0]
	require.Len(t, testStage.Jobs, 1, "test stage jobs")
	testJob := testStage.Jobs[0]
	assert.Equal(t, "test", testJob.Name)
	assert.Equal(t, "test", testJob.StageName)
	assert.Equal(t, []string{"pip install -e ."}, testJob.BeforeScript)
	assert.Equal(t, []string{"pytest --cov"}, testJob.Script)
	if v, ok := testJob.Variables.Lookup("DB_URL"); assert.True(t, ok, "DB_URL") {
		assert.Equal(t, "postgres://localhost/test", v.Value)
	}
	// pipeline services come first, then the job's own
	require.Len(t, testJob.Services, 2, "test job services")
	assert.Equal(t, "postgres:13", testJob.Services[0].Name)
	assert.Equal(t, "redis:6", testJob.Services[1].Name)
	assert.Nil(t, testJob.Artifacts, "test job artifacts")

	deployStage := got.Stages[1]
	require.Len(t, deployStage.Jobs, 1, "deploy stage jobs")
	pagesJob := deployStage.Jobs[0]
	assert.Equal(t, "pages", pagesJob.Name)
	assert.Equal(t, "deploy", pagesJob.StageName)
	require.NotNil(t, pagesJob.Artifacts, "pages artifacts")
	assert.Equal(t, "docs-master", pagesJob.Artifacts.Name)
	assert.Equal(t, []string{"public"}, pagesJob.Artifacts.Paths)
	assert.Equal(t, pipeyml.WhenOnSuccess, pagesJob.Artifacts.When)
	assert.Equal(t, 30*24*time.Hour, pagesJob.Artifacts.ExpireIn.Duration)
}

func TestParse_DefaultStage(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script:
    - echo hello
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	assert.Equal(t, []string{"test"}, got.StageNames)
	require.Len(t, got.Stages, 1)
	require.Len(t, got.Stages[0].Jobs, 1)
	assert.Equal(t, "test", got.Stages[0].Jobs[0].StageName)
}

func TestParse_PreservesJobOrderWithinStage(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
B:
  script: [echo b]
A:
  script: [echo a]
C:
  script: [echo c]
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	require.Len(t, got.Stages, 1)
	var gotOrder []string
	for _, job := range got.Stages[0].Jobs {
		gotOrder = append(gotOrder, job.Name)
	}
	assert.Equal(t, []string{"B", "A", "C"}, gotOrder)
}

func TestParse_SupportsAnchoringJobs(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob1: &reused
  script:
    - echo hello

myJob2: *reused
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, []string{"echo hello"}, jobs[0].Script)
	assert.Equal(t, []string{"echo hello"}, jobs[1].Script)
}

func TestParse_SupportsMergingJobs(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob1: &reused
  script:
    - echo hello

myJob2:
  <<: *reused
  before_script:
    - echo setup
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 2)
	assert.Empty(t, jobs[0].BeforeScript)
	assert.Equal(t, []string{"echo setup"}, jobs[1].BeforeScript)
	assert.Equal(t, []string{"echo hello"}, jobs[1].Script)
}

func TestParse_JobVarsShadowPipelineVars(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
variables:
  GREETING: hello

myJob1:
  script:
    - echo ${GREETING}

myJob2:
  variables:
    GREETING: howdy
  script:
    - echo ${GREETING}
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, []string{"echo hello"}, jobs[0].Script)
	assert.Equal(t, []string{"echo howdy"}, jobs[1].Script)
}

func TestParse_VarSubFromArgs(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script:
    - echo building ${REPO_NAME} on ${GIT_BRANCH}
`), testArgs)
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"echo building nanohttp on master"}, jobs[0].Script)
}

func TestParse_UnknownVarIsLeftUntouched(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script:
    - echo ${SOME_UNDEFINED_VAR}
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"echo ${SOME_UNDEFINED_VAR}"}, jobs[0].Script)
}

func TestParse_TooManyDocs(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
a: {script: [echo]}
---
b: {script: [echo]}
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrTooManyDocs)
}

func TestParse_OneDocWithDocSeparator(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
---
a: {script: [echo]}
`), pipeyml.Args{})
	errtestutil.RequireNotContainsErr(t, errs, pipeyml.ErrTooManyDocs)
}

func TestParse_MissingDoc(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(``), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrMissingDoc)
}

func TestParse_ErrIfDocNotMap(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`123`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrInvalidFieldType)
}

func TestParse_ErrIfNonStringKey(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
123: {script: [echo]}
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrKeyNotString)
}

func TestParse_ErrIfEmptyJobName(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
"": {script: [echo]}
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrKeyEmpty)
}

func TestParse_ErrIfNoJobs(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
stages: [test]
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrNoJobs)
}

func TestParse_ErrIfDuplicateStage(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
stages: [test, test]
myJob:
  script: [echo]
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrStageDuplicate)
}

func TestParse_ErrIfUndefinedStage(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
stages: [test]
myJob:
  stage: deploy
  script: [echo]
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrUndefinedStage)
}

func TestParse_ErrIfJobMissingScript(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  before_script:
    - echo setup
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrJobNoScript)
}

func TestParse_ErrIfJobEmptyScript(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: []
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrJobEmptyScript)
}

func TestParse_ErrIfUnknownJobField(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [echo]
  totally_unknown: true
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrJobUnknownField)
}

func TestParse_ErrIfEmptyServiceName(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  services:
    - ""
  script: [echo]
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrServiceEmpty)
}

func TestParse_ErrPositions(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`myJob:
  script: [echo]
  unknown_field: true
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrJobUnknownField)
	require.Len(t, errs, 1)
	line, column := errutil.AsPos(errs[0])
	assert.Equal(t, 3, line, "error line")
	assert.Equal(t, 3, column, "error column")
}
