package pipeyml_test

import (
	"strings"
	"testing"

	"github.com/berth-ci/berth-cmd/internal/errtestutil"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtifactWhen(t *testing.T) {
	tests := []struct {
		input string
		want  pipeyml.ArtifactWhen
	}{
		{input: "", want: pipeyml.WhenOnSuccess},
		{input: "on_success", want: pipeyml.WhenOnSuccess},
		{input: "on_failure", want: pipeyml.WhenOnFailure},
		{input: "always", want: pipeyml.WhenAlways},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := pipeyml.ParseArtifactWhen(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := pipeyml.ParseArtifactWhen("sometimes")
	assert.ErrorIs(t, err, pipeyml.ErrArtifactsInvalidWhen)
}

func TestArtifactWhen_Matches(t *testing.T) {
	tests := []struct {
		when          pipeyml.ArtifactWhen
		wantSucceeded bool
		wantFailed    bool
	}{
		{when: pipeyml.WhenOnSuccess, wantSucceeded: true, wantFailed: false},
		{when: pipeyml.WhenOnFailure, wantSucceeded: false, wantFailed: true},
		{when: pipeyml.WhenAlways, wantSucceeded: true, wantFailed: true},
	}
	for _, tc := range tests {
		t.Run(tc.when.String(), func(t *testing.T) {
			assert.Equal(t, tc.wantSucceeded, tc.when.Matches(true), "job succeeded")
			assert.Equal(t, tc.wantFailed, tc.when.Matches(false), "job failed")
		})
	}
}

func TestParse_ArtifactDefaults(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths:
      - dist/
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 1)
	rule := jobs[0].Artifacts
	require.NotNil(t, rule)
	assert.Equal(t, pipeyml.DefaultArtifactName, rule.Name)
	assert.Equal(t, []string{"dist"}, rule.Paths)
	assert.Equal(t, pipeyml.WhenOnSuccess, rule.When)
	assert.True(t, rule.ExpireIn.Never(), "expires")
}

func TestParse_ErrIfArtifactsNoPaths(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    name: my-artifact
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsNoPaths)
}

func TestParse_ErrIfArtifactsEmptyPaths(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths: []
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsNoPaths)
}

func TestParse_ErrIfArtifactsAbsPath(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths:
      - /etc/passwd
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsAbsPath)
}

func TestParse_ErrIfArtifactsOutsidePath(t *testing.T) {
	tests := []string{
		"..",
		"../secrets",
		"dist/../../secrets",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths:
      - `+path+`
`), pipeyml.Args{})
			errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsOutsidePath)
		})
	}
}

func TestParse_ErrIfArtifactsNameHasSeparator(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  variables:
    GIT_BRANCH: feature/shiny
  script: [make]
  artifacts:
    name: build-${GIT_BRANCH}
    paths: [dist/]
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsInvalidName)
}

func TestParse_ErrIfArtifactsInvalidWhen(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths: [dist/]
    when: sometimes
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsInvalidWhen)
}

func TestParse_ErrIfArtifactsInvalidExpiry(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths: [dist/]
    expire_in: 30 parsecs
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrExpiryInvalid)
}

func TestParse_ErrIfArtifactsUnknownField(t *testing.T) {
	_, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  script: [make]
  artifacts:
    paths: [dist/]
    compression: zstd
`), pipeyml.Args{})
	errtestutil.RequireContainsErr(t, errs, pipeyml.ErrArtifactsUnknownField)
}

func TestParse_ArtifactNameVarSub(t *testing.T) {
	got, errs := pipeyml.Parse(strings.NewReader(`
myJob:
  variables:
    SUFFIX: nightly
  script: [make]
  artifacts:
    name: build-${SUFFIX}
    paths: [dist/]
`), pipeyml.Args{})
	errtestutil.RequireNoErr(t, errs)
	jobs := got.ListJobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].Artifacts)
	assert.Equal(t, "build-nightly", jobs[0].Artifacts.Name)
}
