package pipeyml

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"gopkg.in/yaml.v3"
)

// Errors related to parsing artifact rules.
var (
	ErrArtifactsNoPaths      = errors.New("artifacts must have at least one path")
	ErrArtifactsAbsPath      = errors.New("artifact path must be relative")
	ErrArtifactsOutsidePath  = errors.New("artifact path must not traverse outside the job directory")
	ErrArtifactsInvalidName  = errors.New("artifact name must not contain path separators")
	ErrArtifactsUnknownField = errors.New("unknown artifacts field")
	ErrArtifactsInvalidWhen  = errors.New(`must be one of "on_success", "on_failure", or "always"`)
)

// DefaultArtifactName is used when the artifact rule has no name template.
const DefaultArtifactName = "artifacts"

// ArtifactRule declares which files a job preserves after it has run, under
// what condition, and for how long.
type ArtifactRule struct {
	Pos      Pos
	Name     string
	Paths    []string
	When     ArtifactWhen
	ExpireIn Expiry
}

// ArtifactWhen is the condition deciding if artifacts are collected after a
// job, based on how the job went.
type ArtifactWhen byte

const (
	// WhenOnSuccess collects artifacts only when the job succeeded.
	// This is the default.
	WhenOnSuccess ArtifactWhen = iota
	// WhenOnFailure collects artifacts only when the job failed.
	WhenOnFailure
	// WhenAlways collects artifacts regardless of the job status.
	WhenAlways
)

// String implements the fmt.Stringer interface.
func (w ArtifactWhen) String() string {
	switch w {
	case WhenOnFailure:
		return "on_failure"
	case WhenAlways:
		return "always"
	default:
		return "on_success"
	}
}

// Matches returns whether artifacts should be collected for a job that
// either succeeded or not.
func (w ArtifactWhen) Matches(succeeded bool) bool {
	switch w {
	case WhenOnFailure:
		return !succeeded
	case WhenAlways:
		return true
	default:
		return succeeded
	}
}

// ParseArtifactWhen parses a string as an artifact condition. This is the
// inverse of the ArtifactWhen.String() method.
func ParseArtifactWhen(s string) (ArtifactWhen, error) {
	switch s {
	case "", "on_success":
		return WhenOnSuccess, nil
	case "on_failure":
		return WhenOnFailure, nil
	case "always":
		return WhenAlways, nil
	default:
		return WhenOnSuccess, fmt.Errorf("%w: %q", ErrArtifactsInvalidWhen, s)
	}
}

func visitArtifactsNode(node *yaml.Node, source varsub.Source) (*ArtifactRule, errutil.Slice) {
	rule := ArtifactRule{
		Pos:  newPosNode(node),
		Name: DefaultArtifactName,
	}
	items, errSlice := visitMapSlice(node)
	for _, item := range items {
		switch item.key.value {
		case propName:
			name, err := visitSubstitutedString(item.value, source)
			if err != nil {
				errSlice.Add(errutil.Scope(err, propName))
				continue
			}
			// The name becomes a file name. A substituted variable such as a
			// Git branch may contain slashes, which would escape the store.
			if strings.ContainsAny(name, `/\`) {
				err := fmt.Errorf("%w: %q", ErrArtifactsInvalidName, name)
				errSlice.Add(errutil.Scope(wrapPosErrorNode(err, item.value), propName))
				continue
			}
			rule.Name = name
		case propPaths:
			paths, errs := visitArtifactPathsNode(item.value, source)
			errSlice.Add(errutil.ScopeSlice(errs, propPaths)...)
			rule.Paths = paths
		case propWhen:
			str, err := visitString(item.value)
			if err != nil {
				errSlice.Add(errutil.Scope(err, propWhen))
				continue
			}
			when, err := ParseArtifactWhen(str)
			if err != nil {
				errSlice.Add(errutil.Scope(wrapPosErrorNode(err, item.value), propWhen))
				continue
			}
			rule.When = when
		case propExpireIn:
			str, err := visitString(item.value)
			if err != nil {
				errSlice.Add(errutil.Scope(err, propExpireIn))
				continue
			}
			expiry, err := ParseExpiry(str)
			if err != nil {
				errSlice.Add(errutil.Scope(wrapPosErrorNode(err, item.value), propExpireIn))
				continue
			}
			rule.ExpireIn = expiry
		default:
			err := fmt.Errorf("%w: %q", ErrArtifactsUnknownField, item.key.value)
			errSlice.Add(wrapPosErrorNode(err, item.key.node))
		}
	}
	if len(rule.Paths) == 0 {
		errSlice.Add(wrapPosErrorNode(ErrArtifactsNoPaths, node))
	}
	return &rule, errSlice
}

func visitArtifactPathsNode(node *yaml.Node, source varsub.Source) ([]string, errutil.Slice) {
	strs, errSlice := visitStringSequence(node)
	paths := make([]string, 0, len(strs))
	for _, str := range strs {
		path, err := subStrNode(str, source)
		if err != nil {
			errSlice.Add(err)
			continue
		}
		if filepath.IsAbs(path) {
			errSlice.Add(wrapPosErrorNode(
				fmt.Errorf("%w: %q", ErrArtifactsAbsPath, path), str.node))
			continue
		}
		cleaned := filepath.Clean(path)
		if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
			errSlice.Add(wrapPosErrorNode(
				fmt.Errorf("%w: %q", ErrArtifactsOutsidePath, path), str.node))
			continue
		}
		paths = append(paths, cleaned)
	}
	return paths, errSlice
}

func visitSubstitutedString(node *yaml.Node, source varsub.Source) (string, error) {
	str, err := visitString(node)
	if err != nil {
		return "", err
	}
	return subStrNode(strNode{node, str}, source)
}
