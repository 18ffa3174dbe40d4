package pipeyml

import (
	"errors"
	"strings"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"gopkg.in/yaml.v3"
)

// Errors related to parsing service references.
var (
	ErrServiceEmpty = errors.New("service name cannot be empty")
)

// ServiceRef is a reference to an external collaborator service that must be
// available before a job's commands run, such as "postgres:13" or "redis:6".
type ServiceRef struct {
	Pos  Pos
	Name string
}

// Kind returns the bare service kind from the reference, stripping any
// registry path and image tag. Ex "docker.io/library/postgres:13" yields
// "postgres".
func (r ServiceRef) Kind() string {
	name := r.Name
	if idx := strings.LastIndexByte(name, '/'); idx != -1 {
		name = name[idx+1:]
	}
	if idx := strings.IndexByte(name, ':'); idx != -1 {
		name = name[:idx]
	}
	return name
}

// Tag returns the image tag of the reference, or empty string if the
// reference has none.
func (r ServiceRef) Tag() string {
	name := r.Name
	if idx := strings.LastIndexByte(name, '/'); idx != -1 {
		name = name[idx+1:]
	}
	if idx := strings.IndexByte(name, ':'); idx != -1 {
		return name[idx+1:]
	}
	return ""
}

func visitServicesNode(node *yaml.Node, source varsub.Source) ([]ServiceRef, errutil.Slice) {
	names, errSlice := visitStringSequence(node)
	services := make([]ServiceRef, 0, len(names))
	for _, name := range names {
		substituted, err := subStrNode(name, source)
		if err != nil {
			errSlice.Add(err)
			continue
		}
		if substituted == "" {
			errSlice.Add(wrapPosErrorNode(ErrServiceEmpty, name.node))
			continue
		}
		services = append(services, ServiceRef{
			Pos:  newPosNode(name.node),
			Name: substituted,
		})
	}
	return services, errSlice
}
