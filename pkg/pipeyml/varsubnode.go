package pipeyml

import (
	"github.com/berth-ci/berth-cmd/internal/strutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
)

// subStrNode applies variable substitution on a string node, stringifying
// whatever value the substitution resolved to.
func subStrNode(str strNode, source varsub.Source) (string, error) {
	if source == nil {
		return str.value, nil
	}
	val, err := varsub.Substitute(str.value, source)
	if err != nil {
		return "", wrapPosErrorNode(err, str.node)
	}
	return strutil.Stringify(val), nil
}
