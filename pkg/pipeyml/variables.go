package pipeyml

import (
	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"gopkg.in/yaml.v3"
)

func visitVariablesNode(node *yaml.Node, sourceName string, subSource varsub.Source) (varsub.SourceMap, errutil.Slice) {
	items, errSlice := visitMapSlice(node)
	if len(items) == 0 {
		return nil, errSlice
	}
	vars := make(varsub.SourceMap, len(items))
	for _, item := range items {
		value, err := visitScalar(item.value)
		if err != nil {
			errSlice.Add(errutil.Scope(err, item.key.value))
			continue
		}
		if str, ok := value.(string); ok && subSource != nil {
			substituted, err := varsub.Substitute(str, subSource)
			if err != nil {
				errSlice.Add(errutil.Scope(wrapPosErrorNode(err, item.value), item.key.value))
				continue
			}
			value = substituted
		}
		vars[item.key.value] = varsub.Val{
			Value:  value,
			Source: sourceName,
		}
	}
	return vars, errSlice
}
