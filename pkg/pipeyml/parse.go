// Package pipeyml parses and validates .berth-ci.yml pipeline manifests.
//
// The parser visits the YAML node tree instead of unmarshalling into structs
// so that every validation error can point at the line and column it came
// from, and so that multiple errors can be reported in one go.
package pipeyml

import (
	"io"
	"os"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"gopkg.in/yaml.v3"
)

// Args specify arguments used when parsing the .berth-ci.yml file, such as
// what variable sources to use for variable substitution.
type Args struct {
	// VarSource is used to substitute ${VARNAME} values inside the manifest,
	// layered below the manifest's own variables.
	VarSource varsub.Source
}

// ParseFile will parse the file at the given path.
// Multiple errors may be returned, one for each validation or parsing error.
func ParseFile(path string, args Args) (Pipeline, errutil.Slice) {
	file, err := os.Open(path)
	if err != nil {
		return Pipeline{}, errutil.Slice{err}
	}
	defer file.Close()
	return Parse(file, args)
}

// Parse will parse the YAML content as a .berth-ci.yml pipeline structure.
// Multiple errors may be returned, one for each validation or parsing error.
func Parse(reader io.Reader, args Args) (Pipeline, errutil.Slice) {
	pipeline, errs := parse(reader, args)
	errutil.SortByPos(errs)
	return pipeline, errs
}

func parse(reader io.Reader, args Args) (pipeline Pipeline, errSlice errutil.Slice) {
	doc, err := decodeFirstDoc(reader)
	if err != nil {
		errSlice.Add(err)
	}
	if doc == nil {
		return
	}
	var errs errutil.Slice
	pipeline, errs = visitPipelineNode(doc, args)
	errSlice.Add(errs...)
	return
}

func decodeFirstDoc(reader io.Reader) (*yaml.Node, error) {
	dec := yaml.NewDecoder(reader)
	var doc yaml.Node
	err := dec.Decode(&doc)
	if err == io.EOF {
		return nil, ErrMissingDoc
	}
	if err != nil {
		return nil, err
	}
	body, err := visitDocument(&doc)
	if err != nil {
		return nil, err
	}
	var unusedNode yaml.Node
	if err := dec.Decode(&unusedNode); err != io.EOF {
		// Continue, but only parse the first doc
		return body, ErrTooManyDocs
	}
	return unwrapNodeRec(body), nil
}

func decodeRootNodes(reader io.Reader) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(reader)
	var roots []*yaml.Node
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if err == io.EOF {
			return roots, nil
		}
		if err != nil {
			return roots, err
		}
		body, err := visitDocument(&doc)
		if err != nil {
			return roots, err
		}
		roots = append(roots, unwrapNodeRec(body))
	}
}

func unwrapNodeRec(node *yaml.Node) *yaml.Node {
	for node.Alias != nil {
		node = node.Alias
	}
	for i, child := range node.Content {
		node.Content[i] = unwrapNodeRec(child)
	}
	return node
}
