package pipeyml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"gopkg.in/yaml.v3"
)

const (
	shortTagString    = "!!str"
	shortTagNull      = "!!null"
	shortTagInt       = "!!int"
	shortTagFloat     = "!!float"
	shortTagBool      = "!!bool"
	shortTagMap       = "!!map"
	shortTagSeq       = "!!seq"
	shortTagTimestamp = "!!timestamp"
	shortTagMerge     = "!!merge"
)

func unwrapNode(node *yaml.Node) *yaml.Node {
	for node.Alias != nil {
		node = node.Alias
	}
	return node
}

func verifyKind(node *yaml.Node, wantStr string, wantKind yaml.Kind) error {
	if node.Kind != wantKind {
		return wrapPosErrorNode(fmt.Errorf("%w: expected %s, but was %s",
			ErrInvalidFieldType, wantStr, prettyNodeTypeName(node)), node)
	}
	return nil
}

func verifyTag(node *yaml.Node, wantStr string, wantTag string) error {
	if node.ShortTag() != wantTag {
		return wrapPosErrorNode(fmt.Errorf("%w: expected %s, but was %s",
			ErrInvalidFieldType, wantStr, prettyNodeTypeName(node)), node)
	}
	return nil
}

func verifyKindAndTag(node *yaml.Node, wantStr string, wantKind yaml.Kind, wantTag string) error {
	if err := verifyKind(node, wantStr, wantKind); err != nil {
		return err
	}
	return verifyTag(node, wantStr, wantTag)
}

func visitString(node *yaml.Node) (string, error) {
	node = unwrapNode(node)
	if err := verifyKindAndTag(node, "string", yaml.ScalarNode, shortTagString); err != nil {
		return "", err
	}
	return node.Value, nil
}

// visitScalar accepts any scalar value and returns it as a string, such as
// for variable values where YAML ints and bools are welcome too.
func visitScalar(node *yaml.Node) (any, error) {
	node = unwrapNode(node)
	if err := verifyKind(node, "scalar", yaml.ScalarNode); err != nil {
		return nil, err
	}
	switch node.ShortTag() {
	case shortTagInt:
		return parseInt(node.Value)
	case shortTagFloat:
		return parseFloat64(node.Value)
	case shortTagBool:
		return parseBool(node.Value)
	case shortTagNull:
		return nil, nil
	default:
		return node.Value, nil
	}
}

func parseInt(str string) (int, error) {
	num, err := strconv.ParseInt(removeUnderscores(str), 0, 0)
	if err != nil {
		return 0, err
	}
	return int(num), nil
}

func parseFloat64(str string) (float64, error) {
	num, err := strconv.ParseFloat(removeUnderscores(str), 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

func removeUnderscores(str string) string {
	// YAML supports underscore delimiters for readability, while
	// strconv does not.
	return strings.ReplaceAll(str, "_", "")
}

func parseBool(val string) (bool, error) {
	// https://yaml.org/type/bool.html
	switch val {
	case "y", "Y", "yes", "Yes", "YES",
		"true", "True", "TRUE",
		"on", "On", "ON":
		return true, nil
	case "n", "N", "no", "No", "NO",
		"off", "Off", "OFF",
		"false", "False", "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %q", val)
	}
}

type mapItem struct {
	key   strNode
	value *yaml.Node
}

type strNode struct {
	node  *yaml.Node
	value string
}

func visitMap(node *yaml.Node) (map[string]*yaml.Node, errutil.Slice) {
	pairs, errs := visitMapSlice(node)
	m := make(map[string]*yaml.Node, len(pairs))
	for _, pair := range pairs {
		m[pair.key.value] = pair.value
	}
	return m, errs
}

func visitMapSlice(node *yaml.Node) ([]mapItem, errutil.Slice) {
	node = unwrapNode(node)
	var errSlice errutil.Slice

	if err := verifyKind(node, "map", yaml.MappingNode); err != nil {
		errSlice.Add(err)
		return nil, errSlice
	}

	pairs := make([]mapItem, 0, len(node.Content)/2)
	keys := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == shortTagMerge {
			merged, errs := visitMapSlice(valueNode)
			errSlice.Add(errs...)
			pairs = append(pairs, merged...)
			continue
		}

		key, err := visitString(keyNode)
		if err != nil {
			errSlice.Add(wrapPosErrorNode(fmt.Errorf("%w: %v", ErrKeyNotString, err), keyNode))
			// non fatal error
		} else if key == "" {
			errSlice.Add(wrapPosErrorNode(ErrKeyEmpty, keyNode))
			// non fatal error
		}
		if _, ok := keys[key]; ok {
			errSlice.Add(errutil.Scope(wrapPosErrorNode(ErrKeyCollision, keyNode), key))
			continue
		}
		keys[key] = struct{}{}
		pairs = append(pairs, mapItem{strNode{keyNode, key}, valueNode})
	}
	return pairs, errSlice
}

func visitSequence(node *yaml.Node) ([]*yaml.Node, error) {
	node = unwrapNode(node)
	if err := verifyKind(node, "sequence", yaml.SequenceNode); err != nil {
		return nil, err
	}
	return node.Content, nil
}

func visitStringSequence(node *yaml.Node) ([]strNode, errutil.Slice) {
	var errSlice errutil.Slice
	seq, err := visitSequence(node)
	if err != nil {
		errSlice.Add(err)
		return nil, errSlice
	}
	strs := make([]strNode, 0, len(seq))
	for _, elem := range seq {
		str, err := visitString(elem)
		if err != nil {
			errSlice.Add(err)
			continue
		}
		strs = append(strs, strNode{elem, str})
	}
	return strs, errSlice
}

func visitDocument(node *yaml.Node) (*yaml.Node, error) {
	if err := verifyKind(node, "document", yaml.DocumentNode); err != nil {
		return nil, err
	}
	return node.Content[0], nil
}

func prettyNodeTypeName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.ScalarNode:
		return yamlShortTagName(node.ShortTag())
	default:
		return yamlKindString(node.Kind)
	}
}

func yamlKindString(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return fmt.Sprintf("unknown (%d)", kind)
	}
}

func yamlShortTagName(tag string) string {
	switch tag {
	case shortTagString:
		return "string"
	case shortTagNull:
		return "null"
	case shortTagInt:
		return "integer"
	case shortTagFloat:
		return "float"
	case shortTagBool:
		return "boolean"
	case shortTagMap:
		return "map"
	case shortTagSeq:
		return "sequence"
	case shortTagTimestamp:
		return "timestamp"
	case "":
		return "undefined"
	default:
		return strings.TrimLeft(tag, "!")
	}
}
