package pipeyml

import (
	"errors"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"gopkg.in/yaml.v3"
)

// Errors shared by multiple parts of the manifest parsing.
var (
	ErrKeyNotString     = errors.New("map key must be string")
	ErrKeyEmpty         = errors.New("map key must not be empty")
	ErrKeyCollision     = errors.New("map key appears more than once")
	ErrMissingDoc       = errors.New("empty document")
	ErrTooManyDocs      = errors.New("only 1 document is allowed")
	ErrInvalidFieldType = errors.New("invalid field type")
)

func wrapPosErrorNode(err error, node *yaml.Node) error {
	return errutil.NewPos(err, node.Line, node.Column)
}
