package pipeyml

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/berth-ci/berth-cmd/internal/errtestutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListParentDirsPossibleVarsFiles(t *testing.T) {
	currentDir := filepath.FromSlash("/home/root/repos/my-repo")
	got := listParentDirsPossibleVarsFiles(currentDir)
	var gotPaths []string
	for _, f := range got {
		gotPaths = append(gotPaths, filepath.ToSlash(f.Path))
	}
	want := []string{
		"/home/root/repos/my-repo/.berth-vars.yml",
		"/home/root/repos/.berth-vars.yml",
		"/home/root/.berth-vars.yml",
		"/home/.berth-vars.yml",
		"/.berth-vars.yml",
	}
	assert.Equal(t, want, gotPaths)
}

func TestParseVarsFileNodes(t *testing.T) {
	items, errs := parseVarsFileNodes(strings.NewReader(`
vars:
  myString: foo bar
  myInt: 123
  myBool: true
`))
	errtestutil.RequireNoErr(t, errs)
	require.Len(t, items, 3)

	byKey := make(map[string]any, len(items))
	for _, item := range items {
		value, err := visitScalar(item.value)
		require.NoError(t, err, item.key.value)
		byKey[item.key.value] = value
	}
	assert.Equal(t, "foo bar", byKey["myString"])
	assert.Equal(t, 123, byKey["myInt"])
	assert.Equal(t, true, byKey["myBool"])
}

func TestParseVarsFileNodes_IgnoresOtherKeys(t *testing.T) {
	items, errs := parseVarsFileNodes(strings.NewReader(`
something-else:
  myString: foo bar
vars:
  myInt: 123
`))
	errtestutil.RequireNoErr(t, errs)
	require.Len(t, items, 1)
	assert.Equal(t, "myInt", items[0].key.value)
}

func TestParseVarsFileNodes_MultipleDocs(t *testing.T) {
	items, errs := parseVarsFileNodes(strings.NewReader(`
vars:
  myFirst: 1
---
vars:
  mySecond: 2
`))
	errtestutil.RequireNoErr(t, errs)
	require.Len(t, items, 2)
	assert.Equal(t, "myFirst", items[0].key.value)
	assert.Equal(t, "mySecond", items[1].key.value)
}
