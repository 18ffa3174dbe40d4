package pipeyml

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/berth-ci/berth-cmd/internal/errutil"
	"github.com/berth-ci/berth-cmd/internal/pathutil"
	"github.com/berth-ci/berth-cmd/pkg/varsub"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"gopkg.in/yaml.v3"
)

var log = logger.NewScoped("MANIFEST")

const (
	varsFileName    = "berth-vars.yml"
	varsFileDotName = ".berth-vars.yml"
)

// ParseVarFiles produces a varsub.Source from the berth-vars.yml files found
// on this machine. The files it checks depends on your OS.
//
// For GNU/Linux:
//
//	$XDG_CONFIG_HOME/berth-ci/berth-cmd/berth-vars.yml
//	(if $XDG_CONFIG_HOME is unset) $HOME/.config/berth-ci/berth-cmd/berth-vars.yml
//
// For Windows:
//
//	%APPDATA%\berth-ci\berth-cmd\berth-vars.yml
//
// For Darwin (Mac OS X):
//
//	$HOME/Library/Application Support/berth-ci/berth-cmd/berth-vars.yml
//
// In addition, this function also checks the current directory and all parent
// directories above it, recursively, for a dotfile variant (.berth-vars.yml).
func ParseVarFiles(currentDir string) (varsub.Source, errutil.Slice) {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Warn().WithError(err).
			Message("Failed getting working directory. Printing paths relative to the .berth-ci.yml file instead.")
		workingDir = currentDir
	}

	varFiles := ListPossibleVarsFiles(currentDir)
	var errSlice errutil.Slice
	var filesSources varsub.SourceSlice
	for _, varFile := range varFiles {
		items, errs := tryReadVarsFileNodes(varFile.Path)
		prettyPath := varFile.PrettyPath(workingDir)
		errSlice.Add(errutil.ScopeSlice(errs, prettyPath)...)
		if len(items) == 0 {
			continue
		}
		source := make(varsub.SourceMap, len(items))
		for _, item := range items {
			value, err := visitScalar(item.value)
			if err != nil {
				errSlice.Add(errutil.Scope(err, prettyPath, item.key.value))
				continue
			}
			source[item.key.value] = varsub.Val{
				Value:  value,
				Source: prettyPath,
			}
		}
		filesSources = append(filesSources, source)
	}
	return filesSources, errSlice
}

func tryReadVarsFileNodes(path string) ([]mapItem, errutil.Slice) {
	file, err := os.Open(path)
	if err != nil {
		// Silently ignore. Could not exist, be a directory, or not readable.
		// We can't read it, so we ignore it.
		return nil, nil
	}
	defer file.Close()
	return parseVarsFileNodes(file)
}

func parseVarsFileNodes(reader io.Reader) ([]mapItem, errutil.Slice) {
	rootNodes, err := decodeRootNodes(reader)
	if err != nil {
		return nil, errutil.Slice{err}
	}
	return visitVarsFileRootNodes(rootNodes)
}

func visitVarsFileRootNodes(rootNodes []*yaml.Node) ([]mapItem, errutil.Slice) {
	var allVars []mapItem
	var errSlice errutil.Slice
	for i, root := range rootNodes {
		docNodes, errs := visitMapSlice(root)
		if len(rootNodes) > 1 {
			errSlice.Add(errutil.ScopeSlice(errs, fmt.Sprintf("doc#%d", i+1))...)
		} else {
			errSlice.Add(errs...)
		}
		for _, node := range docNodes {
			if node.key.value != propVars {
				// just silently ignore
				continue
			}
			vars, errs := visitMapSlice(node.value)
			errSlice.Add(errutil.ScopeSlice(errs, propVars)...)
			allVars = append(allVars, vars...)
		}
	}
	return allVars, errSlice
}

// VarFile is a place and kind definition of a variable file.
type VarFile struct {
	Path  string
	IsRel bool
}

// PrettyPath returns a formatted version of the path, based on if its
// relative, and using "~" as shorthand for the user's home directory.
func (f VarFile) PrettyPath(currentDir string) string {
	if f.IsRel {
		rel, err := filepath.Rel(currentDir, f.Path)
		if err == nil {
			return rel
		}
	}
	return pathutil.ShorthandHome(f.Path)
}

// ListPossibleVarsFiles returns all paths where we look for berth-vars.yml
// and .berth-vars.yml files.
//
// Returned paths include the filename.
//
// The ordering of the returned filenames are in the order of which file
// should have priority over the other; with the file of highest priority
// that should override all the others, first.
func ListPossibleVarsFiles(currentDir string) []VarFile {
	varFiles := listParentDirsPossibleVarsFiles(currentDir)

	confDir, err := os.UserConfigDir()
	if err == nil {
		varFiles = append(varFiles, VarFile{
			Path:  filepath.Join(confDir, "berth-ci", "berth-cmd", varsFileName),
			IsRel: false,
		})
	}
	return varFiles
}

func listParentDirsPossibleVarsFiles(currentDir string) []VarFile {
	var varFiles []VarFile
	for {
		varFiles = append(varFiles, VarFile{
			Path:  filepath.Join(currentDir, varsFileDotName),
			IsRel: true,
		})
		prevDir := currentDir
		currentDir = filepath.Dir(currentDir)
		if prevDir == currentDir {
			break
		}
	}
	return varFiles
}
