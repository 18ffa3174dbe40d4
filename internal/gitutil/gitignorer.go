package gitutil

import (
	"github.com/berth-ci/berth-cmd/internal/ignorer"
	"github.com/denormal/go-gitignore"
)

// NewIgnorer creates a new ignorer that checks if a file should be ignored or
// not depending on the .gitignore files found inside the repository.
func NewIgnorer(repoRoot string) (ignorer.Ignorer, error) {
	repo, err := gitignore.NewRepository(repoRoot)
	if err != nil {
		return nil, err
	}
	return &gitIgnorer{repo}, nil
}

type gitIgnorer struct {
	repo gitignore.GitIgnore
}

func (i *gitIgnorer) Ignore(absPath, _ string) bool {
	// gitignore.GitIgnore has an .Ignore function, but it isn't implemented
	// on the repository level, so route through .Match instead.
	match := i.repo.Match(absPath)
	if match == nil {
		return false
	}
	return match.Ignore()
}
