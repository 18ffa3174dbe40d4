package errutil

import (
	"errors"
	"strings"
)

// ScopeDelimiter is the string inserted between scope segments.
const ScopeDelimiter = "/"

// Scope wraps an error with a scope path, such as the YAML key path of where
// in the manifest the error originated. The full scope path can later be
// retrieved via AsScope.
func Scope(err error, paths ...string) error {
	var scoped Scoped
	scope := strings.Join(paths, ScopeDelimiter)
	if !errors.As(err, &scoped) {
		return Scoped{
			scope: scope,
			inner: err,
		}
	}
	return Scoped{
		scope: scope,
		next:  &scoped,
		inner: scoped.inner,
	}
}

// ScopeSlice wraps every error in the slice with the same scope path.
func ScopeSlice(errs Slice, paths ...string) Slice {
	result := make(Slice, len(errs))
	for i, err := range errs {
		result[i] = Scope(err, paths...)
	}
	return result
}

// AsScope returns the error's scope, or empty string if the error isn't
// scoped.
func AsScope(err error) string {
	var scoped Scoped
	if errors.As(err, &scoped) {
		return scoped.Scope()
	}
	return ""
}

// Scoped is an error wrapped with a scope path. Nesting scopes prepends
// segments, delimited by a slash.
type Scoped struct {
	scope string
	next  *Scoped
	inner error
}

// Scope returns the joined scope of this error and all inner errors.
func (err Scoped) Scope() string {
	var sb strings.Builder
	scope := &err
	for scope != nil {
		if sb.Len() > 0 {
			sb.WriteString(ScopeDelimiter)
		}
		sb.WriteString(scope.scope)
		scope = scope.next
	}
	return sb.String()
}

// Error implements the error interface.
func (err Scoped) Error() string {
	if err.inner == nil {
		return ""
	}
	return err.inner.Error()
}

// Is implements the interface to support errors.Is.
func (err Scoped) Is(target error) bool {
	return errors.Is(err.inner, target)
}

// Unwrap implements the interface to support errors.Unwrap.
func (err Scoped) Unwrap() error {
	return err.inner
}
