// Package varsub provides variable substitution for strings using the
// ${VARNAME} syntax, together with composable sources of variable values.
package varsub

import "fmt"

// Source is a variable substitution source.
type Source interface {
	// Lookup tries to look up a value based on name and returns that value as
	// well as true on success, or false if the variable was not found.
	Lookup(name string) (Var, bool)

	// ListVars returns a slice of all variables this source provides.
	ListVars() []Var
}

// Var is a single variable, together with the name of the source it came
// from, for showing users where a value was defined.
type Var struct {
	Key    string
	Value  any
	Source string
}

// String implements the fmt.Stringer interface.
func (v Var) String() string {
	return stringify(v.Value)
}

// GoString implements the fmt.GoStringer interface.
func (v Var) GoString() string {
	return fmt.Sprintf("{%q:%[2]T(%#[2]v)}", v.Key, v.Value)
}

// SourceSlice is a slice of variable substitution sources that acts as a
// source itself by returning the first successful lookup.
type SourceSlice []Source

// Lookup tries to look up a value based on name and returns that value as
// well as true on success, or false if the variable was not found.
func (s SourceSlice) Lookup(name string) (Var, bool) {
	for _, inner := range s {
		val, ok := inner.Lookup(name)
		if ok {
			return val, true
		}
	}
	return Var{}, false
}

// ListVars returns a slice of all variables from all inner sources, in
// lookup-priority order.
func (s SourceSlice) ListVars() []Var {
	var vars []Var
	for _, inner := range s {
		vars = append(vars, inner.ListVars()...)
	}
	return vars
}

var _ Source = SourceSlice{}

// Val is a variable value together with the name of the source it came from.
type Val struct {
	Value  any
	Source string
}

// String implements the fmt.Stringer interface.
func (v Val) String() string {
	return stringify(v.Value)
}

// SourceMap is a variable substitution source backed by a map.
type SourceMap map[string]Val

// Lookup tries to look up a value based on name and returns that value as
// well as true on success, or false if the variable was not found.
func (s SourceMap) Lookup(name string) (Var, bool) {
	v, ok := s[name]
	return Var{
		Key:    name,
		Value:  v.Value,
		Source: v.Source,
	}, ok
}

// ListVars returns a slice of all variables in the map, in undefined order.
func (s SourceMap) ListVars() []Var {
	var vars []Var
	for k, v := range s {
		vars = append(vars, Var{
			Key:    k,
			Value:  v.Value,
			Source: v.Source,
		})
	}
	return vars
}

var _ Source = SourceMap{}
