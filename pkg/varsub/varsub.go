package varsub

import (
	"errors"
	"regexp"
	"strings"

	"github.com/berth-ci/berth-cmd/internal/strutil"
)

// Errors that can occur during substitution.
var (
	ErrRecursiveLoop = errors.New("recursive variable loop")
)

// VarMatch is a single ${} occurrence inside a string.
type VarMatch struct {
	Name       string
	FullMatch  string
	StartIndex int
	EndIndex   int
}

var varSyntaxPattern = regexp.MustCompile(`\${\s*(%*[\w\s-]*%*)\s*}`)
var varNamePattern = regexp.MustCompile(`\s*([\w-]*[\s_-]*[\w-]+)\s*`)
var escapedVarPattern = regexp.MustCompile(`%(\s*[\w\s-]*\s*)%`)

// Substitute applies variable substitution on a string using the ${VARNAME}
// syntax, looking up values in the given source.
//
// Variables that are not found in the source are left untouched. A value that
// itself contains ${} expressions is substituted recursively, where a
// self-referencing loop results in ErrRecursiveLoop.
//
// If the whole string is a single ${} expression then the looked-up value is
// returned as-is, without stringifying, to let YAML values keep their type.
func Substitute(value string, source Source) (any, error) {
	return substituteRec(value, source, nil)
}

func substituteRec(value string, source Source, usedVars []string) (any, error) {
	result := value
	matches := Matches(value)
	for _, match := range matches {
		var matchVal any
		if match.Name == "%" {
			matchVal = "${}"
		} else if escapedVarPattern.MatchString(match.Name) {
			matchVal = escapedVarPattern.ReplaceAllString(match.Name, "${$1}")
		} else {
			if containsString(usedVars, match.Name) {
				return nil, ErrRecursiveLoop
			}
			v, ok := source.Lookup(match.Name)
			if !ok {
				continue
			}
			matchVal = v.Value
			if str, ok := matchVal.(string); ok && strings.Contains(str, "${") {
				var err error
				matchVal, err = substituteRec(str, source, append(usedVars, match.Name))
				if err != nil {
					return nil, err
				}
			}
		}
		if len(matches) == 1 && len(value) == len(match.FullMatch) {
			// keep the value as-is if it matches the whole source string
			return matchVal, nil
		}
		result = strings.Replace(result, match.FullMatch, strutil.Stringify(matchVal), 1)
	}
	return result, nil
}

// Matches returns all ${} occurrences inside a string.
func Matches(source string) []VarMatch {
	matches := varSyntaxPattern.FindAllStringSubmatchIndex(source, -1)
	var vars []VarMatch
	for _, match := range matches {
		start, end := match[2], match[3]
		varName := source[start:end]
		if varName == "" {
			continue
		}
		if varName[0] != '%' {
			varName = varNamePattern.ReplaceAllString(varName, "$1")
		}
		vars = append(vars, VarMatch{
			Name:       varName,
			FullMatch:  source[match[0]:match[1]],
			StartIndex: start,
			EndIndex:   end,
		})
	}
	return vars
}

func containsString(slice []string, element string) bool {
	for _, v := range slice {
		if v == element {
			return true
		}
	}
	return false
}

func stringify(val any) string {
	return strutil.Stringify(val)
}
