// Package requirement parses and evaluates the selector strings used to
// pick an element out of a sequence of mapping nodes, e.g.
// `+["reaction"=<chem_react>"Y + (O2) -> e + O2+"]`.
package requirement

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformed reports a selector string that does not match the grammar.
var ErrMalformed = errors.New("malformed requirement specifier")

// MatchTypeReaction selects reactant-set comparison instead of plain
// equality. "reaction" is accepted as an alias.
const MatchTypeReaction = "chem_react"

// specRegex encodes the grammar ('+'|'*') '[' '"'field'"' ['=' ['<'type'>']
// '"'value'"'] ']'. Whitespace is allowed around the inner tokens.
var specRegex = regexp.MustCompile(
	`^(?P<req>[+*])\[\s*"(?P<field>.+?)"\s*` +
		`(?:=\s*(?:<(?P<type>.+?)?>)?\s*"(?P<value>.+?)")?` +
		`\s*\]$`)

// Specifier is the parsed form of a selector string.
type Specifier struct {
	// Mandatory is true for '+' selectors: a sequence with no matching
	// element is an error. '*' selectors create the element instead.
	Mandatory bool

	// Field is the mapping key the selector tests. Never empty.
	Field string

	// MatchType is the optional <type> tag, empty when absent.
	MatchType string

	// Value is the right-hand side to compare against. Empty means the
	// selector is presence-only (the grammar cannot produce an empty
	// quoted value).
	Value string
}

// IsSpecifier reports whether a path segment is intended as a selector.
// Used to distinguish selector segments from plain mapping keys before
// attempting a full parse.
func IsSpecifier(segment string) bool {
	return strings.HasPrefix(segment, "+[") || strings.HasPrefix(segment, "*[")
}

// Parse creates a Specifier by parsing its textual form. A string that
// does not match the grammar yields an error wrapping ErrMalformed.
func Parse(raw string) (*Specifier, error) {
	matches := specRegex.FindStringSubmatch(raw)
	if matches == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	spec := &Specifier{
		Mandatory: matches[specRegex.SubexpIndex("req")] == "+",
		Field:     matches[specRegex.SubexpIndex("field")],
		MatchType: matches[specRegex.SubexpIndex("type")],
		Value:     matches[specRegex.SubexpIndex("value")],
	}
	return spec, nil
}

// HasValue reports whether the selector carries a value to compare, as
// opposed to testing field presence only.
func (s *Specifier) HasValue() bool {
	return s.Value != ""
}

// Match evaluates the specifier against the value found under its Field
// in a candidate mapping node. The caller handles field absence; Match
// only decides whether a present value satisfies the selector.
func (s *Specifier) Match(fieldValue any) (bool, error) {
	if !s.HasValue() {
		return true, nil
	}

	switch s.MatchType {
	case MatchTypeReaction, "reaction":
		str, ok := fieldValue.(string)
		if !ok {
			return false, fmt.Errorf("field %q: reaction match against non-string value %v", s.Field, fieldValue)
		}
		return MatchReaction(s.Value, str)
	default:
		return scalarEqual(fieldValue, s.Value), nil
	}
}

// scalarEqual compares a document scalar against the selector's textual
// value. Strings compare directly; numbers compare numerically so that
// `+["index"="2"]` matches both the string "2" and the number 2.
func scalarEqual(fieldValue any, want string) bool {
	switch v := fieldValue.(type) {
	case string:
		return v == want
	case json.Number:
		fv, err := v.Float64()
		if err != nil {
			return v.String() == want
		}
		wf, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return false
		}
		return fv == wf
	case float64:
		wf, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return false
		}
		return v == wf
	case int:
		wf, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return false
		}
		return float64(v) == wf
	case bool:
		return strconv.FormatBool(v) == want
	default:
		return false
	}
}

// String renders the specifier back into its textual form.
func (s *Specifier) String() string {
	var sb strings.Builder
	if s.Mandatory {
		sb.WriteByte('+')
	} else {
		sb.WriteByte('*')
	}
	sb.WriteByte('[')
	fmt.Fprintf(&sb, "%q", s.Field)
	if s.HasValue() {
		sb.WriteByte('=')
		if s.MatchType != "" {
			fmt.Fprintf(&sb, "<%s>", s.MatchType)
		}
		fmt.Fprintf(&sb, "%q", s.Value)
	}
	sb.WriteByte(']')
	return sb.String()
}
