package requirement

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reactionRegex  = regexp.MustCompile(`^\s*(.*?)\s*->\s*(.*?)\s*$`)
	reactantsSplit = regexp.MustCompile(`\s+\+\s+`)
)

// MatchReaction compares two reaction equations of the form `lhs -> rhs`.
// Reactant order and multiplicity are ignored; only the set of species on
// each side is compared. Species names may themselves contain '+' (e.g.
// "O2+") as long as it is not surrounded by whitespace. An input without
// the `->` separator is an error.
func MatchReaction(expected, suggested string) (bool, error) {
	expLHS, expRHS, err := parseReaction(expected)
	if err != nil {
		return false, fmt.Errorf("expected reaction: %w", err)
	}
	sugLHS, sugRHS, err := parseReaction(suggested)
	if err != nil {
		return false, fmt.Errorf("suggested reaction: %w", err)
	}

	return setsEqual(expLHS, sugLHS) && setsEqual(expRHS, sugRHS), nil
}

func parseReaction(eq string) (lhs, rhs map[string]struct{}, err error) {
	matches := reactionRegex.FindStringSubmatch(eq)
	if matches == nil {
		return nil, nil, fmt.Errorf("%q is not a valid reaction containing \"->\"", eq)
	}
	return parseReactants(matches[1]), parseReactants(matches[2]), nil
}

func parseReactants(side string) map[string]struct{} {
	species := make(map[string]struct{})
	for _, part := range reactantsSplit.Split(side, -1) {
		species[strings.TrimSpace(part)] = struct{}{}
	}
	return species
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
