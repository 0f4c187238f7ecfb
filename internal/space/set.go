package space

import (
	"sort"
	"strings"
)

// CombinationSet accumulates the deduplicated combination rows a
// producing database must materialize. Many consumer combinations may
// project onto one producer row; the set collapses them.
type CombinationSet struct {
	rows map[string]Combination
}

// NewCombinationSet creates an empty set.
func NewCombinationSet() *CombinationSet {
	return &CombinationSet{rows: make(map[string]Combination)}
}

// Add inserts a combination, ignoring rows already present.
func (s *CombinationSet) Add(c Combination) {
	key := combinationKey(c)
	if _, ok := s.rows[key]; !ok {
		s.rows[key] = c
	}
}

// AddAll inserts every combination.
func (s *CombinationSet) AddAll(combs []Combination) {
	for _, c := range combs {
		s.Add(c)
	}
}

// Len returns the number of distinct rows.
func (s *CombinationSet) Len() int {
	return len(s.rows)
}

// Contains reports whether the set holds an equal combination.
func (s *CombinationSet) Contains(c Combination) bool {
	_, ok := s.rows[combinationKey(c)]
	return ok
}

// Sorted returns the rows in ascending element-wise order, giving every
// row a stable position independent of insertion order.
func (s *CombinationSet) Sorted() []Combination {
	rows := make([]Combination, 0, len(s.rows))
	for _, c := range s.rows {
		rows = append(rows, c)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return CompareCombinations(rows[i], rows[j]) < 0
	})
	return rows
}

func combinationKey(c Combination) string {
	var sb strings.Builder
	for i, v := range c {
		if i > 0 {
			sb.WriteByte('|')
		}
		writeCanonical(&sb, v)
	}
	return sb.String()
}
