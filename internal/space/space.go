// Package space models parameter spaces: the ordered mapping of
// parameter names to their target files, addresses, and value sets, the
// Cartesian expansion of those values into combinations, and the
// deduplicated combination sets shared with producing databases.
package space

import (
	"fmt"

	"github.com/fjordsim/sweepforge/internal/address"
)

// Param is one parameter definition inside a space.
type Param struct {
	// Name is the parameter's key in the space. Unique, and the order
	// of names fixes the column order of every combination.
	Name string

	// Target is the file the parameter patches, relative to the run
	// directory. Empty for bookkeeping parameters that are recorded in
	// the index but never drive a patch.
	Target string

	// Address locates the value inside the target. Nil when the
	// parameter has no target.
	Address *address.Address

	// Values is the ordered value set the combination product draws
	// from.
	Values []any

	// Database names the producing database this parameter's values
	// are shared with, empty for purely local parameters.
	Database string

	// Disparate marks a multi-dimension address whose dimensions add
	// instead of multiplying.
	Disparate bool
}

// Space is an insertion-ordered parameter space.
type Space struct {
	params []Param
	byName map[string]int
}

// New builds a space from parameters in declaration order. Duplicate
// names are rejected.
func New(params []Param) (*Space, error) {
	s := &Space{
		params: params,
		byName: make(map[string]int, len(params)),
	}
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter %d has an empty name", i)
		}
		if _, ok := s.byName[p.Name]; ok {
			return nil, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		s.byName[p.Name] = i
	}
	return s, nil
}

// Keys returns the parameter names in declaration order.
func (s *Space) Keys() []string {
	keys := make([]string, len(s.params))
	for i, p := range s.params {
		keys[i] = p.Name
	}
	return keys
}

// Params returns the parameters in declaration order. The returned
// slice is shared; callers must not modify it.
func (s *Space) Params() []Param {
	return s.params
}

// Get returns the parameter with the given name.
func (s *Space) Get(name string) (*Param, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.params[i], true
}

// Len returns the number of parameters.
func (s *Space) Len() int {
	return len(s.params)
}

// Combination is one concrete assignment of values to every parameter,
// in key order.
type Combination []any

// Combinations expands the space into the Cartesian product of its
// value sets, in key order with the last key varying fastest. Every
// parameter must carry at least one value.
func (s *Space) Combinations() ([]Combination, error) {
	total := 1
	for _, p := range s.params {
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("parameter %q has no values", p.Name)
		}
		total *= len(p.Values)
	}

	combs := make([]Combination, 0, total)
	counters := make([]int, len(s.params))
	for {
		row := make(Combination, len(s.params))
		for i, p := range s.params {
			row[i] = p.Values[counters[i]]
		}
		combs = append(combs, row)

		i := len(counters) - 1
		for ; i >= 0; i-- {
			counters[i]++
			if counters[i] < len(s.params[i].Values) {
				break
			}
			counters[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return combs, nil
}

// DatabaseRef groups the parameters of a space that share one producing
// database.
type DatabaseRef struct {
	Database string
	Keys     []string
}

// DatabaseRefs returns the space's database dependencies in order of
// first reference, each with the referencing parameter names in
// declaration order.
func (s *Space) DatabaseRefs() []DatabaseRef {
	var refs []DatabaseRef
	index := make(map[string]int)
	for _, p := range s.params {
		if p.Database == "" {
			continue
		}
		i, ok := index[p.Database]
		if !ok {
			i = len(refs)
			index[p.Database] = i
			refs = append(refs, DatabaseRef{Database: p.Database})
		}
		refs[i].Keys = append(refs[i].Keys, p.Name)
	}
	return refs
}

// SortOrder computes the permutation that reorders subset to match the
// relative order of producer. The returned indices satisfy
// subset[order[0]], subset[order[1]], ... appearing in producer order.
// Every subset key must occur in producer.
func SortOrder(subset, producer []string) ([]int, error) {
	pos := make(map[string]int, len(producer))
	for i, key := range producer {
		pos[key] = i
	}

	order := make([]int, len(subset))
	for i := range order {
		order[i] = i
	}
	for _, key := range subset {
		if _, ok := pos[key]; !ok {
			return nil, fmt.Errorf("key %q not present in producer order %v", key, producer)
		}
	}

	// stable insertion sort by producer position
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && pos[subset[order[j-1]]] > pos[subset[order[j]]]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	return order, nil
}

// Project extracts the values of a combination at the given column
// indices, in index order.
func Project(c Combination, indices []int) Combination {
	row := make(Combination, len(indices))
	for i, idx := range indices {
		row[i] = c[idx]
	}
	return row
}

// ProjectionIndices returns the column indices that project a consumer
// combination onto the shared keys in the producer's own key order,
// regardless of the order the consumer referenced them in. dbKeys are
// the consumer parameter names backed by the producer; consumerKeys and
// producerKeys are the respective full key orders.
func ProjectionIndices(consumerKeys, dbKeys, producerKeys []string) ([]int, error) {
	pos := make(map[string]int, len(consumerKeys))
	for i, key := range consumerKeys {
		pos[key] = i
	}

	indices := make([]int, len(dbKeys))
	for i, key := range dbKeys {
		idx, ok := pos[key]
		if !ok {
			return nil, fmt.Errorf("key %q not present in consumer order %v", key, consumerKeys)
		}
		indices[i] = idx
	}

	order, err := SortOrder(dbKeys, producerKeys)
	if err != nil {
		return nil, err
	}

	sorted := make([]int, len(order))
	for i, o := range order {
		sorted[i] = indices[o]
	}
	return sorted, nil
}

// AccumulateDatabaseRequests projects every consumer combination onto
// the producer's key order and adds the result to acc, the producer's
// deduplicating request set. The accumulator is owned by the caller;
// many consumers feed the same set.
func AccumulateDatabaseRequests(acc *CombinationSet, consumerKeys, dbKeys, producerKeys []string, combs []Combination) error {
	indices, err := ProjectionIndices(consumerKeys, dbKeys, producerKeys)
	if err != nil {
		return err
	}
	for _, c := range combs {
		acc.Add(Project(c, indices))
	}
	return nil
}
