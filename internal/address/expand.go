package address

import "errors"

// ErrTooDeep reports address nesting beyond the supported three
// structural levels.
var ErrTooDeep = errors.New("nested address lists are not allowed beyond the third level")

// Expand flattens the address into its ordered dimension paths.
//
// A scalar address expands to exactly one single-segment path, and a
// top-level sequence of scalars to exactly one path of those segments.
// A nested sequence introduces new dimensions: each of its expansions is
// combined with every dimension path accumulated so far (a tree
// product), so two sibling 2-element sequences under one scalar parent
// yield four dimensions. Scalar segments before, between, and after
// nested sequences become shared prefixes and suffixes of every
// dimension path.
//
// With disparate set, each top-level element instead expands
// independently and contributes its dimensions to the result as-is:
// dimension counts add rather than multiply, for parameters that
// scatter their value slices across unrelated target locations.
func (a *Address) Expand(disparate bool) ([]Path, error) {
	if !a.root.isSeq {
		return []Path{{a.root.leaf}}, nil
	}

	if disparate {
		var dims []Path
		for _, el := range a.root.seq {
			sub, err := expand(el, 0)
			if err != nil {
				return nil, err
			}
			dims = append(dims, sub...)
		}
		return dims, nil
	}

	return expand(a.root, 0)
}

// expand walks one element of the address tree and returns its
// dimension paths. level counts sequence nesting below the top-level
// address sequence: at level 0 a flat sequence is a single path, while
// deeper flat sequences enumerate single-segment alternatives consumed
// by the parent's tree product.
func expand(el element, level int) ([]Path, error) {
	if !el.isSeq {
		return []Path{{el.leaf}}, nil
	}
	if len(el.seq) == 0 {
		return nil, nil
	}

	sawNested := false
	paths := []Path{nil}
	for _, child := range el.seq {
		if !child.isSeq {
			for i := range paths {
				paths[i] = append(paths[i], child.leaf)
			}
			continue
		}

		if level > 0 {
			for _, sub := range child.seq {
				if sub.isSeq {
					return nil, ErrTooDeep
				}
			}
		}
		sawNested = true

		sub, err := expand(child, level+1)
		if err != nil {
			return nil, err
		}

		product := make([]Path, 0, len(paths)*len(sub))
		for _, tail := range sub {
			for _, head := range paths {
				joined := make(Path, 0, len(head)+len(tail))
				joined = append(joined, head...)
				joined = append(joined, tail...)
				product = append(product, joined)
			}
		}
		paths = product
	}

	if !sawNested && level > 0 {
		// A flat sequence below the top level is an alternation, one
		// dimension per segment, not a single path.
		alts := make([]Path, len(paths[0]))
		for i, seg := range paths[0] {
			alts[i] = Path{seg}
		}
		return alts, nil
	}
	return paths, nil
}
