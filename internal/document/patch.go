package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjordsim/sweepforge/internal/address"
	"github.com/fjordsim/sweepforge/internal/ctxlog"
	"github.com/fjordsim/sweepforge/internal/requirement"
)

// ErrMissingRequiredElement reports a mandatory requirement specifier
// that matched no element of its sequence.
var ErrMissingRequiredElement = errors.New("missing list element has requirement")

// SetValue applies value at path inside the document tree rooted at
// root. Non-terminal segments descend: at a mapping node the segment is
// a plain key, created as an empty mapping when absent. At a sequence
// node the segment must be a requirement specifier; the first matching
// mapping element is entered. A mandatory specifier with no match fails
// with ErrMissingRequiredElement, while an optional one appends a new
// mapping seeded with the specifier's field and value and descends into
// it. The terminal segment sets the value on the final mapping node.
func SetValue(ctx context.Context, root any, path address.Path, value any) error {
	if len(path) == 0 {
		return errors.New("empty address path")
	}

	cur := root
	for _, seg := range path[:len(path)-1] {
		next, err := descend(ctx, cur, seg)
		if err != nil {
			return fmt.Errorf("segment %q of %s: %w", seg, path, err)
		}
		cur = next
	}

	final, ok := cur.(*Map)
	if !ok {
		return fmt.Errorf("cannot set key %q on non-mapping node (%T) at %s",
			path[len(path)-1], cur, path)
	}
	final.Set(path[len(path)-1], value)
	return nil
}

func descend(ctx context.Context, node any, seg string) (any, error) {
	switch n := node.(type) {
	case *Map:
		child, ok := n.Get(seg)
		if !ok {
			child = NewMap()
			n.Set(seg, child)
		}
		return child, nil

	case *Seq:
		if !requirement.IsSpecifier(seg) {
			return nil, fmt.Errorf("no requirement found for matching to list element")
		}
		spec, err := requirement.Parse(seg)
		if err != nil {
			return nil, err
		}
		return descendSeq(ctx, n, spec)

	default:
		return nil, fmt.Errorf("cannot descend into scalar node (%T)", node)
	}
}

func descendSeq(ctx context.Context, seq *Seq, spec *requirement.Specifier) (any, error) {
	logger := ctxlog.FromContext(ctx)

	for i := 0; i < seq.Len(); i++ {
		element, ok := seq.At(i).(*Map)
		if !ok {
			logger.Warn("Found non-mapping element in list when matching requirement, skipping.",
				"index", i)
			continue
		}

		fieldValue, ok := element.Get(spec.Field)
		if !ok {
			continue
		}

		matched, err := spec.Match(fieldValue)
		if err != nil {
			return nil, err
		}
		if matched {
			return element, nil
		}
	}

	if spec.Mandatory {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredElement, spec)
	}

	created := NewMap()
	if spec.HasValue() {
		created.Set(spec.Field, spec.Value)
	} else {
		created.Set(spec.Field, nil)
	}
	seq.Append(created)
	return created, nil
}
