// Package address models the structural paths used to locate values
// inside nested configuration documents. An address as written in a run
// definition is either a scalar path string or a nested sequence of
// segments; expansion flattens it into one or more concrete dimension
// paths.
package address

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Path is one fully expanded flat address: the segments to descend,
// outermost first. A segment is either a plain mapping key or a
// requirement selector string.
type Path []string

// String joins the segments with '.' for log and error output.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// element is one node of the parsed address tree.
type element struct {
	leaf  string
	seq   []element
	isSeq bool
}

// Address is the validated form of an address as it appears in a run
// definition.
type Address struct {
	root element
	raw  any
}

// FromRaw validates and wraps a raw address value decoded from a run
// definition: a string, a number, a bool, or a nested sequence of those.
// Mapping nodes and other types are rejected.
func FromRaw(raw any) (*Address, error) {
	root, err := parseElement(raw)
	if err != nil {
		return nil, err
	}
	return &Address{root: root, raw: raw}, nil
}

func parseElement(raw any) (element, error) {
	switch v := raw.(type) {
	case string:
		return element{leaf: v}, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return element{}, fmt.Errorf("address segment %q: %w", v.String(), err)
		}
		return element{leaf: formatNumber(f)}, nil
	case float64:
		return element{leaf: formatNumber(v)}, nil
	case int:
		return element{leaf: strconv.Itoa(v)}, nil
	case int64:
		return element{leaf: strconv.FormatInt(v, 10)}, nil
	case bool:
		return element{leaf: strconv.FormatBool(v)}, nil
	case []any:
		seq := make([]element, 0, len(v))
		for _, item := range v {
			child, err := parseElement(item)
			if err != nil {
				return element{}, err
			}
			seq = append(seq, child)
		}
		return element{seq: seq, isSeq: true}, nil
	default:
		return element{}, fmt.Errorf("unsupported address segment type %T", raw)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Raw returns the address value as it appeared in the run definition,
// for re-serialization into structure files.
func (a *Address) Raw() any {
	return a.raw
}

// Scalar returns the address as a plain path string. Only scalar
// addresses can target line-oriented input files.
func (a *Address) Scalar() (string, bool) {
	if a.root.isSeq {
		return "", false
	}
	return a.root.leaf, true
}

// String renders the raw address form for diagnostics.
func (a *Address) String() string {
	return fmt.Sprintf("%v", a.raw)
}
