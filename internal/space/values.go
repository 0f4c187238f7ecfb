package space

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/fjordsim/sweepforge/internal/document"
)

// canonicalKey renders a combination value into a stable string so that
// the same value compares equal across representations: numbers from
// different sources (json.Number literals like "1e5" and "100000.0",
// plain floats) collapse to one key.
func canonicalKey(v any) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any) {
	if f, ok := toFloat(v); ok {
		sb.WriteString("n:")
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return
	}

	switch t := v.(type) {
	case string:
		sb.WriteString("s:")
		sb.WriteString(t)
	case bool:
		sb.WriteString("b:")
		sb.WriteString(strconv.FormatBool(t))
	case nil:
		sb.WriteString("z")
	case *document.Seq:
		sb.WriteByte('[')
		for i := 0; i < t.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, t.At(i))
		}
		sb.WriteByte(']')
	case []any:
		sb.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, item)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("?:")
		b, err := json.Marshal(t)
		if err == nil {
			sb.Write(b)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// EqualValues reports whether two combination values are the same under
// canonical comparison.
func EqualValues(a, b any) bool {
	return canonicalKey(a) == canonicalKey(b)
}

// EqualCombinations reports whether two combinations match element for
// element.
func EqualCombinations(a, b Combination) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualValues(a[i], b[i]) {
			return false
		}
	}
	return true
}

// typeRank orders values of different kinds for deterministic sorting:
// numbers, then strings, then bools, then nulls, then sequences.
func typeRank(v any) int {
	if _, ok := toFloat(v); ok {
		return 0
	}
	switch v.(type) {
	case string:
		return 1
	case bool:
		return 2
	case nil:
		return 3
	case *document.Seq, []any:
		return 4
	default:
		return 5
	}
}

// compareValues orders two combination values: numerically when both
// are numbers, element-wise for sequences, by canonical key otherwise.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}

	switch ra {
	case 0:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case 4:
		return compareSeqs(seqItems(a), seqItems(b))
	default:
		return strings.Compare(canonicalKey(a), canonicalKey(b))
	}
}

func seqItems(v any) []any {
	switch t := v.(type) {
	case *document.Seq:
		items := make([]any, t.Len())
		for i := range items {
			items[i] = t.At(i)
		}
		return items
	case []any:
		return t
	default:
		return nil
	}
}

func compareSeqs(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// CompareCombinations orders combinations element-wise, shorter rows
// first on ties.
func CompareCombinations(a, b Combination) int {
	return compareSeqs(a, b)
}
