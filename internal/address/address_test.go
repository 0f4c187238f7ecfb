package address

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRaw(t *testing.T) {
	t.Run("scalar string", func(t *testing.T) {
		addr, err := FromRaw("DischargeInception.pressure")
		require.NoError(t, err)

		path, ok := addr.Scalar()
		assert.True(t, ok)
		assert.Equal(t, "DischargeInception.pressure", path)
	})

	t.Run("sequence is not scalar", func(t *testing.T) {
		addr, err := FromRaw([]any{"gas", "law", "pressure"})
		require.NoError(t, err)

		_, ok := addr.Scalar()
		assert.False(t, ok)
	})

	t.Run("numeric segments are rendered in general format", func(t *testing.T) {
		addr, err := FromRaw([]any{"levels", json.Number("1e5"), 2.5, 7})
		require.NoError(t, err)

		dims, err := addr.Expand(false)
		require.NoError(t, err)
		require.Len(t, dims, 1)
		assert.Equal(t, Path{"levels", "100000", "2.5", "7"}, dims[0])
	})

	t.Run("error - mapping node in address", func(t *testing.T) {
		_, err := FromRaw([]any{"gas", map[string]any{"bad": true}})
		require.Error(t, err)
	})

	t.Run("error - unparsable number", func(t *testing.T) {
		_, err := FromRaw(json.Number("not-a-number"))
		require.Error(t, err)
	})
}

func TestExpand(t *testing.T) {
	testCases := []struct {
		name      string
		raw       any
		disparate bool
		expected  []Path
		expectErr error
	}{
		{
			name:     "scalar expands to one single-segment dimension",
			raw:      "Vessel.rod_radius",
			expected: []Path{{"Vessel.rod_radius"}},
		},
		{
			name:     "flat sequence expands to one dimension",
			raw:      []any{"gas", "law", "my_ideal_gas", "pressure"},
			expected: []Path{{"gas", "law", "my_ideal_gas", "pressure"}},
		},
		{
			name: "nested sequence alternates",
			raw: []any{
				"photoionization",
				[]any{`+["reaction"="A -> B"]`, `*["reaction"="A -> C"]`},
				"efficiency",
			},
			expected: []Path{
				{"photoionization", `+["reaction"="A -> B"]`, "efficiency"},
				{"photoionization", `*["reaction"="A -> C"]`, "efficiency"},
			},
		},
		{
			name: "sibling sequences multiply",
			raw:  []any{"a", []any{"b", "c"}, []any{"d", "e"}},
			expected: []Path{
				{"a", "b", "d"},
				{"a", "c", "d"},
				{"a", "b", "e"},
				{"a", "c", "e"},
			},
		},
		{
			name: "third-level nesting forms sub-paths",
			raw:  []any{"a", []any{"b", []any{"c", "d"}}, "e"},
			expected: []Path{
				{"a", "b", "c", "e"},
				{"a", "b", "d", "e"},
			},
		},
		{
			name:      "disparate dimensions add instead of multiplying",
			raw:       []any{[]any{"a", []any{"b", "c"}}, []any{"d", []any{"e", "f"}}},
			disparate: true,
			expected: []Path{
				{"a", "b"},
				{"a", "c"},
				{"d", "e"},
				{"d", "f"},
			},
		},
		{
			name:      "disparate scalar elements each form a dimension",
			raw:       []any{"first.path", "second.path"},
			disparate: true,
			expected: []Path{
				{"first.path"},
				{"second.path"},
			},
		},
		{
			name:      "disparate flat sub-sequence stays one dimension",
			raw:       []any{[]any{"a", "b"}, "c"},
			disparate: true,
			expected: []Path{
				{"a", "b"},
				{"c"},
			},
		},
		{
			name:     "empty sequence expands to no dimensions",
			raw:      []any{},
			expected: nil,
		},
		{
			name:      "error - nesting beyond the third level",
			raw:       []any{"a", []any{"b", []any{"c", []any{"d"}}}},
			expectErr: ErrTooDeep,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := FromRaw(tc.raw)
			require.NoError(t, err)

			dims, err := addr.Expand(tc.disparate)
			if tc.expectErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, dims)
		})
	}
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "gas.law.pressure", Path{"gas", "law", "pressure"}.String())
	assert.Equal(t, "scalar", Path{"scalar"}.String())
}
