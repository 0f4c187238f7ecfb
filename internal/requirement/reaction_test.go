package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchReaction(t *testing.T) {
	testCases := []struct {
		name      string
		expected  string
		suggested string
		match     bool
		expectErr bool
	}{
		{
			name:      "reactant order is irrelevant",
			expected:  "A + B -> C",
			suggested: "B + A -> C",
			match:     true,
		},
		{
			name:      "different products do not match",
			expected:  "A -> B",
			suggested: "A -> C",
			match:     false,
		},
		{
			name:      "multiplicity is ignored",
			expected:  "A + A -> B",
			suggested: "A -> B",
			match:     true,
		},
		{
			name:      "species names may contain plus signs",
			expected:  "Y + (O2) -> e + O2+",
			suggested: "(O2) + Y -> O2+ + e",
			match:     true,
		},
		{
			name:      "surrounding whitespace ignored",
			expected:  "  A + B -> C  ",
			suggested: "A + B -> C",
			match:     true,
		},
		{
			name:      "lhs differs",
			expected:  "A + B -> C",
			suggested: "A -> C",
			match:     false,
		},
		{
			name:      "error - expected side has no arrow",
			expected:  "A + B",
			suggested: "A -> C",
			expectErr: true,
		},
		{
			name:      "error - suggested side has no arrow",
			expected:  "A -> C",
			suggested: "nothing here",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			match, err := MatchReaction(tc.expected, tc.suggested)

			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.match, match)
		})
	}
}
