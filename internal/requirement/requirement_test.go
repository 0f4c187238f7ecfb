package requirement

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectErr    bool
		expectedSpec *Specifier
	}{
		{
			name: "mandatory presence-only",
			raw:  `+["some_field"]`,
			expectedSpec: &Specifier{
				Mandatory: true,
				Field:     "some_field",
			},
		},
		{
			name: "optional presence-only",
			raw:  `*["some_field"]`,
			expectedSpec: &Specifier{
				Mandatory: false,
				Field:     "some_field",
			},
		},
		{
			name: "mandatory with value",
			raw:  `+["some_field"="other_value"]`,
			expectedSpec: &Specifier{
				Mandatory: true,
				Field:     "some_field",
				Value:     "other_value",
			},
		},
		{
			name: "typed value",
			raw:  `+["reaction"=<chem_react>"Y + (O2) -> e + O2+"]`,
			expectedSpec: &Specifier{
				Mandatory: true,
				Field:     "reaction",
				MatchType: "chem_react",
				Value:     "Y + (O2) -> e + O2+",
			},
		},
		{
			name: "optional typed value",
			raw:  `*["reaction"=<chem_react>"Y + (O2) -> (null)"]`,
			expectedSpec: &Specifier{
				Mandatory: false,
				Field:     "reaction",
				MatchType: "chem_react",
				Value:     "Y + (O2) -> (null)",
			},
		},
		{
			name: "empty type tag falls back to plain equality",
			raw:  `+["field"=<>"value"]`,
			expectedSpec: &Specifier{
				Mandatory: true,
				Field:     "field",
				Value:     "value",
			},
		},
		{
			name: "interior whitespace tolerated",
			raw:  `+[ "field" = "value" ]`,
			expectedSpec: &Specifier{
				Mandatory: true,
				Field:     "field",
				Value:     "value",
			},
		},
		{
			name:      "error - empty string",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - missing brackets",
			raw:       `+"field"`,
			expectErr: true,
		},
		{
			name:      "error - unquoted field",
			raw:       `+[field]`,
			expectErr: true,
		},
		{
			name:      "error - empty field",
			raw:       `+[""]`,
			expectErr: true,
		},
		{
			name:      "error - missing requirement marker",
			raw:       `["field"]`,
			expectErr: true,
		},
		{
			name:      "error - value without quotes",
			raw:       `+["field"=value]`,
			expectErr: true,
		},
		{
			name:      "error - trailing garbage",
			raw:       `+["field"] extra`,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, spec)
			assert.Equal(t, tc.expectedSpec, spec)
		})
	}
}

func TestIsSpecifier(t *testing.T) {
	assert.True(t, IsSpecifier(`+["field"]`))
	assert.True(t, IsSpecifier(`*["field"]`))
	assert.False(t, IsSpecifier("plain_key"))
	assert.False(t, IsSpecifier("+not_a_spec"))
	assert.False(t, IsSpecifier(""))
}

func TestSpecifierMatch(t *testing.T) {
	testCases := []struct {
		name       string
		raw        string
		fieldValue any
		expectOK   bool
		expectErr  bool
	}{
		{
			name:       "presence-only matches any value",
			raw:        `+["field"]`,
			fieldValue: "whatever",
			expectOK:   true,
		},
		{
			name:       "string equality match",
			raw:        `+["field"="abc"]`,
			fieldValue: "abc",
			expectOK:   true,
		},
		{
			name:       "string equality mismatch",
			raw:        `+["field"="abc"]`,
			fieldValue: "abd",
			expectOK:   false,
		},
		{
			name:       "number equality against json.Number",
			raw:        `+["index"="2"]`,
			fieldValue: json.Number("2"),
			expectOK:   true,
		},
		{
			name:       "number equality against float",
			raw:        `+["pressure"="1e5"]`,
			fieldValue: 100000.0,
			expectOK:   true,
		},
		{
			name:       "number mismatch",
			raw:        `+["index"="2"]`,
			fieldValue: json.Number("3"),
			expectOK:   false,
		},
		{
			name:       "non-numeric selector never matches a number",
			raw:        `+["index"="two"]`,
			fieldValue: json.Number("2"),
			expectOK:   false,
		},
		{
			name:       "bool equality",
			raw:        `+["enabled"="true"]`,
			fieldValue: true,
			expectOK:   true,
		},
		{
			name:       "reaction match ignores reactant order",
			raw:        `+["reaction"=<chem_react>"Y + (O2) -> e + O2+"]`,
			fieldValue: "(O2) + Y -> O2+ + e",
			expectOK:   true,
		},
		{
			name:       "reaction mismatch",
			raw:        `+["reaction"=<chem_react>"Y + (O2) -> e + O2+"]`,
			fieldValue: "Y + (O2) -> (null)",
			expectOK:   false,
		},
		{
			name:       "reaction alias tag",
			raw:        `+["reaction"=<reaction>"A + B -> C"]`,
			fieldValue: "B + A -> C",
			expectOK:   true,
		},
		{
			name:       "reaction match against non-string errors",
			raw:        `+["reaction"=<chem_react>"A -> B"]`,
			fieldValue: 42.0,
			expectErr:  true,
		},
		{
			name:       "reaction match against invalid equation errors",
			raw:        `+["reaction"=<chem_react>"A -> B"]`,
			fieldValue: "no separator here",
			expectErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := Parse(tc.raw)
			require.NoError(t, err)

			ok, err := spec.Match(tc.fieldValue)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectOK, ok)
		})
	}
}

func TestSpecifierString(t *testing.T) {
	for _, raw := range []string{
		`+["some_field"]`,
		`*["some_field"]`,
		`+["field"="value"]`,
		`+["reaction"=<chem_react>"Y + (O2) -> e + O2+"]`,
	} {
		spec, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, spec.String())
	}
}
