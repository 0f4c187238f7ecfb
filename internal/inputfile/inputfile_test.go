package inputfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjordsim/sweepforge/internal/document"
)

const masterInputs = `# chombo-discharge master input
Vessel.rod_radius   = 500e-6    # electrode radius
DischargeInception.pressure = 1e5
Plot.interval=10
`

func writeInputs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.inputs")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestSetField(t *testing.T) {
	t.Run("rewrites value and keeps comment column", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		require.NoError(t, SetField(path, "Vessel.rod_radius", json.Number("0.00075")))

		expected := `# chombo-discharge master input
Vessel.rod_radius   = 0.00075   # [script-altered] electrode radius
DischargeInception.pressure = 1e5
Plot.interval=10
`
		assert.Equal(t, expected, readBack(t, path))
	})

	t.Run("second application is byte-identical", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		require.NoError(t, SetField(path, "Vessel.rod_radius", json.Number("0.00075")))
		first := readBack(t, path)

		require.NoError(t, SetField(path, "Vessel.rod_radius", json.Number("0.00075")))
		assert.Equal(t, first, readBack(t, path))
	})

	t.Run("line without comment gains marker", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		require.NoError(t, SetField(path, "DischargeInception.pressure", json.Number("2e5")))

		assert.Contains(t, readBack(t, path),
			"DischargeInception.pressure = 2e5 # [script-altered]\n")
	})

	t.Run("compact line keeps its shape", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		require.NoError(t, SetField(path, "Plot.interval", json.Number("25")))

		assert.Contains(t, readBack(t, path), "Plot.interval=25 # [script-altered]\n")
	})

	t.Run("missing key is appended with marker", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		require.NoError(t, SetField(path, "Driver.max_steps", json.Number("0")))

		assert.Equal(t, masterInputs+"\nDriver.max_steps = 0 #[script-added]",
			readBack(t, path))
	})

	t.Run("only the first matching line changes", func(t *testing.T) {
		path := writeInputs(t, "a = 1\na = 2\n")

		require.NoError(t, SetField(path, "a", json.Number("9")))

		assert.Equal(t, "a = 9 # [script-altered]\na = 2\n", readBack(t, path))
	})

	t.Run("prefix of a longer key does not match", func(t *testing.T) {
		path := writeInputs(t, "Vessel.rod_radius_outer = 1\n")

		require.NoError(t, SetField(path, "Vessel.rod_radius", json.Number("2")))

		assert.Equal(t,
			"Vessel.rod_radius_outer = 1\n\nVessel.rod_radius = 2 #[script-added]",
			readBack(t, path))
	})

	t.Run("numeric sequence renders space-joined", func(t *testing.T) {
		path := writeInputs(t, "Photo.efficiencies = 0 0\n")

		value := document.NewSeq(json.Number("0.25"), json.Number("0.75"))
		require.NoError(t, SetField(path, "Photo.efficiencies", value))

		assert.Equal(t, "Photo.efficiencies = 0.25 0.75 # [script-altered]\n",
			readBack(t, path))
	})

	t.Run("string sequence renders space-joined", func(t *testing.T) {
		path := writeInputs(t, "Solver.names = a\n")

		require.NoError(t, SetField(path, "Solver.names", []any{"alpha", "beta"}))

		assert.Equal(t, "Solver.names = alpha beta # [script-altered]\n",
			readBack(t, path))
	})

	t.Run("error - mixed sequence", func(t *testing.T) {
		path := writeInputs(t, "x = 1\n")

		err := SetField(path, "x", []any{json.Number("1"), "two"})
		require.Error(t, err)
	})

	t.Run("error - missing file", func(t *testing.T) {
		err := SetField(filepath.Join(t.TempDir(), "missing.inputs"), "x", "1")
		require.Error(t, err)
	})
}

func TestReadFloatField(t *testing.T) {
	t.Run("parses value ignoring comment", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		value, ok, err := ReadFloatField(path, "Vessel.rod_radius")
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, 500e-6, value, 1e-12)
	})

	t.Run("reads back a patched field", func(t *testing.T) {
		path := writeInputs(t, masterInputs)
		require.NoError(t, SetField(path, "DischargeInception.pressure", json.Number("2e5")))

		value, ok, err := ReadFloatField(path, "DischargeInception.pressure")
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, 2e5, value, 1e-6)
	})

	t.Run("absent field", func(t *testing.T) {
		path := writeInputs(t, masterInputs)

		_, ok, err := ReadFloatField(path, "DischargeInceptionTagger.max_voltage")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("error - non-numeric value", func(t *testing.T) {
		path := writeInputs(t, "name = streamer\n")

		_, _, err := ReadFloatField(path, "name")
		require.Error(t, err)
	})
}
