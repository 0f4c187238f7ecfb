package definition

import (
	"fmt"
	"path/filepath"

	"github.com/fjordsim/sweepforge/internal/document"
)

// Load reads a run definition file, dispatching on its suffix.
func Load(path string) (*Definition, error) {
	switch ext := filepath.Ext(path); ext {
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".hcl":
		return loadHCL(path)
	default:
		return nil, fmt.Errorf("unsupported run definition type %q (want .json, .yaml, .yml or .hcl)", ext)
	}
}

func loadJSON(path string) (*Definition, error) {
	root, err := document.LoadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := fromDocument(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
