package definition

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/fjordsim/sweepforge/internal/document"
)

func loadYAML(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	value, err := yamlValue(&root)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	def, err := fromDocument(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// yamlValue converts a yaml.Node tree into document values. The node API is
// used instead of plain unmarshaling so mapping key order survives; numeric
// scalars keep their source literals.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])

	case yaml.MappingNode:
		m := document.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			val, err := yamlValue(valNode)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, val)
		}
		return m, nil

	case yaml.SequenceNode:
		items := make([]any, len(n.Content))
		for i, c := range n.Content {
			val, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			items[i] = val
		}
		return document.NewSeq(items...), nil

	case yaml.ScalarNode:
		return yamlScalar(n)

	case yaml.AliasNode:
		return yamlValue(n.Alias)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %v", n.Line, n.Kind)
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		switch strings.ToLower(n.Value) {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("line %d: bad boolean %q", n.Line, n.Value)
	case "!!int", "!!float":
		return json.Number(n.Value), nil
	default:
		return n.Value, nil
	}
}
