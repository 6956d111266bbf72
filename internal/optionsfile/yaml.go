package optionsfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// parseYAML reads a YAML or JSON document into a value tree. An empty
// document yields null.
func parseYAML(data []byte) (value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value{}, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return value{kind: kindNull}, nil
	}
	return fromYAMLNode(doc.Content[0])
}

func fromYAMLNode(n *yaml.Node) (value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value{kind: kindNull}, nil
		}
		return fromYAMLNode(n.Content[0])

	case yaml.AliasNode:
		if n.Alias == nil {
			return value{kind: kindNull}, nil
		}
		return fromYAMLNode(n.Alias)

	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return value{kind: kindNull}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return value{}, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return value{kind: kindBool, text: n.Value, truth: b}, nil
		case "!!int", "!!float":
			return value{kind: kindNumber, text: n.Value}, nil
		default:
			return value{kind: kindString, text: n.Value}, nil
		}

	case yaml.SequenceNode:
		items := make([]value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromYAMLNode(c)
			if err != nil {
				return value{}, err
			}
			items = append(items, item)
		}
		return value{kind: kindSequence, items: items}, nil

	case yaml.MappingNode:
		// Merged keys go first so explicit keys override them.
		var merged []field
		fields := make([]field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
				m, err := fromYAMLNode(v)
				if err != nil {
					return value{}, err
				}
				fields, err := mergeFields(m, v.Line)
				if err != nil {
					return value{}, err
				}
				merged = append(merged, fields...)
				continue
			}
			if k.Kind != yaml.ScalarNode {
				return value{}, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := fromYAMLNode(v)
			if err != nil {
				return value{}, err
			}
			fields = append(fields, field{key: k.Value, value: val})
		}
		return value{kind: kindMapping, fields: append(merged, fields...)}, nil

	default:
		return value{}, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

// mergeFields flattens the value of a merge key. A sequence of mappings is
// merged so that earlier mappings take precedence over later ones.
func mergeFields(m value, line int) ([]field, error) {
	switch m.kind {
	case kindMapping:
		return m.fields, nil
	case kindSequence:
		var fields []field
		for i := len(m.items) - 1; i >= 0; i-- {
			if m.items[i].kind != kindMapping {
				return nil, fmt.Errorf("line %d: merge requires a mapping or a sequence of mappings", line)
			}
			fields = append(fields, m.items[i].fields...)
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("line %d: merge requires a mapping or a sequence of mappings", line)
	}
}
