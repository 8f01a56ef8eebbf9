package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// flattenValue converts driver entity types into JSON-friendly values.
// Nodes and relationships collapse to their property maps, paths to the
// sequence of node property maps, and containers are flattened recursively.
func flattenValue(value any) any {
	switch v := value.(type) {
	case dbtype.Node:
		return flattenProps(v.Props)
	case dbtype.Relationship:
		props := flattenProps(v.Props)
		props["type"] = v.Type
		return props
	case dbtype.Path:
		nodes := make([]any, 0, len(v.Nodes))
		for _, n := range v.Nodes {
			nodes = append(nodes, flattenProps(n.Props))
		}
		return nodes
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, flattenValue(item))
		}
		return out
	case map[string]any:
		return flattenProps(v)
	default:
		return value
	}
}

func flattenProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = flattenValue(v)
	}
	return out
}
