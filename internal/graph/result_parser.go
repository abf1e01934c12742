package graph

import (
	"encoding/json"
	"fmt"

	"github.com/FalkorDB/falkordb-go/v2"
)

// ParseNodeFromResult extracts node properties from a FalkorDB result value.
func ParseNodeFromResult(nodeValue interface{}) (map[string]interface{}, error) {
	switch node := nodeValue.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case falkordb.Node:
		return node.Properties, nil
	case *falkordb.Node:
		return node.Properties, nil
	case map[string]interface{}:
		return node, nil
	}
	return nil, fmt.Errorf("unexpected node type: %T", nodeValue)
}

// ParseEdgeFromResult extracts the relation name and properties of a FalkorDB edge.
func ParseEdgeFromResult(edgeValue interface{}) (string, map[string]interface{}, error) {
	switch edge := edgeValue.(type) {
	case falkordb.Edge:
		return edge.Relation, edge.Properties, nil
	case *falkordb.Edge:
		return edge.Relation, edge.Properties, nil
	}
	return "", nil, fmt.Errorf("unexpected edge type: %T", edgeValue)
}

// ResourceFromProperties decodes a (:Resource) node. Attributes are stored as
// a JSON string; a map value is accepted too.
func ResourceFromProperties(props map[string]interface{}) (Resource, error) {
	r := Resource{
		ID:          stringProp(props, "id"),
		Type:        ResourceType(stringProp(props, "type")),
		Name:        stringProp(props, "name"),
		Provider:    stringProp(props, "provider"),
		Region:      stringProp(props, "region"),
		Criticality: CriticalityTier(stringProp(props, "criticality")),
		Attributes:  Attributes{},
	}
	if r.ID == "" {
		return r, fmt.Errorf("node has no id property")
	}

	switch raw := props["attributes"].(type) {
	case string:
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &r.Attributes); err != nil {
				return r, fmt.Errorf("invalid attributes JSON: %w", err)
			}
		}
	case map[string]interface{}:
		for k, v := range raw {
			r.Attributes[k] = v
		}
	}
	return r, nil
}

// EdgeFromProperties decodes a relationship row.
func EdgeFromProperties(relation, source, target string, props map[string]interface{}) Edge {
	e := Edge{
		SourceID:        source,
		TargetID:        target,
		Kind:            EdgeKind(relation),
		Category:        DependencyCategory(stringProp(props, "category")),
		Type:            DependencyType(stringProp(props, "type")),
		DiscoveryMethod: stringProp(props, "discovery_method"),
	}
	if strength, ok := Attributes(props).Float("strength"); ok {
		e.Strength = strength
	}
	return e
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
