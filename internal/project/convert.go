package project

import (
	"fmt"

	"github.com/cuemby/edo/internal/node"
)

// valueToNode converts a decoded YAML/JSON scalar/map/slice value into the
// equivalent *node.Node shape. yaml.v3 decodes nested maps as
// map[string]interface{} when the target is interface{} (unlike yaml.v2's
// map[interface{}]interface{}), so both decoders land here with the same
// shapes to handle.
func valueToNode(v interface{}) (*node.Node, error) {
	switch val := v.(type) {
	case nil:
		return node.New(node.Data{Kind: node.KindString, String: ""}), nil
	case bool:
		return node.New(node.Data{Kind: node.KindBool, Bool: val}), nil
	case string:
		return node.NewString(val), nil
	case int:
		return node.New(node.Data{Kind: node.KindInt, Int: int64(val)}), nil
	case int64:
		return node.New(node.Data{Kind: node.KindInt, Int: val}), nil
	case float64:
		if val == float64(int64(val)) {
			return node.New(node.Data{Kind: node.KindInt, Int: int64(val)}), nil
		}
		return node.New(node.Data{Kind: node.KindFloat, Float: val}), nil
	case []interface{}:
		list := make([]*node.Node, 0, len(val))
		for _, elem := range val {
			n, err := valueToNode(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, n)
		}
		return node.New(node.Data{Kind: node.KindList, List: list}), nil
	case map[string]interface{}:
		table := map[string]*node.Node{}
		for k, elem := range val {
			n, err := valueToNode(elem)
			if err != nil {
				return nil, err
			}
			table[k] = n
		}
		return node.New(node.Data{Kind: node.KindTable, Table: table}), nil
	default:
		return nil, fmt.Errorf("project: unsupported field value type %T", v)
	}
}

// fieldsToTable converts a block's flat field map into the *node.Node
// table a Definition carries.
func fieldsToTable(fields map[string]interface{}) (map[string]*node.Node, error) {
	table := map[string]*node.Node{}
	for k, v := range fields {
		n, err := valueToNode(v)
		if err != nil {
			return nil, fmt.Errorf("project: field %q: %w", k, err)
		}
		table[k] = n
	}
	return table, nil
}
