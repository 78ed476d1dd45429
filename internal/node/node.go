package node

import "sync"

// Component names the kind of thing a Definition node declares.
type Component string

const (
	ComponentStorageBackend Component = "storage"
	ComponentEnvironment    Component = "environment"
	ComponentSource         Component = "source"
	ComponentTransform      Component = "transform"
	ComponentVendor         Component = "vendor"
	ComponentPlugin         Component = "plugin"
)

// DataKind tags which field of Data is populated; Data is a closed sum type,
// not a Go interface, so every Node carries exactly one of these shapes at
// a time.
type DataKind int

const (
	KindBool DataKind = iota
	KindInt
	KindFloat
	KindString
	KindVersion
	KindVersionReq
	KindList
	KindTable
	KindDefinition
)

// Definition is the payload of a DataKind == KindDefinition node: a
// component declaration with a component id, a kind string identifying
// which concrete implementation to construct, a human name, and a table of
// configuration fields.
type Definition struct {
	Component Component
	Kind      string
	Name      string
	Table     map[string]*Node
}

// Data is the value carried by a Node. Only the field matching Kind is
// meaningful.
type Data struct {
	Kind       DataKind
	Bool       bool
	Int        int64
	Float      float64
	String     string
	Version    string
	VersionReq string
	List       []*Node
	Table      map[string]*Node
	Definition *Definition
}

// Node is a shared, mutable cell holding a Data value. Every reference to
// the same conceptual value in a project tree points at the same *Node, so
// mutating it (SetData) is visible to every holder — this is how project
// files express "this field gets filled in once resolution completes."
type Node struct {
	mu   sync.RWMutex
	data Data
}

// New wraps a Data value in a fresh Node.
func New(d Data) *Node {
	return &Node{data: d}
}

// NewString is a convenience constructor for a KindString node.
func NewString(s string) *Node {
	return New(Data{Kind: KindString, String: s})
}

// NewDefinition is a convenience constructor for a KindDefinition node.
func NewDefinition(component Component, kind, name string, table map[string]*Node) *Node {
	if table == nil {
		table = map[string]*Node{}
	}
	return New(Data{Kind: KindDefinition, Definition: &Definition{
		Component: component,
		Kind:      kind,
		Name:      name,
		Table:     table,
	}})
}

// Data returns a snapshot of the node's current value. The returned Data's
// List/Table/Definition fields alias the live maps/slices they were read
// from; callers that need to mutate must go through SetData.
func (n *Node) Data() Data {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.data
}

// SetData atomically replaces the node's value.
func (n *Node) SetData(d Data) {
	n.mu.Lock()
	n.data = d
	n.mu.Unlock()
}

// Get looks up a key within a KindTable or KindDefinition.Table node,
// returning (nil, false) if the node is not table-shaped or the key is
// absent.
func (n *Node) Get(key string) (*Node, bool) {
	d := n.Data()
	switch d.Kind {
	case KindTable:
		v, ok := d.Table[key]
		return v, ok
	case KindDefinition:
		v, ok := d.Definition.Table[key]
		return v, ok
	default:
		return nil, false
	}
}

// ValidateKeys reports the subset of required keys missing from a
// table-shaped node, used by component constructors to fail fast with a
// precise message instead of a nil-pointer panic several calls later.
func (n *Node) ValidateKeys(required ...string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := n.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Append appends an element to a KindList node's List in place.
func (n *Node) Append(elem *Node) {
	n.mu.Lock()
	n.data.List = append(n.data.List, elem)
	n.mu.Unlock()
}

// AsString returns the node's string value, or "" plus false if the node
// is not KindString.
func (n *Node) AsString() (string, bool) {
	d := n.Data()
	if d.Kind != KindString {
		return "", false
	}
	return d.String, true
}

// AsInt returns the node's int value, or 0 plus false if the node is not
// KindInt.
func (n *Node) AsInt() (int64, bool) {
	d := n.Data()
	if d.Kind != KindInt {
		return 0, false
	}
	return d.Int, true
}

// AsBool returns the node's bool value, or false plus false if the node is
// not KindBool.
func (n *Node) AsBool() (bool, bool) {
	d := n.Data()
	if d.Kind != KindBool {
		return false, false
	}
	return d.Bool, true
}

// AsTable returns the node's table, or nil plus false if the node is
// neither KindTable nor KindDefinition.
func (n *Node) AsTable() (map[string]*Node, bool) {
	d := n.Data()
	switch d.Kind {
	case KindTable:
		return d.Table, true
	case KindDefinition:
		return d.Definition.Table, true
	default:
		return nil, false
	}
}

// AsDefinition returns the node's Definition, or nil plus false if the node
// is not KindDefinition.
func (n *Node) AsDefinition() (*Definition, bool) {
	d := n.Data()
	if d.Kind != KindDefinition {
		return nil, false
	}
	return d.Definition, true
}
