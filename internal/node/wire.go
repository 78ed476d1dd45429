package node

// Wire is a gob-encodable mirror of Node/Data, used only to cross the
// plugin sandbox's RPC boundary — Node itself carries an unexported mutex
// and so cannot be gob-encoded directly.
type Wire struct {
	Kind       DataKind
	Bool       bool
	Int        int64
	Float      float64
	String     string
	Version    string
	VersionReq string
	List       []Wire
	Table      map[string]Wire
	Definition *WireDefinition
}

// WireDefinition mirrors Definition.
type WireDefinition struct {
	Component Component
	Kind      string
	Name      string
	Table     map[string]Wire
}

// ToWire snapshots a Node tree into its gob-encodable form.
func ToWire(n *Node) Wire {
	if n == nil {
		return Wire{}
	}
	d := n.Data()
	w := Wire{
		Kind:       d.Kind,
		Bool:       d.Bool,
		Int:        d.Int,
		Float:      d.Float,
		String:     d.String,
		Version:    d.Version,
		VersionReq: d.VersionReq,
	}
	for _, elem := range d.List {
		w.List = append(w.List, ToWire(elem))
	}
	if d.Table != nil {
		w.Table = map[string]Wire{}
		for k, v := range d.Table {
			w.Table[k] = ToWire(v)
		}
	}
	if d.Definition != nil {
		wd := &WireDefinition{Component: d.Definition.Component, Kind: d.Definition.Kind, Name: d.Definition.Name, Table: map[string]Wire{}}
		for k, v := range d.Definition.Table {
			wd.Table[k] = ToWire(v)
		}
		w.Definition = wd
	}
	return w
}

// FromWire reconstructs a live *Node tree from its wire form.
func FromWire(w Wire) *Node {
	d := Data{
		Kind:       w.Kind,
		Bool:       w.Bool,
		Int:        w.Int,
		Float:      w.Float,
		String:     w.String,
		Version:    w.Version,
		VersionReq: w.VersionReq,
	}
	for _, elem := range w.List {
		d.List = append(d.List, FromWire(elem))
	}
	if w.Table != nil {
		d.Table = map[string]*Node{}
		for k, v := range w.Table {
			d.Table[k] = FromWire(v)
		}
	}
	if w.Definition != nil {
		def := &Definition{Component: w.Definition.Component, Kind: w.Definition.Kind, Name: w.Definition.Name, Table: map[string]*Node{}}
		for k, v := range w.Definition.Table {
			def.Table[k] = FromWire(v)
		}
		d.Definition = def
	}
	return New(d)
}
