// Package addr implements the hierarchical addressing scheme used to name
// every node in a project tree: //segment/segment/...
package addr

import "strings"

// Addr is a hierarchical path address. It is stored as its canonical string
// form rather than a slice of segments so that Addr stays comparable and
// can be used directly as a map key — the scheduler, plugin registry, and
// resolver all key maps on Addr. The zero value is the root address ("//").
type Addr struct {
	path string
}

// New builds an Addr from already-split segments.
func New(segments ...string) Addr {
	return Addr{path: strings.Join(segments, "/")}
}

// Parse accepts "//a/b/c" or "a/b/c" and returns the corresponding Addr.
// A leading "//" is stripped if present; empty segments (from a leading or
// trailing slash, or "//") are dropped.
func Parse(s string) Addr {
	s = strings.TrimPrefix(s, "//")
	segs := splitNonEmpty(s)
	return Addr{path: strings.Join(segs, "/")}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// Join appends segments and returns the resulting Addr; the receiver is not
// modified.
func (a Addr) Join(segments ...string) Addr {
	segs := append(a.Segments(), segments...)
	return Addr{path: strings.Join(segs, "/")}
}

// Parent returns the address with its last segment removed. Parent of the
// root address is the root address.
func (a Addr) Parent() Addr {
	segs := a.Segments()
	if len(segs) == 0 {
		return Addr{}
	}
	return Addr{path: strings.Join(segs[:len(segs)-1], "/")}
}

// Leaf returns the last segment, or "" for the root address.
func (a Addr) Leaf() string {
	segs := a.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Segments returns the address's path segments.
func (a Addr) Segments() []string {
	return splitNonEmpty(a.path)
}

// Empty reports whether this is the root address.
func (a Addr) Empty() bool {
	return a.path == ""
}

// String renders the address in canonical "//a/b/c" form. Parse(a.String())
// always reconstructs an equal Addr.
func (a Addr) String() string {
	return "//" + a.path
}

// MarshalText implements encoding.TextMarshaler so an Addr can be used as a
// map key in JSON/YAML output.
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Addr) UnmarshalText(text []byte) error {
	*a = Parse(string(text))
	return nil
}

// Equal reports whether two addresses have identical segments. Addr is a
// plain comparable struct, so a == b works too; Equal exists for
// readability at call sites.
func (a Addr) Equal(b Addr) bool {
	return a == b
}

// ToID derives a storage Id name from an address: its full path, segments
// joined with "/", matching the address's canonical form minus the leading
// "//".
func (a Addr) ToID() string {
	return a.path
}
