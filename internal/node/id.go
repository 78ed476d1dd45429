package node

import (
	"fmt"
	"strings"
)

var unsupportedChars = []string{"@", ":", ".", "-", "/", " "}
var unsupportedPrefixes = []string{"http://", "https://"}

// Name normalizes a human-given name into the character set legal inside an
// Id: URL schemes are stripped, then every character in unsupportedChars is
// replaced with "_", and leading underscores are trimmed.
func Name(raw string) string {
	s := raw
	for _, p := range unsupportedPrefixes {
		s = strings.TrimPrefix(s, p)
	}
	for _, c := range unsupportedChars {
		s = strings.ReplaceAll(s, c, "_")
	}
	return strings.TrimLeft(s, "_")
}

// Id uniquely names a stored artifact. Package and Version and Arch are
// optional qualifiers; Digest is set by whoever builds the Id, and storage
// backends save the Id as given without computing or assigning it.
type Id struct {
	Name    string
	Package string
	Version string
	Arch    string
	Digest  string
}

// Prefix returns the Id rendered without its Digest — the key used to group
// every version of "the same logical thing" together for pruning.
func (id Id) Prefix() string {
	var b strings.Builder
	if id.Package != "" {
		b.WriteString(id.Package)
		b.WriteByte('+')
	}
	b.WriteString(id.Name)
	if id.Version != "" {
		b.WriteByte('-')
		b.WriteString(id.Version)
	}
	if id.Arch != "" {
		b.WriteByte('.')
		b.WriteString(id.Arch)
	}
	return b.String()
}

// String renders the full Id, including its digest, in canonical form.
func (id Id) String() string {
	p := id.Prefix()
	if id.Digest == "" {
		return p
	}
	return p + "-" + id.Digest
}

// ParseID parses the canonical Id string form produced by String. The
// grammar is: [package+]name[-version][.arch][-digest]. Because version,
// arch and digest are all optionally present, parsing is done by splitting
// on "+" first (package), then ".": (arch), then taking the last "-"
// segment as digest when more than one "-"-segment remains after the name.
//
// This is deliberately permissive: callers that construct Ids programmatically
// should prefer building an Id struct literal over round-tripping through
// ParseID.
func ParseID(s string) (Id, error) {
	var id Id
	rest := s
	if i := strings.Index(rest, "+"); i >= 0 {
		id.Package = rest[:i]
		rest = rest[i+1:]
	}
	if i := strings.LastIndex(rest, "."); i >= 0 {
		id.Arch = rest[i+1:]
		rest = rest[:i]
	}
	parts := strings.Split(rest, "-")
	if len(parts) == 0 || parts[0] == "" {
		return Id{}, fmt.Errorf("node: invalid id %q: missing name", s)
	}
	id.Name = parts[0]
	switch len(parts) {
	case 1:
	case 2:
		id.Version = parts[1]
	default:
		id.Version = parts[1]
		id.Digest = strings.Join(parts[2:], "-")
	}
	return id, nil
}
