package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/node"
	"gopkg.in/yaml.v3"
)

// pendingWant is a want declaration resolved to the concrete node address
// of the field it will overwrite once resolution completes.
type pendingWant struct {
	target *node.Node // the table entry to SetData once resolved
	addr   addr.Addr  // synthetic address this want is tracked under
	want   wantDef
}

// Project is the parsed-but-not-yet-resolved tree of definitions found
// under a project directory, matching the original's context/builder.rs
// Project struct field-for-field (storage_caches/build_cache/output_cache
// folded together here as "backends", matching spec.md's storage model).
type Project struct {
	Dir string

	Backends     map[addr.Addr]*node.Node
	Vendors      map[addr.Addr]*node.Node
	Plugins      map[addr.Addr]*node.Node
	Environments map[addr.Addr]*node.Node
	Transforms   map[addr.Addr]*node.Node

	wants []pendingWant
}

// Load walks dir for *.edo.yaml and *.edo.json definitions, namespacing
// each by its directory path joined into an Addr, and classifies every
// block into one of the project's seven buckets.
func Load(dir string) (*Project, error) {
	p := &Project{
		Dir:          dir,
		Backends:     map[addr.Addr]*node.Node{},
		Vendors:      map[addr.Addr]*node.Node{},
		Plugins:      map[addr.Addr]*node.Node{},
		Environments: map[addr.Addr]*node.Node{},
		Transforms:   map[addr.Addr]*node.Node{},
	}
	if err := p.walk(addr.Addr{}, dir); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) walk(namespace addr.Addr, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("project: reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			if err := p.walk(namespace.Join(entry.Name()), path); err != nil {
				return err
			}
		case strings.HasSuffix(entry.Name(), ".edo.yaml") || strings.HasSuffix(entry.Name(), ".edo.yml"):
			if err := p.loadYAML(namespace, path); err != nil {
				return err
			}
		case strings.HasSuffix(entry.Name(), ".edo.json"):
			if err := p.loadJSON(namespace, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Project) loadYAML(namespace addr.Addr, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("project: reading %s: %w", path, err)
	}
	var def fileDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("project: parsing %s: %w", path, err)
	}
	return p.ingest(namespace, def)
}

func (p *Project) loadJSON(namespace addr.Addr, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("project: reading %s: %w", path, err)
	}
	var def fileDef
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("project: parsing %s: %w", path, err)
	}
	return p.ingest(namespace, def)
}

func (p *Project) ingest(namespace addr.Addr, def fileDef) error {
	for _, b := range def.StorageCaches {
		a := namespace.Join(b.Name)
		n, err := p.definitionNode(a, node.ComponentStorageBackend, b)
		if err != nil {
			return err
		}
		p.Backends[a] = n
	}
	if def.BuildCache != nil {
		a := addr.Parse("//edo-build-cache")
		n, err := p.definitionNode(a, node.ComponentStorageBackend, *def.BuildCache)
		if err != nil {
			return err
		}
		p.Backends[a] = n
	}
	if def.OutputCache != nil {
		a := addr.Parse("//edo-output-cache")
		n, err := p.definitionNode(a, node.ComponentStorageBackend, *def.OutputCache)
		if err != nil {
			return err
		}
		p.Backends[a] = n
	}
	for _, b := range def.Vendors {
		a := namespace.Join(b.Name)
		n, err := p.definitionNode(a, node.ComponentVendor, b)
		if err != nil {
			return err
		}
		p.Vendors[a] = n
	}
	for _, b := range def.Plugins {
		a := namespace.Join(b.Name)
		n, err := p.definitionNode(a, node.ComponentPlugin, b)
		if err != nil {
			return err
		}
		p.Plugins[a] = n
	}
	for _, b := range def.Environments {
		a := namespace.Join(b.Name)
		n, err := p.definitionNode(a, node.ComponentEnvironment, b)
		if err != nil {
			return err
		}
		p.Environments[a] = n
	}
	for _, b := range def.Transforms {
		a := namespace.Join(b.Name)
		n, err := p.definitionNode(a, node.ComponentTransform, b)
		if err != nil {
			return err
		}
		p.Transforms[a] = n
	}
	return nil
}

// definitionNode builds a *node.Node for one block and, for every "wants"
// entry it declares, records a pendingWant tracking which table field
// resolution will overwrite.
func (p *Project) definitionNode(a addr.Addr, component node.Component, b blockDef) (*node.Node, error) {
	table, err := fieldsToTable(b.Fields)
	if err != nil {
		return nil, fmt.Errorf("project: %s: %w", a, err)
	}
	n := node.NewDefinition(component, b.Kind, b.Name, table)
	for i, w := range b.Wants {
		placeholder := node.NewString("")
		table[w.Field] = placeholder
		p.wants = append(p.wants, pendingWant{
			target: placeholder,
			addr:   a.Join("wants", fmt.Sprintf("%d", i)),
			want:   w,
		})
	}
	return n, nil
}

// lockDigest computes the blake3 digest of the project's unresolved
// dependency set, sorted by address so the digest is stable across
// re-reads of the same directory in any file-walk order.
func (p *Project) lockDigest() (string, error) {
	type entry struct {
		addr string
		want wantDef
	}
	entries := make([]entry, 0, len(p.wants))
	for _, w := range p.wants {
		entries = append(entries, entry{addr: w.addr.String(), want: w.want})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].addr < entries[j].addr })

	h := newLockHasher()
	for _, e := range entries {
		h.writeString(e.addr)
		b, err := json.Marshal(e.want)
		if err != nil {
			return "", err
		}
		h.writeBytes(b)
	}
	return h.sum(), nil
}
