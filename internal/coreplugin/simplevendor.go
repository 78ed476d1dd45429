package coreplugin

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/cuemby/edo/internal/node"
)

// SimpleVendor is an in-memory (name -> []version) table defined directly
// in a project file, useful for small projects and tests that don't need
// a real package registry.
type SimpleVendor struct {
	name     string
	versions map[string][]*semver.Version
	deps     map[string]map[string]string
}

// NewSimpleVendor builds a SimpleVendor from a vendor definition's
// "packages" table: packages.<name>.versions is a list of version
// strings, packages.<name>.requires.<dep> is a version constraint.
func NewSimpleVendor(name string, def *node.Node) (*SimpleVendor, error) {
	v := &SimpleVendor{name: name, versions: map[string][]*semver.Version{}, deps: map[string]map[string]string{}}
	table, ok := def.AsTable()
	if !ok {
		return v, nil
	}
	packagesNode, ok := table["packages"]
	if !ok {
		return v, nil
	}
	packages, ok := packagesNode.AsTable()
	if !ok {
		return v, nil
	}
	for pkgName, pkgNode := range packages {
		pkgTable, ok := pkgNode.AsTable()
		if !ok {
			continue
		}
		if versionsNode, ok := pkgTable["versions"]; ok {
			if d := versionsNode.Data(); d.Kind == node.KindList {
				for _, elem := range d.List {
					s, ok := elem.AsString()
					if !ok {
						continue
					}
					sv, err := semver.NewVersion(s)
					if err != nil {
						return nil, fmt.Errorf("coreplugin: vendor %s: invalid version %q for %s: %w", name, s, pkgName, err)
					}
					v.versions[pkgName] = append(v.versions[pkgName], sv)
				}
			}
		}
		if reqNode, ok := pkgTable["requires"]; ok {
			if reqTable, ok := reqNode.AsTable(); ok {
				m := map[string]string{}
				for depName, depNode := range reqTable {
					s, _ := depNode.AsString()
					m[depName] = s
				}
				for _, sv := range v.versions[pkgName] {
					v.deps[pkgName+"@"+sv.String()] = m
				}
			}
		}
	}
	return v, nil
}

func (v *SimpleVendor) Name() string { return v.name }

func (v *SimpleVendor) Options(ctx context.Context, name string) ([]*semver.Version, error) {
	return v.versions[name], nil
}

func (v *SimpleVendor) Resolve(ctx context.Context, name string, version *semver.Version) (*node.Node, error) {
	return node.NewString(name + "@" + version.String()), nil
}

func (v *SimpleVendor) Dependencies(ctx context.Context, name string, version *semver.Version) (map[string]string, error) {
	return v.deps[name+"@"+version.String()], nil
}
