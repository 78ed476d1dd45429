// Package project implements the project file loader: walking a directory
// of *.edo.yaml/*.edo.json definitions into the Node tree described by
// SPEC_FULL.md §4.8, classifying each definition into one of seven
// buckets, collecting "wants" dependency declarations, resolving them
// through internal/resolver, and wiring the result into an *ctx.Ctx.
package project

// fileDef is the on-disk shape of one *.edo.yaml or *.edo.json file: a set
// of block lists, one per component kind, each carrying a kind string,
// a name, a flat field table, and any "wants" dependency declarations.
// Two concrete surface syntaxes (YAML via gopkg.in/yaml.v3, JSON via
// stdlib encoding/json) decode into this same struct, honoring "two
// surface syntaxes, same node tree."
type fileDef struct {
	StorageCaches []blockDef `yaml:"storage_caches" json:"storage_caches"`
	BuildCache    *blockDef  `yaml:"build_cache" json:"build_cache"`
	OutputCache   *blockDef  `yaml:"output_cache" json:"output_cache"`
	Vendors       []blockDef `yaml:"vendors" json:"vendors"`
	Environments  []blockDef `yaml:"environments" json:"environments"`
	Transforms    []blockDef `yaml:"transforms" json:"transforms"`
	Plugins       []blockDef `yaml:"plugins" json:"plugins"`
}

type blockDef struct {
	Name   string                 `yaml:"name" json:"name"`
	Kind   string                 `yaml:"kind" json:"kind"`
	Fields map[string]interface{} `yaml:"fields" json:"fields"`
	Wants  []wantDef              `yaml:"wants" json:"wants"`
}

// wantDef is one dependency declaration: a field name within the owning
// block's table that resolution will overwrite, the vendor-registry
// package name to resolve, an optional pinned vendor, and a semver
// constraint string.
type wantDef struct {
	Field       string `yaml:"field" json:"field"`
	Name        string `yaml:"name" json:"name"`
	Vendor      string `yaml:"vendor" json:"vendor"`
	Requirement string `yaml:"requirement" json:"requirement"`
}
