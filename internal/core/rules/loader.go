package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var builtinFS embed.FS

// Pack is one rule file.
type Pack struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// ParsePack decodes a YAML rule pack.
func ParsePack(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse rule pack: %w", err)
	}
	return &p, nil
}

// LoadFS registers every *.yaml pack found at the root of fsys, in file name
// order, and seals the registry.
func LoadFS(fsys fs.FS) (*Registry, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	reg := NewRegistry()
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		pack, err := ParsePack(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, rule := range pack.Rules {
			if err := reg.Register(rule); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	reg.Seal()
	return reg, nil
}

// LoadBuiltin builds the registry from the rule packs compiled into the
// binary.
func LoadBuiltin() (*Registry, error) {
	sub, err := fs.Sub(builtinFS, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// MustLoadBuiltin is LoadBuiltin for callers that treat a broken builtin
// pack as a programming error.
func MustLoadBuiltin() *Registry {
	reg, err := LoadBuiltin()
	if err != nil {
		panic(err)
	}
	return reg
}

// BuiltinPacks lists the embedded pack file names.
func BuiltinPacks() []string {
	entries, _ := fs.ReadDir(builtinFS, "data")
	var names []string
	for _, e := range entries {
		if path.Ext(e.Name()) == ".yaml" {
			names = append(names, e.Name())
		}
	}
	return names
}
