package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
)

// LoadPlugin opens a backend shared object and resolves its operation table
// through the EntryPoint symbol. The table is validated before it is
// returned; a version mismatch is refused here, never at call time.
func LoadPlugin(path string) (*Vtable, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend %s: %w", path, err)
	}
	sym, err := p.Lookup(EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryPointMissing, EntryPoint, path)
	}
	init, ok := sym.(func() *Vtable)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s has the wrong signature", ErrEntryPointMissing, EntryPoint, path)
	}
	v := init()
	if err := Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadFromDirs searches dirs for a backend named name (as lib<name>.so or
// <name>.so) and loads the first hit.
func LoadFromDirs(name string, dirs []string) (*Vtable, error) {
	candidates := []string{"lib" + name + ".so", name + ".so"}
	for _, dir := range dirs {
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if _, err := os.Stat(path); err == nil {
				return LoadPlugin(path)
			}
		}
	}
	return nil, fmt.Errorf("%w: %q in %v", ErrBackendNotFound, name, dirs)
}
