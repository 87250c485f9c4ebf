package locators

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a locator override table.
//
//	apiVersion: locators/v1
//	kind: LocatorTable
//	locators:
//	  settings-menu:
//	    strategy: id
//	    value: settings-menu
type File struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Locators   map[Name]Locator `yaml:"locators"`
}

// Parse validates data against the locator schema and decodes it.
func Parse(name string, data []byte) (*File, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	verrs, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	if len(verrs) > 0 {
		return nil, &SchemaError{File: name, Errors: verrs}
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return &f, nil
}

// Load returns the default table with the overrides from path applied.
// An empty path yields the defaults.
func Load(path string) (*Table, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locator file: %w", err)
	}
	f, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	return Defaults().Merge(f.Locators), nil
}
