package features

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type schemaEntry struct {
	Code     string             `yaml:"code"`
	Order    []string           `yaml:"order"`
	Defaults map[string]float64 `yaml:"defaults"`
}

type schemaFile struct {
	Schemas []schemaEntry `yaml:"schemas"`
}

// LoadRegistry reads schema overrides from a YAML file. Diseases the file
// does not mention keep their built-in schema. An empty path returns the
// built-in registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var file schemaFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	if len(file.Schemas) == 0 {
		return nil, fmt.Errorf("schema file %s declares no schemas", path)
	}

	overrides := make(map[Code]*Schema, len(file.Schemas))
	for _, entry := range file.Schemas {
		code, err := ParseCode(entry.Code)
		if err != nil {
			return nil, err
		}
		if _, dup := overrides[code]; dup {
			return nil, fmt.Errorf("schema %s declared twice in %s", code, path)
		}
		schema, err := NewSchema(code, entry.Order, entry.Defaults)
		if err != nil {
			return nil, err
		}
		overrides[code] = schema
	}

	schemas := make([]*Schema, 0, len(Codes))
	for _, code := range Codes {
		if schema, ok := overrides[code]; ok {
			schemas = append(schemas, schema)
			continue
		}
		schemas = append(schemas, builtin.schemas[code])
	}
	return NewRegistry(schemas...)
}
