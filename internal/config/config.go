// Package config loads the CLI's YAML configuration, including the
// declared metadata schema of the document table.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docuvec/docuvec/pkg/schema"
)

// Config is the CLI configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schema   []FieldSpec    `yaml:"schema"`
}

// DatabaseConfig locates the document table.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	Table         string `yaml:"table"`
	EmbeddingDims int    `yaml:"embedding_dims"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// FieldSpec declares one metadata field in YAML form:
//
//	schema:
//	  - name: page_number
//	    type: int
//	  - name: topics
//	    type: list
//	    elem: { type: string }
//	  - name: author
//	    type: struct
//	    fields:
//	      - { name: name, type: string }
type FieldSpec struct {
	Name     string `yaml:"name"`
	TypeSpec `yaml:",inline"`
}

// TypeSpec declares a field type.
type TypeSpec struct {
	Type   string      `yaml:"type"`
	Elem   *TypeSpec   `yaml:"elem,omitempty"`
	Fields []FieldSpec `yaml:"fields,omitempty"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Table == "" {
		return fmt.Errorf("database.table is required")
	}
	if c.Database.EmbeddingDims <= 0 {
		return fmt.Errorf("database.embedding_dims must be positive")
	}
	if _, err := c.MetadataSchema(); err != nil {
		return err
	}
	return nil
}

// MetadataSchema converts the declared YAML schema into the typed form.
func (c *Config) MetadataSchema() (schema.Metadata, error) {
	meta := make(schema.Metadata, 0, len(c.Schema))
	for _, spec := range c.Schema {
		ft, err := spec.TypeSpec.fieldType()
		if err != nil {
			return nil, fmt.Errorf("schema field %q: %w", spec.Name, err)
		}
		meta = append(meta, schema.Field{Name: spec.Name, Type: ft})
	}
	return meta, nil
}

func (t TypeSpec) fieldType() (schema.FieldType, error) {
	switch t.Type {
	case "string":
		return schema.String(), nil
	case "int":
		return schema.Int(), nil
	case "float":
		return schema.Float(), nil
	case "bool":
		return schema.Bool(), nil
	case "timestamp":
		return schema.Timestamp(), nil
	case "list":
		if t.Elem == nil {
			return schema.FieldType{}, fmt.Errorf("list type requires elem")
		}
		elem, err := t.Elem.fieldType()
		if err != nil {
			return schema.FieldType{}, err
		}
		return schema.List(elem), nil
	case "struct":
		fields := make([]schema.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			ft, err := f.TypeSpec.fieldType()
			if err != nil {
				return schema.FieldType{}, fmt.Errorf("member %q: %w", f.Name, err)
			}
			fields = append(fields, schema.Field{Name: f.Name, Type: ft})
		}
		return schema.Struct(fields...), nil
	default:
		return schema.FieldType{}, fmt.Errorf("unknown type %q", t.Type)
	}
}
