/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/attr"
	"gopkg.in/yaml.v3"
)

type file struct {
	Kinds []kindDecl `yaml:"kinds"`
}

type kindDecl struct {
	Name       string                   `yaml:"name"`
	Table      string                   `yaml:"table"`
	HashKey    string                   `yaml:"hashKey"`
	RangeKey   string                   `yaml:"rangeKey"`
	Attributes map[string]attributeDecl `yaml:"attributes"`
}

// attributeDecl is either a bare type name or a mapping.
type attributeDecl struct {
	Type      string   `yaml:"type"`
	Format    string   `yaml:"format"`
	Match     string   `yaml:"match"`
	OneOf     []any    `yaml:"oneOf"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	MinLength *int     `yaml:"minLength"`
	MaxLength *int     `yaml:"maxLength"`
	Validator string   `yaml:"validator"`

	Default  any    `yaml:"default"`
	Generate string `yaml:"generate"`
}

func (a *attributeDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Type = node.Value
		return nil
	}
	type plain attributeDecl
	return node.Decode((*plain)(a))
}

// LoadFile reads kind declarations from a YAML file.
func LoadFile(path string) ([]entitymapper.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	schemas, err := Load(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// Load reads kind declarations from YAML and returns validated schemas.
func Load(r io.Reader) ([]entitymapper.Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid schema declaration: %w", err)
	}

	schemas := make([]entitymapper.Schema, 0, len(f.Kinds))
	for _, k := range f.Kinds {
		s, err := k.schema()
		if err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// RegisterAll loads a file and registers every kind it declares.
func RegisterAll(m *entitymapper.Mapper, path string) ([]*entitymapper.Kind, error) {
	schemas, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	kinds := make([]*entitymapper.Kind, 0, len(schemas))
	for _, s := range schemas {
		k, err := m.Register(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (k kindDecl) schema() (entitymapper.Schema, error) {
	s := entitymapper.Schema{
		Name:       k.Name,
		Table:      k.Table,
		HashKey:    k.HashKey,
		RangeKey:   k.RangeKey,
		Attributes: make(map[string]attr.Descriptor, len(k.Attributes)),
	}
	for name, a := range k.Attributes {
		d, err := a.descriptor()
		if err != nil {
			return s, fmt.Errorf("kind %s, attribute %s: %w", k.Name, name, err)
		}
		s.Attributes[name] = d

		switch {
		case a.Generate != "" && a.Default != nil:
			return s, fmt.Errorf("kind %s, attribute %s: default and generate are exclusive", k.Name, name)
		case a.Generate == "uuid":
			setDefault(&s, name, entitymapper.DefaultUUID())
		case a.Generate != "":
			return s, fmt.Errorf("kind %s, attribute %s: unknown generator %q", k.Name, name, a.Generate)
		case a.Default != nil:
			setDefault(&s, name, entitymapper.Constant(a.Default))
		}
	}
	return s, nil
}

func setDefault(s *entitymapper.Schema, name string, d entitymapper.Default) {
	if s.Defaults == nil {
		s.Defaults = make(map[string]entitymapper.Default)
	}
	s.Defaults[name] = d
}

// descriptor builds a primitive descriptor for a bare type, and a validator
// chain as soon as any constraint is declared.
func (a attributeDecl) descriptor() (attr.Descriptor, error) {
	var chain []attr.Validator
	if a.Type != "" {
		t, err := attr.ParseType(a.Type)
		if err != nil {
			return attr.Descriptor{}, err
		}
		if !a.constrained() {
			return attr.Of(t), nil
		}
		if t == attr.AutoIncrement {
			return attr.Descriptor{}, fmt.Errorf("autoincrement attributes take no constraints")
		}
		chain = append(chain, attr.Coerce(t))
	}

	if a.Format != "" {
		chain = append(chain, attr.Format(a.Format))
	}
	if a.Match != "" {
		chain = append(chain, attr.Match(a.Match))
	}
	if a.MinLength != nil || a.MaxLength != nil {
		lo, hi := 0, -1
		if a.MinLength != nil {
			lo = *a.MinLength
		}
		if a.MaxLength != nil {
			hi = *a.MaxLength
		}
		chain = append(chain, attr.Length(lo, hi))
	}
	switch {
	case a.Min != nil && a.Max != nil:
		chain = append(chain, attr.InRange(*a.Min, *a.Max))
	case a.Min != nil:
		chain = append(chain, attr.Min(*a.Min))
	case a.Max != nil:
		chain = append(chain, attr.Max(*a.Max))
	}
	if len(a.OneOf) > 0 {
		chain = append(chain, attr.OneOf(a.OneOf...))
	}
	if a.Validator != "" {
		v, err := LookupValidator(a.Validator)
		if err != nil {
			return attr.Descriptor{}, err
		}
		chain = append(chain, v)
	}

	switch len(chain) {
	case 0:
		return attr.Descriptor{}, fmt.Errorf("no type declared")
	case 1:
		return attr.Validated(chain[0]), nil
	}
	return attr.Validated(attr.All(chain...)), nil
}

func (a attributeDecl) constrained() bool {
	return a.Format != "" || a.Match != "" || len(a.OneOf) > 0 || a.Min != nil || a.Max != nil ||
		a.MinLength != nil || a.MaxLength != nil || a.Validator != ""
}
