/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"maps"

	"github.com/suparena/entitymapper/attr"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/migration"
)

// Schema declares a record kind.
type Schema struct {
	// Name identifies the kind in a Mapper; defaults to Table.
	Name  string
	Table string

	HashKey string
	// RangeKey is empty for hash-only tables.
	RangeKey string

	Attributes map[string]attr.Descriptor

	// Defaults apply when an entity is built with Kind.New, never when one
	// is loaded from the store.
	Defaults map[string]Default

	// Migrator upgrades stored payloads before they are decoded.
	Migrator *migration.Migrator
}

func (s Schema) kindName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Table
}

// Validate checks the declaration itself. Every failure is a SchemaError.
func (s Schema) Validate() error {
	kind := s.kindName()
	if s.Table == "" {
		return errors.NewSchemaError(kind, "missing table name")
	}
	if s.HashKey == "" {
		return errors.NewSchemaError(kind, "missing hash key")
	}
	if len(s.Attributes) == 0 {
		return errors.NewSchemaError(kind, "missing attributes")
	}

	hash, ok := s.Attributes[s.HashKey]
	if !ok {
		return errors.NewSchemaError(kind, "hash key %q is not a declared attribute", s.HashKey)
	}
	if s.RangeKey != "" {
		if _, ok := s.Attributes[s.RangeKey]; !ok {
			return errors.NewSchemaError(kind, "range key %q is not a declared attribute", s.RangeKey)
		}
		if hash.IsAutoIncrement() {
			return errors.NewSchemaError(kind, "autoincrement hash key %q cannot be combined with a range key", s.HashKey)
		}
	}

	for name, d := range s.Attributes {
		if _, err := d.Shape(); err != nil {
			return errors.NewSchemaError(kind, "attribute %q: %v", name, err)
		}
		if d.IsAutoIncrement() && name != s.HashKey {
			return errors.NewSchemaError(kind, "attribute %q: autoincrement is only valid on the hash key", name)
		}
	}
	for name := range s.Defaults {
		if _, ok := s.Attributes[name]; !ok {
			return errors.NewSchemaError(kind, "default for undeclared attribute %q", name)
		}
	}

	if s.Migrator != nil {
		if err := s.Migrator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s Schema) clone() Schema {
	s.Attributes = maps.Clone(s.Attributes)
	s.Defaults = maps.Clone(s.Defaults)
	return s
}

func (s Schema) keyNames() []string {
	if s.RangeKey == "" {
		return []string{s.HashKey}
	}
	return []string{s.HashKey, s.RangeKey}
}
