/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"maps"

	"github.com/suparena/entitymapper/attr"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Entity is one record of a kind: its native attribute values and the
// stored payload it was last known to match. An Entity is not safe for
// concurrent use.
type Entity struct {
	kind     *Kind
	values   map[string]any
	snapshot storagemodels.Payload
}

// Kind returns the kind of the entity.
func (e *Entity) Kind() *Kind {
	return e.kind
}

// Get returns the value of an attribute, nil when unset.
func (e *Entity) Get(name string) any {
	return e.values[name]
}

// Set assigns an attribute. Primitive attributes are coerced to their
// canonical Go type right away; validated attributes are checked by
// Validate and Save.
func (e *Entity) Set(name string, v any) error {
	d, ok := e.kind.schema.Attributes[name]
	if !ok {
		return errors.NewValidationError(name, fmt.Sprintf("not an attribute of %s", e.kind.Name()))
	}
	if d.Validator() != nil {
		e.values[name] = v
		return nil
	}
	n, err := attr.Normalize(d, v)
	if err != nil {
		return fieldError(name, err)
	}
	e.values[name] = n
	return nil
}

// Value returns an attribute converted to T, and false when it is unset or
// of another type.
func Value[T any](e *Entity, name string) (T, bool) {
	v, ok := e.values[name].(T)
	return v, ok
}

// Values returns a copy of all attribute values.
func (e *Entity) Values() map[string]any {
	return maps.Clone(e.values)
}

// Snapshot returns a copy of the payload the entity was last loaded from or
// saved as; empty for entities never persisted.
func (e *Entity) Snapshot() storagemodels.Payload {
	return maps.Clone(e.snapshot)
}

// IsPersisted reports whether the entity has a snapshot.
func (e *Entity) IsPersisted() bool {
	return len(e.snapshot) > 0
}

// Validate runs every attribute through its descriptor and returns the
// validated values. All failures are reported together as
// errors.ValidationErrors.
func (e *Entity) Validate() (map[string]any, error) {
	out := make(map[string]any, len(e.kind.schema.Attributes))
	var failures errors.ValidationErrors

	for _, name := range e.kind.attributeNames {
		d := e.kind.schema.Attributes[name]
		v := e.values[name]

		validated, err := attr.Normalize(d, v)
		if err != nil {
			if errors.IsSchemaError(err) {
				return nil, err
			}
			failures = append(failures, validationFailure(name, err))
			continue
		}
		out[name] = validated
	}

	if len(failures) > 0 {
		return nil, failures
	}
	return out, nil
}

// ToPortableMapping returns the attribute values in a form any JSON encoder
// accepts: sets as sorted slices and timestamps as ISO-8601 text.
func (e *Entity) ToPortableMapping() map[string]any {
	out := make(map[string]any, len(e.values))
	for _, name := range e.kind.attributeNames {
		out[name] = attr.Portable(e.values[name])
	}
	return out
}

// MarshalJSON encodes the portable mapping.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToPortableMapping())
}

// Key returns the encoded primary key of the entity.
func (e *Entity) Key() (storagemodels.Key, error) {
	key := make(storagemodels.Key, 2)
	for _, name := range e.kind.schema.keyNames() {
		av, err := attr.EncodeKey(e.kind.schema.Attributes[name], e.values[name])
		if err != nil {
			return nil, fieldError(name, err)
		}
		key[name] = av
	}
	return key, nil
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s%v", e.kind.Name(), e.ToPortableMapping())
}

// encode validates the entity and renders the payload to store. Elided
// attributes are left out.
func (e *Entity) encode() (storagemodels.Payload, error) {
	values, err := e.Validate()
	if err != nil {
		return nil, err
	}
	payload := make(storagemodels.Payload, len(values))
	for name, v := range values {
		av, err := attr.Encode(e.kind.schema.Attributes[name], v)
		if err != nil {
			return nil, fieldError(name, err)
		}
		if av != nil {
			payload[name] = av
		}
	}
	return payload, nil
}

// validationFailure turns any validator error into a ValidationError on
// the named attribute.
func validationFailure(name string, err error) *errors.ValidationError {
	var ve *errors.ValidationError
	if stderrors.As(err, &ve) {
		if ve.Field != "" {
			return ve
		}
		return &errors.ValidationError{Field: name, Message: ve.Message}
	}
	return &errors.ValidationError{Field: name, Message: err.Error()}
}

// fieldError attaches the attribute name to an anonymous ValidationError.
func fieldError(name string, err error) error {
	var ve *errors.ValidationError
	if stderrors.As(err, &ve) && ve.Field == "" {
		return errors.NewValidationError(name, ve.Message)
	}
	return err
}
