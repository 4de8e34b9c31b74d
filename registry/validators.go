/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/entitymapper/attr"
)

var (
	validators = make(map[string]attr.Validator)
	mu         sync.RWMutex
)

// RegisterValidator makes a validator available to schema files under
// name. Registering a name twice panics to prevent accidental overrides.
func RegisterValidator(name string, v attr.Validator) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := validators[name]; exists {
		panic(fmt.Sprintf("registry: validator %q already registered", name))
	}
	validators[name] = v
}

// LookupValidator returns the validator registered under name.
func LookupValidator(name string) (attr.Validator, error) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := validators[name]
	if !ok {
		return nil, fmt.Errorf("registry: no validator registered as %q", name)
	}
	return v, nil
}

// Validators lists the registered validator names.
func Validators() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
