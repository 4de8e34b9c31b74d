/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/suparena/entitymapper/datastore"
)

// Mapper binds record kinds to a Store. It is safe for concurrent use.
type Mapper struct {
	store    datastore.Store
	logger   *slog.Logger
	dbLogger *slog.Logger

	mu    sync.RWMutex
	kinds map[string]*Kind
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the mapper logger. Store round trips are logged on a
// child logger tagged component=database-access.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Mapper on top of store.
func New(store datastore.Store, opts ...Option) *Mapper {
	m := &Mapper{
		store:  store,
		logger: slog.Default(),
		kinds:  make(map[string]*Kind),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dbLogger = m.logger.With("component", "database-access")
	return m
}

// Store returns the underlying store.
func (m *Mapper) Store() datastore.Store {
	return m.store
}

// Register validates a schema and declares its record kind. The schema is
// copied; later changes to it have no effect.
func (m *Mapper) Register(schema Schema) (*Kind, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	k := newKind(m, schema)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.kinds[k.Name()]; exists {
		return nil, fmt.Errorf("kind %q already registered", k.Name())
	}
	m.kinds[k.Name()] = k
	m.logger.Debug("kind registered", "kind", k.Name(), "table", k.schema.Table)
	return k, nil
}

// MustRegister is like Register but panics on error. Meant for package
// level declarations.
func (m *Mapper) MustRegister(schema Schema) *Kind {
	k, err := m.Register(schema)
	if err != nil {
		panic(err)
	}
	return k
}

// Kind returns a registered kind by name.
func (m *Mapper) Kind(name string) (*Kind, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, exists := m.kinds[name]
	if !exists {
		return nil, fmt.Errorf("kind %q not found", name)
	}
	return k, nil
}

// Kinds lists the registered kind names in order.
func (m *Mapper) Kinds() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.kinds))
	for name := range m.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
