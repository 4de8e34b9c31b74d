/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package migration

import (
	"maps"
	"sort"
	"sync"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Detector reports whether a raw payload has the shape of a given version.
type Detector func(payload storagemodels.Payload) bool

// Upgrader rewrites a payload from the previous version to its own version.
type Upgrader func(payload storagemodels.Payload) (storagemodels.Payload, error)

// Rule describes one schema version. Either function may be nil: a version
// with only a Detector is a recognizable starting point, a version with only
// an Upgrader is an intermediate step that is never detected directly.
type Rule struct {
	Version int
	Detect  Detector
	Upgrade Upgrader
}

// Migrator detects the version of raw payloads and upgrades them to the
// newest version. Rules are sorted on first use and cached.
type Migrator struct {
	kind  string
	rules []Rule

	once      sync.Once
	prepErr   error
	detectors []Rule // descending by version
	upgraders []Rule // ascending by version
}

// New returns a migrator for the named record kind.
func New(kind string, rules ...Rule) *Migrator {
	return &Migrator{kind: kind, rules: rules}
}

func (m *Migrator) prepare() error {
	m.once.Do(func() {
		seen := make(map[int]bool)
		for _, r := range m.rules {
			if r.Detect != nil {
				m.detectors = append(m.detectors, r)
			}
			if r.Upgrade != nil {
				if seen[r.Version] {
					m.prepErr = errors.NewSchemaError(m.kind, "more than one upgrader for version %d", r.Version)
					return
				}
				seen[r.Version] = true
				m.upgraders = append(m.upgraders, r)
			}
		}
		sort.SliceStable(m.detectors, func(i, j int) bool { return m.detectors[i].Version > m.detectors[j].Version })
		sort.SliceStable(m.upgraders, func(i, j int) bool { return m.upgraders[i].Version < m.upgraders[j].Version })
	})
	return m.prepErr
}

// Validate reports a malformed rule set.
func (m *Migrator) Validate() error {
	return m.prepare()
}

// DetectVersion returns the highest version whose detector accepts the
// payload. The first match wins, so detectors must not overlap with newer
// versions.
func (m *Migrator) DetectVersion(payload storagemodels.Payload) (int, error) {
	if err := m.prepare(); err != nil {
		return 0, err
	}
	for _, r := range m.detectors {
		if r.Detect(payload) {
			return r.Version, nil
		}
	}
	return 0, errors.NewVersionError(m.kind)
}

// Migrate detects the payload version and applies every upgrader with a
// greater version, oldest first. The input payload is not modified.
func (m *Migrator) Migrate(payload storagemodels.Payload) (storagemodels.Payload, error) {
	version, err := m.DetectVersion(payload)
	if err != nil {
		return nil, err
	}
	out := maps.Clone(payload)
	for _, r := range m.upgraders {
		if r.Version <= version {
			continue
		}
		if out, err = r.Upgrade(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
