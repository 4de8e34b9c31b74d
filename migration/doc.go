/*
Package migration upgrades stored payloads written by older versions of a
record schema before they are decoded.

Each Rule names a version, a detector and an upgrader:

	m := migration.New("User",
	    migration.Rule{Version: 1, Detect: hasMailField},
	    migration.Rule{Version: 2, Detect: hasEmailField, Upgrade: renameMailToEmail},
	)
	latest, err := m.Migrate(payload)

Detectors run newest first and the first match decides the version. Every
upgrader with a newer version then runs, oldest first. A payload no
detector accepts fails with a VersionError.

Detector precision is up to the rule author: a detector that also accepts
older payloads will shadow them.
*/
package migration
