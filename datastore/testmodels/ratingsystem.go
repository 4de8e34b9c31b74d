/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels declares record kinds shared by integration tests.
package testmodels

import (
	"time"

	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/attr"
)

// RatingSystemSchema declares a rating system stored in table, keyed by a
// generated UUID.
func RatingSystemSchema(table string) entitymapper.Schema {
	return entitymapper.Schema{
		Name:    "RatingSystem",
		Table:   table,
		HashKey: "Id",
		Attributes: map[string]attr.Descriptor{
			"Id":          attr.Validated(attr.Format("uuid")),
			"Name":        attr.Validated(attr.All(attr.Coerce(attr.Text), attr.Length(1, 64))),
			"Description": attr.Of(attr.Text),
			"SiteUrl":     attr.Validated(attr.Format("uri")),
			"CreatedAt":   attr.Of(attr.Timestamp),
			"UpdatedAt":   attr.Of(attr.Timestamp),
		},
		Defaults: map[string]entitymapper.Default{
			"Id":        entitymapper.DefaultUUID(),
			"CreatedAt": entitymapper.Producer(func() any { return time.Now().UTC() }),
			"UpdatedAt": entitymapper.Producer(func() any { return time.Now().UTC() }),
		},
	}
}

// RatingSchema declares one rating of a player in a rating system, with the
// time it was recorded as range key.
func RatingSchema(table string) entitymapper.Schema {
	return entitymapper.Schema{
		Name:     "Rating",
		Table:    table,
		HashKey:  "PlayerId",
		RangeKey: "RecordedAt",
		Attributes: map[string]attr.Descriptor{
			"PlayerId":   attr.Of(attr.Text),
			"RecordedAt": attr.Of(attr.Timestamp),
			"SystemId":   attr.Of(attr.Text),
			"Value":      attr.Validated(attr.All(attr.Coerce(attr.Float), attr.InRange(0, 4000))),
		},
	}
}

// MatchSchema declares a match keyed by an autoincrement id.
func MatchSchema(table string) entitymapper.Schema {
	return entitymapper.Schema{
		Name:    "Match",
		Table:   table,
		HashKey: "Id",
		Attributes: map[string]attr.Descriptor{
			"Id":      attr.Of(attr.AutoIncrement),
			"Players": attr.Of(attr.TextSet),
			"Score":   attr.Of(attr.List),
		},
	}
}
