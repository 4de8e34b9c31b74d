/*
Package entitymapper maps schema-declared record kinds onto a DynamoDB-style
item store.

A Schema names the table, the hash key and optional range key, and a
descriptor per attribute. Descriptors are either primitive types
(integer, float, text, boolean, byte/text/number sets, list, map,
timestamp, autoincrement) or validators from package attr. Values are
coerced to canonical Go types on the way in and encoded to DynamoDB
attribute values on save; stored payloads run through an optional
migration.Migrator before they are decoded, so old item shapes keep
loading after a schema change.

Writes can be protected against concurrent changes:

	m := entitymapper.New(store, entitymapper.WithLogger(logger))
	users := m.MustRegister(entitymapper.Schema{
	    Table:   "users",
	    HashKey: "id",
	    Attributes: map[string]attr.Descriptor{
	        "id":    attr.Of(attr.AutoIncrement),
	        "email": attr.Validated(attr.Format("email")),
	    },
	})

	u := users.MustNew(map[string]any{"email": "ann@example.com"})
	err := u.Save(ctx) // allocates id 1, 2, ... from a counter row

	u, err = users.Get(ctx, entitymapper.Key{Hash: 1})
	_ = u.Set("email", "ann@example.org")
	err = u.Save(ctx, entitymapper.RaiseOnConflict())
	if errors.IsConflict(err) {
	    // someone else wrote the item since it was loaded
	}

Stores live under datastore: ddb for Amazon DynamoDB, bolt for a local
bbolt file and mock for tests.
*/
package entitymapper
