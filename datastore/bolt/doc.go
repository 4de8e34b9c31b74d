/*
Package bolt implements datastore.Store on a local bbolt file, for
development and tests that should survive a restart without DynamoDB.

Items are msgpack encoded. Conditional writes and counters run inside one
bbolt write transaction, which gives them the same atomicity DynamoDB
provides for a single item.

	store, err := bolt.Open("mapper.db", bolt.Options{Logger: logger})
	if err != nil {
	    return err
	}
	defer store.Close()
*/
package bolt
