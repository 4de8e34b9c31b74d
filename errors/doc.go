/*
Package errors provides semantic error types for the entity mapper.

Every struct error matches a sentinel through errors.Is, so callers can
branch on the class of failure without caring about the concrete type:

	var (
	    ErrNotFound           = errors.New("item not found")
	    ErrInvalidInput       = errors.New("invalid input")
	    ErrConditionFailed    = errors.New("condition check failed")
	    ErrSchema             = errors.New("schema error")
	    ErrVersion            = errors.New("unknown payload version")
	    ErrConflict           = errors.New("conflicting concurrent write")
	    ErrOverwrite          = errors.New("item already exists")
	    ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	)

Usage:

	err := entity.Save(ctx, entitymapper.RaiseOnConflict())
	switch {
	case errors.IsOverwrite(err):
	    // a protected create found an existing item
	case errors.IsConflict(err):
	    // someone else changed the item since we read it
	}

OverwriteError embeds ConflictError, so it also matches ErrConflict and
errors.As(err, &*ConflictError) succeeds on it.

ErrConditionFailed is the signal stores use for a rejected conditional
write. The save and delete protocols translate it into ConflictError or
OverwriteError; every other store error propagates unchanged.
*/
package errors
