/*
Package errors provides semantic error types for the remotestore library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrNoEntityType    = errors.New("no entity type registered")
	    ErrContextFailure  = errors.New("persistence context failure")
	    ErrInvalidDate     = errors.New("invalid date")
	)

Usage:

	post, err := resolver.ObjectWithRemoteID(ctx, oc, "42")
	if err != nil {
	    if errors.IsContextFailure(err) {
	        // the context or its store is unusable; do not retry
	        return nil, err
	    }
	    return nil, fmt.Errorf("resolve post: %w", err)
	}

Stores report missing records with NotFoundError. The resolver layer turns
those into absent (nil) results for the "existing" lookups and into
creation for the find-or-create lookups, so callers of the resolver only
see ErrNotFound if they talk to a store directly.

DateParseError is produced by the date parser and recovered locally: the
date is treated as absent and the error is never handed to callers of
ParseDate.
*/
package errors
