/*
Package storagemodels defines the data structures shared by the resolver,
the persistence context and the storage backends.

Remote entities:

Every remote-backed entity embeds RemoteFields, which carries the local
object id, the remote identifier and the remote timestamps:

	type Post struct {
	    storagemodels.RemoteFields
	    Title string `json:"title"`
	}

A *Post then satisfies RemoteObject, and generic code constrains its type
parameters with Entity[T] to allocate new entities:

	func newEntity[T any, P storagemodels.Entity[T]]() P {
	    return P(new(T))
	}

Predicates:

Lookups are expressed as a Predicate on a `json` attribute name:

	storagemodels.RemoteIDEquals("42")
	storagemodels.AttributeEquals("slug", "hello-world")

Predicate.Matches evaluates a predicate against an in-memory entity by
converting both sides to DynamoDB attribute values, so numbers compare by
value and every backend agrees on attribute names.

Streaming:

Paged reads (used by the DynamoDB backend) are configured with functional
options:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels
