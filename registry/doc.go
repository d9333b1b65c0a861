/*
Package registry manages entity type descriptors for remotestore.

A descriptor names a category of records and carries the key templates the
stores use to address them. Stores, contexts and the CLI receive the
descriptor explicitly; the registry only offers a convenient way to find
the descriptor of a Go type.

Registering a type:

	var postType = registry.RegisterEntityType[Post]("Post", nil)

A nil index map selects DefaultIndexMap:

	map[string]string{
	    "PK":  "Post#{object_id}",
	    "SK":  "Post#{object_id}",
	    "PK1": "Post#REMOTE#{remote_id}",
	    "SK1": "Post",
	}

Macros name `json` attributes of the entity and are expanded by the
DynamoDB backend when an item is written. Entities without a remote id
expand PK1 to an empty value, which keeps them out of the remote-id index.

Looking up:

	et, err := registry.EntityTypeOf[Post]()
	et, err := registry.LookupEntityType("Post")

Types whose records share one Go struct (such as generic documents) use
NewEntityType to build a descriptor per name without registering it.

The registry is thread-safe and should be populated during initialization.
*/
package registry
