/*
Package remotestore resolves local entities against records of a remote
system.

Entities embed storagemodels.RemoteFields and live in an object context
backed by a DataStore (in-memory, SQLite or DynamoDB). A Resolver finds or
creates them by remote id or attribute, and applies remote payloads through
a Mapper with a last-write-wins staleness check:

	type Post struct {
	    storagemodels.RemoteFields
	    Title string `json:"title"`
	}

	et := registry.RegisterEntityType[Post]("Post", nil)
	oc, _ := objectcontext.New[Post](store, et)

	resolver := remotestore.NewResolver[Post]().
	    WithMapper(remotestore.FieldMapper[*Post]{})

	d, _ := remotestore.DecodeDictionary(body)
	post, err := resolver.ObjectWithDictionary(ctx, oc, d)
	...
	err = oc.Save(ctx)

Payload timestamps (created_at, updated_at) may be Unix seconds or ISO-8601
strings; see ParseDate.
*/
package remotestore
