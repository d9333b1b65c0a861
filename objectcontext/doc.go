/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package objectcontext provides the persistence context the resolver works
against: an in-memory working set of one entity type layered over a
datastore.DataStore.

	oc, err := objectcontext.New[Post](store, registry.MustEntityTypeOf[Post]())
	post, err := oc.InsertNew(ctx)
	post.Title = "Hello"
	err = oc.Save(ctx)

Store failures surface as errors.ContextFailureError. Lookups that find
nothing return a nil object and a nil error.
*/
package objectcontext
