/*
Package ddb provides a DynamoDB implementation of the DataStore interface.

Every entity type shares one table. Keys are expanded from the entity type's
index map, where macros name `json` attributes of the entity:

	indexMap := map[string]string{
	    "PK":  "Post#{object_id}",
	    "SK":  "Post#{object_id}",
	    "PK1": "Post#REMOTE#{remote_id}", // sparse: omitted for local-only posts
	    "SK1": "Post",
	}

Items carry an EntityType attribute so that scans can be scoped to one type.
Remote id lookups query the GSI1 index; other attribute lookups scan with a
filter expression.

Reads are paged through Stream, which retries throttling errors:

	results := store.Stream(ctx, params,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        slog.Debug("scan progress", "items", p.ItemsProcessed)
	    }),
	)
*/
package ddb
