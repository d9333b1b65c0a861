/*
Package datastore defines the durable storage contract behind a persistence context.

The main interface is DataStore[T], which stores entities of one type T
addressed by their object id:

	type DataStore[T any] interface {
	    GetOne(ctx context.Context, objectID string) (*T, error)
	    FindFirst(ctx context.Context, pred storagemodels.Predicate) (*T, error)
	    FindAll(ctx context.Context) ([]T, error)
	    Put(ctx context.Context, entity T) error
	    Delete(ctx context.Context, objectID string) error
	}

Implementations:
  - ddb: DynamoDB single-table implementation with a sparse remote-id index
  - sqlite: SQLite implementation (pure Go driver) storing JSON bodies
  - mock: in-memory implementation used for tests and the CLI memory backend

Stores do not stage anything: staging, identity and save coordination live
in the objectcontext package.
*/
package datastore
