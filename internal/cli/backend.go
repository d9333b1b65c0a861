/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/suparena/remotestore"
	"github.com/suparena/remotestore/config"
	"github.com/suparena/remotestore/datastore"
	"github.com/suparena/remotestore/datastore/ddb"
	"github.com/suparena/remotestore/datastore/mock"
	"github.com/suparena/remotestore/datastore/sqlite"
	"github.com/suparena/remotestore/internal/document"
	"github.com/suparena/remotestore/objectcontext"
	"github.com/suparena/remotestore/registry"
)

// workspace is what every command operates on: a document context over the
// configured backend and a resolver for it.
type workspace struct {
	logger   *slog.Logger
	context  *objectcontext.Context[document.Document, *document.Document]
	resolver *remotestore.Resolver[document.Document, *document.Document]
	close    func() error
}

func openWorkspace(cmd *cobra.Command, opts *RootOptions) (*workspace, error) {
	cfg, err := opts.loadConfig(opts.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())

	entityType := registry.NewEntityType(opts.TypeName)
	if err := entityType.Validate(); err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(cmd.Context(), cfg, entityType)
	if err != nil {
		return nil, err
	}

	oc, err := objectcontext.New[document.Document](store, entityType, objectcontext.WithLogger(logger))
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	resolver := remotestore.NewResolver[document.Document]().
		WithLogger(logger).
		WithMapper(document.Mapper{BaseMapper: remotestore.BaseMapper[*document.Document]{Logger: logger}})

	logger.Debug("opened workspace", "backend", cfg.Backend, "entity_type", entityType.Name)
	return &workspace{
		logger:   logger,
		context:  oc,
		resolver: resolver,
		close: func() error {
			_ = oc.Close()
			return closeStore()
		},
	}, nil
}

func openStore(ctx context.Context, cfg config.Config, entityType registry.EntityType) (datastore.DataStore[document.Document], func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return mock.New[document.Document]().WithTypeName(entityType.Name), noop, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.NewDataStore[document.Document](db, entityType)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case config.BackendDynamoDB:
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientOptions{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.DynamoDBEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := ddb.NewDynamodbDataStore[document.Document](client, cfg.DynamoDBTable, entityType)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
