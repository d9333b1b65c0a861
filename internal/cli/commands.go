/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suparena/remotestore"
	"github.com/suparena/remotestore/errors"
)

// ImportSummary reports what an import did.
type ImportSummary struct {
	Files     int `json:"files"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Import JSON or YAML payloads",
		Long: `Import resolves every payload by its "id" (or "remote_id") key, creating
records that do not exist yet. Payloads whose updated_at is not newer than the
stored record are skipped. Files ending in .yaml or .yml are read as YAML,
everything else as JSON. A file may hold one object or a list of objects.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args)
		},
	}
}

func readPayloads(path string) ([]remotestore.Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return remotestore.FromYAML(data)
	default:
		return remotestore.DecodeDictionaries(strings.NewReader(string(data)))
	}
}

func runImport(cmd *cobra.Command, opts *RootOptions, files []string) error {
	ws, err := openWorkspace(cmd, opts)
	if err != nil {
		return err
	}
	defer ws.close()

	ctx := cmd.Context()
	summary := ImportSummary{}
	for _, path := range files {
		payloads, err := readPayloads(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for i, d := range payloads {
			_, outcome, err := ws.resolver.ResolveDictionary(ctx, ws.context, d)
			if err != nil {
				return fmt.Errorf("%s: payload %d: %w", path, i, err)
			}
			switch outcome {
			case remotestore.Created:
				summary.Created++
			case remotestore.Updated:
				summary.Updated++
			default:
				summary.Unchanged++
			}
		}
		summary.Files++
	}

	if err := ws.context.Save(ctx); err != nil {
		return err
	}
	ws.logger.Info("import finished",
		"files", summary.Files, "created", summary.Created,
		"updated", summary.Updated, "unchanged", summary.Unchanged)
	return writeOutput(cmd.OutOrStdout(), opts.Output, summary)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get REMOTE_ID",
		Short: "Show the record with a remote id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer ws.close()

			doc, err := ws.resolver.ExistingObjectWithRemoteID(cmd.Context(), ws.context, args[0])
			if err != nil {
				return err
			}
			if doc == nil {
				return errors.NewNotFoundError(rootOpts.TypeName, args[0])
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Output, doc)
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every record of the entity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer ws.close()

			docs, err := ws.resolver.ExistingObjects(cmd.Context(), ws.context)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Output, docs)
		},
	}
}

// PurgeSummary reports what a purge removed.
type PurgeSummary struct {
	Removed int `json:"removed"`
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove every record of the entity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer ws.close()

			ctx := cmd.Context()
			existing, err := ws.resolver.ExistingObjects(ctx, ws.context)
			if err != nil {
				return err
			}
			if err := ws.resolver.RemoveExistingObjects(ctx, ws.context); err != nil {
				return err
			}
			if err := ws.context.Save(ctx); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Output, PurgeSummary{Removed: len(existing)})
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd.OutOrStdout(), rootOpts.Output, remotestore.GetVersionInfo())
		},
	}
}
