/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cli implements the remotestore command line tool.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/suparena/remotestore/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	TypeName string
	EnvFiles []string
	Output   string // "json" | "yaml"

	// loadConfig reads the configuration; tests replace it.
	loadConfig func(envFiles ...string) (config.Config, error)
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"json", "yaml"}

// NewRootCommand creates the root command for the remotestore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{loadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remotestore",
		Short: "Resolve remote records into a local store",
		Long: `remotestore imports JSON or YAML payloads from a remote system into a
local store (SQLite, DynamoDB or memory), matching records by remote id and
applying only payloads newer than what is stored.

The backend is configured with REMOTESTORE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidOutput(opts.Output) {
				return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.TypeName, "type", "t", "document", "entity type name")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "dotenv file(s) to read before the environment")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "json", "output format (json|yaml)")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// isValidOutput checks if the format is one of the allowed values.
func isValidOutput(format string) bool {
	for _, f := range ValidOutputs {
		if f == format {
			return true
		}
	}
	return false
}
