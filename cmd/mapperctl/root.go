/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/config"
	"github.com/suparena/entitymapper/registry"
)

// Deps carries the settings resolved before a subcommand runs.
type Deps struct {
	EnvFile    string
	SchemaFile string
	Backend    string
	BoltPath   string
	LogLevel   string
	LogJSON    bool

	// LogOut receives log lines; stderr when nil.
	LogOut io.Writer

	Config config.Config
	Logger *slog.Logger
}

// Run executes the CLI with args.
func Run(ctx context.Context, args []string) error {
	root := NewRootCmd(&Deps{})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the mapperctl command tree. Flags override the
// environment read by config.Load.
func NewRootCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mapperctl",
		Short:         "inspect and operate on schema-mapped DynamoDB tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var envFiles []string
			if deps.EnvFile != "" {
				envFiles = append(envFiles, deps.EnvFile)
			}
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("schema") || cfg.SchemaFile == "" {
				cfg.SchemaFile = deps.SchemaFile
			}
			if flags.Changed("backend") {
				cfg.Backend = deps.Backend
			}
			if flags.Changed("bolt-path") {
				cfg.BoltPath = deps.BoltPath
			}
			if flags.Changed("log-level") {
				if err := cfg.LogLevel.UnmarshalText([]byte(deps.LogLevel)); err != nil {
					return fmt.Errorf("invalid --log-level: %w", err)
				}
			}
			if flags.Changed("log-json") {
				cfg.LogJSON = deps.LogJSON
			}

			deps.Config = cfg
			deps.Logger = cfg.NewLogger(deps.LogOut)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&deps.EnvFile, "env-file", "", "read settings from this .env file (default .env)")
	pf.StringVarP(&deps.SchemaFile, "schema", "s", "", "YAML schema declaration file (default $MAPPER_SCHEMA_FILE)")
	pf.StringVar(&deps.Backend, "backend", "", "store backend: dynamodb, bolt or memory")
	pf.StringVar(&deps.BoltPath, "bolt-path", "", "database file of the bolt backend")
	pf.StringVar(&deps.LogLevel, "log-level", "info", "minimum log level")
	pf.BoolVar(&deps.LogJSON, "log-json", false, "output logs as JSON")

	cmd.AddCommand(
		NewValidateCmd(deps),
		NewCreateTableCmd(deps),
		NewPutCmd(deps),
		NewGetCmd(deps),
		NewScanCmd(deps),
		NewVersionCmd(),
	)
	return cmd
}

// openMapper opens the configured store and registers the schema file's
// kinds. Local backends get their tables created on the fly.
func (d *Deps) openMapper(ctx context.Context) (*entitymapper.Mapper, func() error, error) {
	if d.Config.SchemaFile == "" {
		return nil, nil, fmt.Errorf("no schema file: use --schema or MAPPER_SCHEMA_FILE")
	}
	store, closeStore, err := d.Config.OpenStore(ctx, d.Logger)
	if err != nil {
		return nil, nil, err
	}

	m := entitymapper.New(store, entitymapper.WithLogger(d.Logger))
	kinds, err := registry.RegisterAll(m, d.Config.SchemaFile)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	if d.Config.Backend != config.BackendDynamoDB {
		for _, k := range kinds {
			if err := k.CreateTable(ctx, 0, 0, false); err != nil {
				_ = closeStore()
				return nil, nil, err
			}
		}
	}
	return m, closeStore, nil
}
