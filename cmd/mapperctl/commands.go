/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/registry"
)

// NewValidateCmd returns the `validate` command.
func NewValidateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema.yaml>",
		Short: "check a schema declaration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas, err := registry.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range schemas {
				key := s.HashKey
				if s.RangeKey != "" {
					key += ", " + s.RangeKey
				}
				name := s.Name
				if name == "" {
					name = s.Table
				}
				fmt.Fprintf(out, "%s: table %s, key (%s), %d attributes\n", name, s.Table, key, len(s.Attributes))
			}
			fmt.Fprintf(out, "ok: %d kinds\n", len(schemas))
			return nil
		},
	}
}

// NewCreateTableCmd returns the `create-table` command.
func NewCreateTableCmd(deps *Deps) *cobra.Command {
	var read, write int64
	var wait bool

	cmd := &cobra.Command{
		Use:   "create-table <kind>",
		Short: "provision the table of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeStore, err := deps.openMapper(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			k, err := m.Kind(args[0])
			if err != nil {
				return err
			}
			if err := k.CreateTable(ctx, read, write, wait); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s created\n", k.Table())
			return nil
		},
	}
	cmd.Flags().Int64Var(&read, "read", 0, "provisioned read capacity (0 for on-demand)")
	cmd.Flags().Int64Var(&write, "write", 0, "provisioned write capacity (0 for on-demand)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the table is active")
	return cmd
}

// NewPutCmd returns the `put` command.
func NewPutCmd(deps *Deps) *cobra.Command {
	var raise bool

	cmd := &cobra.Command{
		Use:   "put <kind> <json>",
		Short: "create or replace an entity from a JSON object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeStore, err := deps.openMapper(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			k, err := m.Kind(args[0])
			if err != nil {
				return err
			}
			var values map[string]any
			if err := json.Unmarshal([]byte(args[1]), &values); err != nil {
				return fmt.Errorf("invalid entity JSON: %w", err)
			}
			e, err := k.New(values)
			if err != nil {
				return err
			}

			var opts []entitymapper.WriteOption
			if raise {
				opts = append(opts, entitymapper.RaiseOnConflict())
			}
			if err := e.Save(ctx, opts...); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), e)
		},
	}
	cmd.Flags().BoolVar(&raise, "raise-on-conflict", false, "refuse to overwrite an existing item")
	return cmd
}

// NewGetCmd returns the `get` command.
func NewGetCmd(deps *Deps) *cobra.Command {
	var consistent bool

	cmd := &cobra.Command{
		Use:   "get <kind> <hash> [range]",
		Short: "print one entity as JSON",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeStore, err := deps.openMapper(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			k, err := m.Kind(args[0])
			if err != nil {
				return err
			}
			key := entitymapper.Key{Hash: args[1]}
			if len(args) == 3 {
				key.Range = args[2]
			}

			var opts []entitymapper.ReadOption
			if consistent {
				opts = append(opts, entitymapper.ConsistentRead())
			}
			e, err := k.Get(ctx, key, opts...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), e)
		},
	}
	cmd.Flags().BoolVar(&consistent, "consistent", false, "strongly consistent read")
	return cmd
}

// NewScanCmd returns the `scan` command.
func NewScanCmd(deps *Deps) *cobra.Command {
	var limit int32

	cmd := &cobra.Command{
		Use:   "scan <kind>",
		Short: "print every entity of a kind, one JSON object per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, closeStore, err := deps.openMapper(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			k, err := m.Kind(args[0])
			if err != nil {
				return err
			}
			count := 0
			for r := range k.Scan(ctx, entitymapper.Limit(limit)) {
				if r.Error != nil {
					return r.Error
				}
				if err := writeJSON(cmd.OutOrStdout(), r.Item); err != nil {
					return err
				}
				count++
			}
			deps.Logger.Debug("scan finished", "kind", k.Name(), "count", count)
			return nil
		},
	}
	cmd.Flags().Int32Var(&limit, "limit", 0, "stop after this many items (0 for all)")
	return cmd
}

// NewVersionCmd returns the `version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := entitymapper.GetVersionInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mapperctl version %s\n", info.Version)
			fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
			fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
			return nil
		},
	}
}

func writeJSON(w io.Writer, e *entitymapper.Entity) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
