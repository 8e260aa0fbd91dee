package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sheetdb/pkg/codec"
	"github.com/ajitpratap0/sheetdb/pkg/config"
	"github.com/ajitpratap0/sheetdb/pkg/schema"
	"github.com/ajitpratap0/sheetdb/pkg/sheetdb"
)

// record is the entity type used by the CLI: every header becomes a string
// field of the same name.
type record = map[string]any

// dynamicEntry describes the sheet behind a1 from its current header row.
// keyField defaults to the first non-empty header.
func dynamicEntry(ctx context.Context, db *sheetdb.DB, storeID, a1, keyField string) (*schema.Entry[record], error) {
	headers, err := db.HeaderMap(ctx, storeID, schema.SheetOf(a1))
	if err != nil {
		return nil, err
	}

	columns := make(map[string]schema.Column, headers.Len())
	for _, name := range headers.Names() {
		if name == "" {
			continue
		}
		columns[name] = schema.Column{Header: name}
		if keyField == "" {
			keyField = name
		}
	}

	return &schema.Entry[record]{
		StoreID:    storeID,
		SheetRange: a1,
		KeyField:   keyField,
		Columns:    columns,
		Validator:  schema.MapValidator{},
	}, nil
}

// datasets builds one dataset per distinct range. A dataset is keyed by its
// sheet name, or by the range itself when several ranges share a sheet.
func datasets(ctx context.Context, db *sheetdb.DB, storeID string, ranges []string) ([]sheetdb.Dataset, error) {
	perSheet := make(map[string]int, len(ranges))
	seen := make(map[string]bool, len(ranges))
	var distinct []string
	for _, a1 := range ranges {
		if seen[a1] {
			continue
		}
		seen[a1] = true
		distinct = append(distinct, a1)
		perSheet[schema.SheetOf(a1)]++
	}

	out := make([]sheetdb.Dataset, 0, len(distinct))
	for _, a1 := range distinct {
		entry, err := dynamicEntry(ctx, db, storeID, a1, "")
		if err != nil {
			return nil, err
		}
		key := entry.SheetName()
		if perSheet[key] > 1 {
			key = a1
		}
		out = append(out, sheetdb.NewDataset(key, entry))
	}
	return out, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSheetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <store-id>",
		Short: "List the sheet names of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *sheetdb.DB) error {
				names, err := db.SheetNames(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(a.out, name)
				}
				return nil
			})
		},
	}
}

func newHeadersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "headers <store-id> <sheet>",
		Short: "Show the header row of a sheet with column letters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *sheetdb.DB) error {
				headers, err := db.HeaderMap(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				for i, name := range headers.Names() {
					fmt.Fprintf(a.out, "%s\t%s\n", codec.ColumnLetter(i), name)
				}
				return nil
			})
		},
	}
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <store-id> <range>...",
		Short: "Print the records of one or more sheet ranges as JSON",
		Long: `Print the records of one or more sheet ranges as JSON.

A single range prints an array of records. Several ranges are read in one
batch request and print an object keyed by sheet name, or by range when
more than one range targets the same sheet.

Example:
  sheetdb fetch 1BxiMVs0XRA5 'People!A:E' 'Teams!A:B'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storeID, ranges := args[0], args[1:]
			return a.withDB(ctx, func(db *sheetdb.DB) error {
				if len(ranges) == 1 {
					entry, err := dynamicEntry(ctx, db, storeID, ranges[0], "")
					if err != nil {
						return err
					}
					rows, err := sheetdb.Fetch(ctx, db, entry)
					if err != nil {
						return err
					}
					return a.printJSON(rows)
				}

				ds, err := datasets(ctx, db, storeID, ranges)
				if err != nil {
					return err
				}
				result, err := db.BatchFetch(ctx, storeID, ds)
				if err != nil {
					return err
				}
				return a.printJSON(result)
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var keyField string
	cmd := &cobra.Command{
		Use:   "get <store-id> <range> <key>",
		Short: "Print the record whose key column holds key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withDB(ctx, func(db *sheetdb.DB) error {
				entry, err := dynamicEntry(ctx, db, args[0], args[1], keyField)
				if err != nil {
					return err
				}
				rec, err := sheetdb.Get(ctx, db, entry, args[2])
				if err != nil {
					return err
				}
				return a.printJSON(rec)
			})
		},
	}
	cmd.Flags().StringVarP(&keyField, "key", "k", "", "Header of the key column (default: first header)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var keyField string
	cmd := &cobra.Command{
		Use:   "delete <store-id> <range> <key>",
		Short: "Delete the row whose key column holds key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withDB(ctx, func(db *sheetdb.DB) error {
				entry, err := dynamicEntry(ctx, db, args[0], args[1], keyField)
				if err != nil {
					return err
				}
				if err := sheetdb.Delete(ctx, db, entry, args[2]); err != nil {
					return err
				}
				a.logger.Info("row deleted",
					zap.String("store", args[0]),
					zap.String("sheet", entry.SheetName()),
					zap.String("key", args[2]))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&keyField, "key", "k", "", "Header of the key column (default: first header)")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <store-id> <range>...",
		Short: "Re-read ranges bypassing the cache and record the sync in the journal",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storeID := args[0]
			return a.withDB(ctx, func(db *sheetdb.DB) error {
				ds, err := datasets(ctx, db, storeID, args[1:])
				if err != nil {
					return err
				}
				result, err := db.SyncStore(ctx, storeID, ds)
				if err != nil {
					return err
				}
				entry, _, err := db.LastSync(ctx, storeID)
				if err != nil {
					return err
				}

				counts := make(map[string]int, len(result))
				for _, key := range result.Keys() {
					counts[key] = len(sheetdb.Rows[record](result, key))
				}
				return a.printJSON(map[string]any{
					"store_id":  entry.StoreID,
					"synced_at": entry.SyncedAt,
					"rows":      counts,
				})
			})
		},
	}
}

func newJournalCmd(a *app) *cobra.Command {
	journal := &cobra.Command{
		Use:   "journal",
		Short: "Inspect or reset the sync journal",
	}

	journal.AddCommand(&cobra.Command{
		Use:   "show <store-id>",
		Short: "Print the last recorded sync of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *sheetdb.DB) error {
				entry, ok, err := db.LastSync(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(a.out, "no sync recorded for %s\n", args[0])
					return nil
				}
				return a.printJSON(entry)
			})
		},
	})

	journal.AddCommand(&cobra.Command{
		Use:   "invalidate <store-id>",
		Short: "Forget the last recorded sync of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *sheetdb.DB) error {
				return db.InvalidateJournal(cmd.Context(), args[0])
			})
		},
	})

	return journal
}

func newConfigCmd(a *app) *cobra.Command {
	var force bool
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a configuration file holding the defaults",
		Long: `Write a configuration file holding the defaults.

The access token is never written; provide it through SHEETDB_ACCESS_TOKEN
or a ${VAR} reference added to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.Save(path, config.NewBaseConfig("sheetdb")); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}
