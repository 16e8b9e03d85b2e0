package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hive/pkg/memory"
)

// newRememberCmd creates the "hive remember" subcommand.
func newRememberCmd() *cobra.Command {
	var collection string
	var tags []string
	cmd := &cobra.Command{
		Use:   "remember <text>",
		Short: "Store a learning through the smart write path",
		Long:  "Store a learning. The store retrieves the nearest existing records\nand decides whether the text is new knowledge (ADD), a correction\n(UPDATE), a retraction (DELETE), or already known (NOOP).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("remember: %w", err)
			}
			defer app.Close()

			content := strings.Join(args, " ")
			res, err := app.memories.Upsert(cmd.Context(), content, memory.UpsertOpts{
				Collection: collection,
				Tags:       tags,
			})
			if err != nil {
				return fmt.Errorf("remember: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", res.Operation, shortID(res.ID), res.Reason)
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "namespace for the record (default: default)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	return cmd
}

// newRecallCmd creates the "hive recall" subcommand.
func newRecallCmd() *cobra.Command {
	var collection string
	var limit int
	var minScore float64
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Search learnings",
		Long:  "Hybrid search over the memory store: lexical full-text match fused\nwith vector similarity.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("recall: %w", err)
			}
			defer app.Close()

			query := strings.Join(args, " ")
			results, err := app.memories.Find(cmd.Context(), query, memory.FindOpts{
				Limit:      limit,
				MinScore:   minScore,
				Collection: collection,
			})
			if err != nil {
				return fmt.Errorf("recall: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), formatRecallResults(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "restrict to one namespace")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (default from config)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop results under this fused score")
	return cmd
}

// formatRecallResults formats search results for CLI output.
func formatRecallResults(results []memory.ScoredMemory) string {
	if len(results) == 0 {
		return "No memories found.\n"
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, shortID(r.ID), r.Content)
		fmt.Fprintf(&b, "   confidence: %.2f | score: %.4f | created: %s\n",
			r.Confidence, r.Score, r.CreatedAt.Format("2006-01-02"))
	}
	return b.String()
}

// newMemoriesCmd creates the "hive memories" subcommand.
func newMemoriesCmd() *cobra.Command {
	var collection string
	var limit int
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List stored learnings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("memories: %w", err)
			}
			defer app.Close()

			records, err := app.memories.List(cmd.Context(), memory.ListOpts{
				Collection: collection,
				Limit:      limit,
			})
			if err != nil {
				return fmt.Errorf("memories: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No memories stored.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCONF\tCOLLECTION\tCONTENT")
			for _, m := range records {
				fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", shortID(m.ID), m.Confidence, m.Collection, truncate(m.Content, 60))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "restrict to one namespace")
	cmd.Flags().IntVar(&limit, "limit", 50, "max records to show")
	return cmd
}

// newForgetCmd creates the "hive forget" subcommand.
func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete a learning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			defer app.Close()

			if err := app.memories.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
			return nil
		},
	}
}

// newValidateCmd creates the "hive validate" subcommand.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>",
		Short: "Re-confirm a learning",
		Long:  "Mark a record as validated: confidence back to 1.0 and the decay\nclock restarted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}
			defer app.Close()

			if err := app.memories.Validate(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("validate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Validated %s\n", args[0])
			return nil
		},
	}
}

// newDecayCmd creates the "hive decay" subcommand.
func newDecayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decay",
		Short: "Apply confidence decay to stale learnings",
		Long:  "Lower confidence on records not validated within the grace window.\nThe pass is idempotent: running it again at the same instant changes\nnothing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("decay: %w", err)
			}
			defer app.Close()

			n, err := app.memories.ApplyDecay(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("decay: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Decayed %d records\n", n)
			return nil
		},
	}
}

// newExportCmd creates the "hive export" subcommand.
func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export learnings as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			defer app.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := app.memories.ExportJSONL(cmd.Context(), w)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to a file instead of stdout")
	return cmd
}

// newImportCmd creates the "hive import" subcommand.
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Import learnings from a JSONL export",
		Long:  "Import records from a JSONL export. Records whose id is already\npresent are skipped, so re-importing the same file is a no-op.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer app.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer f.Close()

			stats, err := app.memories.ImportJSONL(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d, invalid %d\n",
				stats.Imported, stats.Skipped, stats.Invalid)
			return nil
		},
	}
}

// truncate shortens s for table output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
