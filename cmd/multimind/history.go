package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dheena017/multimind/pkg/history"
	"github.com/dheena017/multimind/pkg/router"
	"github.com/dheena017/multimind/pkg/synthesis"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past queries and answers",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDeleteCmd())
	return cmd
}

func openHistory() (*history.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func historyListCmd() *cobra.Command {
	var (
		limit  int
		offset int
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past queries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			var records []history.Record
			if search != "" {
				records, err = store.Search(cmd.Context(), search, limit)
			} else {
				records, err = store.List(cmd.Context(), limit, offset)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history.")
				return nil
			}

			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tTOPIC\tLEVEL\tCONF\tCONSENSUS\tQUERY")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
					shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Topic,
					r.Complexity, r.Confidence, r.ConsensusLevel, truncate(r.Query, 60))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d shown, %d stored\n", len(records), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max records to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only show queries or topics containing this text")
	return cmd
}

func historyShowCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a past answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := findRecord(cmd, store, args[0])
			if err != nil {
				return err
			}
			if rec.Result == nil {
				return fmt.Errorf("record %s has no stored result", rec.ID)
			}

			md, _ := synthesis.Report(*rec.Result, router.Complexity{
				Level: router.Level(rec.Complexity),
				Score: rec.ComplexityScore,
			})
			md = fmt.Sprintf("# %s\n\n%s", rec.Query, md)
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), md)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(md))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without rendering")
	return cmd
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a past answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := findRecord(cmd, store, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), rec.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", rec.ID)
			return nil
		},
	}
}

// findRecord accepts a full ID or the 8-character prefix shown by list.
func findRecord(cmd *cobra.Command, store *history.Store, id string) (history.Record, error) {
	rec, err := store.Get(cmd.Context(), id)
	if err == nil || !errors.Is(err, history.ErrNotFound) || len(id) != 8 {
		return rec, err
	}
	recent, err := store.List(cmd.Context(), 1000, 0)
	if err != nil {
		return history.Record{}, err
	}
	for _, r := range recent {
		if shortID(r.ID) == id {
			return store.Get(cmd.Context(), r.ID)
		}
	}
	return history.Record{}, history.ErrNotFound
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
