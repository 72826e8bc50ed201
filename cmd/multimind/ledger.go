package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dheena017/multimind/pkg/ledger"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage what the router has learned",
	}
	cmd.AddCommand(ledgerStatsCmd())
	cmd.AddCommand(ledgerKnowledgeCmd())
	cmd.AddCommand(ledgerHistoryCmd())
	cmd.AddCommand(ledgerExportCmd())
	cmd.AddCommand(ledgerImportCmd())
	cmd.AddCommand(ledgerResetCmd())
	return cmd
}

func openLedger() (*ledger.Ledger, string, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load ledger: %w", err)
	}
	return l, cfg.LedgerPath, nil
}

func ledgerStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show provider success rates and topic winners",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, path, err := openLedger()
			if err != nil {
				return err
			}
			stats := l.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ledger: %s\nQueries: %d, history entries: %d\n\n", path, stats.Queries, stats.HistorySize)

			providers := make([]string, 0, len(stats.Providers))
			for p := range stats.Providers {
				providers = append(providers, p)
			}
			sort.Strings(providers)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tSUCCESS\tTOTAL\tRATE\tAVG WORDS")
			for _, p := range providers {
				ps := stats.Providers[p]
				fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.0f\n", p, ps.Success, ps.Total, stats.SuccessRates[p], ps.AvgLength)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			topics := l.Topics()
			if len(topics) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tBEST\tWINS")
			for _, t := range topics {
				best := stats.BestByTopic[t]
				fmt.Fprintf(w, "%s\t%s\t%d\n", t, best, stats.Topics[t][best])
			}
			return w.Flush()
		},
	}
}

func ledgerKnowledgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "knowledge [topic]",
		Short: "List answers remembered for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := openLedger()
			if err != nil {
				return err
			}
			entries := l.Knowledge(args[0])
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing remembered for %q.\n", args[0])
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSOURCE\tCONF\tQUERY")
			for _, k := range entries {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", k.Timestamp.Local().Format("2006-01-02 15:04"), k.Source, k.Confidence, k.Query)
			}
			return w.Flush()
		},
	}
}

func ledgerHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent queries the router learned from",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := openLedger()
			if err != nil {
				return err
			}
			entries := l.History(limit)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No queries recorded.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tTOPIC\tLEVEL\tWINNER\tCONF\tCALLS\tQUERY")
			for _, e := range entries {
				winner, ok := e.Winner, 0
				if winner == "" {
					winner = "-"
				}
				for _, c := range e.Calls {
					if c.Success {
						ok++
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d/%d\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"), e.Topic, e.Complexity,
					winner, e.Confidence, ok, len(e.Calls), truncate(e.Query, 50))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max entries to show (0 = all)")
	return cmd
}

func ledgerExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the ledger as JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := openLedger()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := l.Save(args[0]); err != nil {
					return fmt.Errorf("failed to export ledger: %w", err)
				}
				fmt.Fprintf(os.Stderr, "exported to %s\n", args[0])
				return nil
			}
			data, err := l.Export()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}

func ledgerImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the ledger with an exported one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, path, err := openLedger()
			if err != nil {
				return err
			}
			if err := l.Load(args[0]); err != nil {
				return fmt.Errorf("failed to import ledger: %w", err)
			}
			if err := l.Save(path); err != nil {
				return fmt.Errorf("failed to save ledger: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d queries into %s\n", l.Stats().Queries, path)
			return nil
		},
	}
}

func ledgerResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget everything the router has learned",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			l, path, err := openLedger()
			if err != nil {
				return err
			}
			l.Reset()
			if err := l.Save(path); err != nil {
				return fmt.Errorf("failed to save ledger: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
