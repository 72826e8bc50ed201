package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/dheena017/multimind/pkg/archive"
	"github.com/dheena017/multimind/pkg/engine"
	"github.com/dheena017/multimind/pkg/ledger"
	"github.com/dheena017/multimind/pkg/router"
)

func askCmd() *cobra.Command {
	var (
		rawFlag    bool
		jsonFlag   bool
		exportFlag bool
		budgetFlag float64
	)

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the panel and print the synthesized answer",
		Long: `Classifies the query, picks panel members for it, asks them in parallel
and prints the synthesized answer as rendered Markdown.

Use --raw for plain Markdown, --json for the full result and --export to
also store the result in the content-addressed archive.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(budgetFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.engine.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case jsonFlag:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(answer); err != nil {
					return err
				}
			case rawFlag:
				fmt.Fprintln(out, answer.Markdown)
			default:
				fmt.Fprint(out, renderMarkdown(answer.Markdown))
				printFooter(out, answer)
			}

			if exportFlag {
				store, err := archive.NewStore(filepath.Join(a.cfg.ConfigDir, "archive"))
				if err != nil {
					return fmt.Errorf("failed to open archive: %w", err)
				}
				ref, reportRef, err := store.StoreResult(answer.Result, answer.Markdown)
				if err != nil {
					return fmt.Errorf("failed to export result: %w", err)
				}
				fmt.Fprintf(os.Stderr, "exported: %s\n", store.ObjectPath(ref))
				if reportRef != nil {
					fmt.Fprintf(os.Stderr, "report:   %s\n", store.ObjectPath(*reportRef))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawFlag, "raw", false, "print Markdown without rendering")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full answer as JSON")
	cmd.Flags().BoolVar(&exportFlag, "export", false, "store the result in the archive")
	cmd.Flags().Float64Var(&budgetFlag, "budget", 0, "max estimated spend in USD for this query (0 = unlimited)")

	return cmd
}

func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func printFooter(w io.Writer, answer *engine.Answer) {
	fmt.Fprintf(w, "%s | %s (%.2f) | topic: %s | %s",
		answer.Metadata.Complexity,
		answer.Result.ConsensusLevel,
		answer.Result.Confidence,
		answer.Decision.Topic,
		answer.Elapsed.Round(time.Millisecond))
	if answer.Cost != nil && answer.Cost.TotalAmount > 0 {
		fmt.Fprintf(w, " | ~$%.4f", answer.Cost.TotalAmount)
	}
	fmt.Fprintln(w)
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [query]",
		Short: "Show how a query would be classified and routed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath)
			if err != nil {
				return fmt.Errorf("failed to load ledger: %w", err)
			}

			query := strings.Join(args, " ")
			d := router.NewRouter(router.WithHistory(led)).Route(query, cfg.Panel, nil)
			selected := make(map[string]bool, len(d.Selected))
			for _, r := range d.Selected {
				selected[r.Member.Key()] = true
			}

			out := cmd.OutOrStdout()
			f := d.Complexity.Features
			fmt.Fprintf(out, "Complexity: %s (%.3f)\n", d.Complexity.Level, d.Complexity.Score)
			fmt.Fprintf(out, "Topic:      %s\n", d.Topic)
			fmt.Fprintf(out, "Features:   words=%d technical=%d reasoning=%d multi_part=%d structure=%d expert=%d\n\n",
				f.Words, f.Technical, f.Reasoning, f.MultiPart, f.Structure, f.Expert)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tMEMBER\tTIER\tSCORE\tHIST\tALIGN\tDIV\tQUAL\tKEY")
			for i, r := range d.Ranked {
				key := "no key"
				if cfg.HasAdapter(r.Member.Adapter) {
					key = "ready"
				}
				mark := ""
				if selected[r.Member.Key()] {
					mark = "*"
				}
				fmt.Fprintf(w, "%d%s\t%s\t%s\t%.3f\t%.3f\t%.2f\t%.1f\t%.2f\t%s\n",
					i+1, mark, r.Member.Key(), r.Member.Tier, r.Score,
					r.Historical, r.Alignment, r.Diversity, r.Quality, key)
			}
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	var showAliasesFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List panel members and provider availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, aliases, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if showAliasesFlag {
				names := make([]string, 0, len(aliases.Aliases))
				for name := range aliases.Aliases {
					names = append(names, name)
				}
				sort.Strings(names)

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ALIAS\tMODEL\tPROVIDER")
				for _, name := range names {
					model := aliases.Aliases[name]
					fmt.Fprintf(w, "%s\t%s\t%s\n", name, model, aliases.GetProviderForModel(model))
				}
				return w.Flush()
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL\tTIER\tQUALITY\tSTATUS")
			for _, m := range cfg.Panel.Members {
				status := "no key"
				if cfg.HasAdapter(m.Adapter) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", m.Adapter, m.Model, m.Tier, m.Quality, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nPanel: %s\n", cfg.PanelPath)
			var levels []string
			for _, lvl := range router.Levels {
				n := cfg.Panel.MaxModelsFor(string(lvl))
				count := "all"
				if n > 0 {
					count = fmt.Sprint(n)
				}
				levels = append(levels, fmt.Sprintf("%s=%s", lvl, count))
			}
			fmt.Fprintf(out, "Models per level: %s\n", formatList(levels))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAliasesFlag, "aliases", false, "show model aliases instead of the panel")
	return cmd
}
