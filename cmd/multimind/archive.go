package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dheena017/multimind/pkg/archive"
)

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse results stored with ask --export",
	}
	cmd.AddCommand(archiveListCmd())
	cmd.AddCommand(archiveShowCmd())
	return cmd
}

func openArchive() (*archive.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := archive.NewStore(filepath.Join(cfg.ConfigDir, "archive"))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return store, nil
}

func archiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived results, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			entries, err := store.Index()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Archive is empty.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SHA256\tSTORED\tCONF\tQUERY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", shortID(e.Ref.SHA256), e.StoredAt.Local().Format("2006-01-02 15:04"),
					e.Confidence, truncate(e.Query, 60))
			}
			return w.Flush()
		},
	}
}

func archiveShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [sha256]",
		Short: "Print an archived result as JSON",
		Long:  "Accepts the full digest or any unique prefix shown by archive list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			entries, err := store.Index()
			if err != nil {
				return err
			}
			ref, err := findArchived(entries, args[0])
			if err != nil {
				return err
			}
			result, err := store.LoadResult(ref)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", ref.SHA256, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

// findArchived resolves a digest prefix against the index.
func findArchived(entries []archive.IndexEntry, prefix string) (archive.Ref, error) {
	var matches []archive.Ref
	seen := make(map[string]bool)
	for _, e := range entries {
		if strings.HasPrefix(e.Ref.SHA256, prefix) && !seen[e.Ref.SHA256] {
			seen[e.Ref.SHA256] = true
			matches = append(matches, e.Ref)
		}
	}
	switch len(matches) {
	case 0:
		return archive.Ref{}, fmt.Errorf("no archived result matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return archive.Ref{}, fmt.Errorf("%q matches %d archived results", prefix, len(matches))
	}
}
