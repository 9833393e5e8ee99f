package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/synclog"
)

var (
	logLimit   int
	logProject string
	logJSON    bool
)

// logCmd lists recent sync runs from the history database.
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent sync runs",
	Long: `Show recent sync runs recorded in the local history database.

Each entry records what a sync did: the change, its bookmark and base,
whether the pull request was created or updated, and where it lives.

Examples:
  jib log                      # Newest runs across all projects
  jib log -n 5                 # Only the five newest
  jib log --project .          # Runs for the current project
  jib log --json               # Machine-readable output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return jiberrors.NewConfigErrorWithCause("", "failed to load configuration", err)
		}

		if !cfg.History.Enabled {
			return jiberrors.NewConfigError("history.enabled", "sync history is disabled")
		}

		store, err := synclog.Open(cfg.History.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		return runLog(cmd.Context(), store, logLimit, logProject, logJSON, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().IntVarP(&logLimit, "limit", "n", synclog.DefaultLimit, "maximum number of runs to show")
	logCmd.Flags().StringVar(&logProject, "project", "", "only show runs for this project path")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "emit entries as JSON")
}

func runLog(ctx context.Context, store *synclog.Store, limit int, project string, asJSON bool, out io.Writer) error {
	// Project filters match the normalized form entries are recorded
	// with, so "--project ." finds the current checkout.
	if project != "" {
		if abs, err := filepath.Abs(project); err == nil {
			project = abs
		}
		project = config.NormalizeProjectPath(project)
	}

	entries, err := store.Recent(ctx, synclog.QueryOptions{Project: project, Limit: limit})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No sync runs recorded.")
		return nil
	}

	for i, e := range entries {
		timestamp := e.CreatedAt.Format("2006-01-02 15:04")
		fmt.Fprintf(out, "%3d. %s  %-7s  #%-4d %s -> %s\n",
			i+1, timestamp, e.Action, e.PRNumber, e.Bookmark, e.Base)
		if e.Title != "" {
			fmt.Fprintf(out, "     %s\n", e.Title)
		}
		if e.Project != "" {
			fmt.Fprintf(out, "     %s\n", e.Project)
		}
	}

	return nil
}
