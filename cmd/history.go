package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/infrastructure/persistence/sqlite"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [url]",
	Short: "List past audits, newest first",
	Long: `List audits recorded in the local history database. With a URL, only
audits of that target are shown; the URL is normalized the same way as for
the audit command, so "example.com" matches "https://example.com/".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	if historyLimit < 0 {
		return &InvalidFlagError{Flag: "limit", Value: strconv.Itoa(historyLimit), Reason: "must not be negative"}
	}

	repo, err := sqlite.Open(appCtx.DataDir)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := commandContext(cmd)
	var entries []audit.HistoryEntry
	if len(args) == 1 {
		entries, err = repo.FindByTarget(ctx, args[0], historyLimit)
	} else {
		entries, err = repo.FindAll(ctx, historyLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audits recorded yet.")
		return nil
	}
	printHistory(out, entries)
	return nil
}

func printHistory(out io.Writer, entries []audit.HistoryEntry) {
	// Create table writer
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Timestamp\tTarget\tOverall\tPerformance\tSecurity\tFallbacks\tReport")
	fmt.Fprintln(w, "---------\t------\t-------\t-----------\t--------\t---------\t------")

	for _, e := range entries {
		fallbacks := strconv.Itoa(e.FailedProbes)
		if e.FailedProbes > 0 {
			fallbacks = colorWarn(fallbacks)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Target,
			formatScoreWithColor(e.OverallScore),
			e.Performance,
			e.Security,
			fallbacks,
			e.ReportPath,
		)
	}

	_ = w.Flush()
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show (0 for all)")
}
