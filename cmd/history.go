package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/maxvaer/dateprobe/internal/store"
	"github.com/spf13/cobra"
)

// historyCmd lists scans recorded with --db.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past scans recorded with --db",
	Long: `List scan sessions stored in a history database, newest first.

With --session, print the URLs found by that session instead, one per line.`,
	Example: `  dateprobe history --db history.db
  dateprobe history --db history.db -n 5
  dateprobe history --db history.db --session 3f1c...`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("db", "", "SQLite history database (required)")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show (0 = all)")
	historyCmd.Flags().String("session", "", "Print the found URLs of one session")
	_ = historyCmd.MarkFlagRequired("db")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("limit")
	sessionID, _ := cmd.Flags().GetString("session")

	st, err := store.Open(dbPath, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if sessionID != "" {
		urls, err := st.FoundURLs(cmd.Context(), sessionID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no session %q in %s", sessionID, dbPath)
		}
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(out, u)
		}
		return nil
	}

	sessions, err := st.ListSessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No scans recorded.")
		return nil
	}
	printSessions(out, sessions)
	return nil
}

func printSessions(w io.Writer, sessions []store.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tRANGE\tCHECKED\tFOUND\tERRORS\tSTATUS")
	for _, s := range sessions {
		status := "finished"
		if s.FinishedAt.IsZero() {
			status = "incomplete"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d/%d\t%d\t%d\t%s\n",
			s.ID, s.StartedAt.Format(time.DateTime), s.StartDate, s.EndDate,
			s.Completed, s.Total, s.Found, s.Errors, status)
	}
	_ = tw.Flush()
}
