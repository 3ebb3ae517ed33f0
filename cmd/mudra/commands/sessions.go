package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var flagSessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show recent processing runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Sessions().List(flagSessionsLimit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tK\tSTARTED\tDURATION\tTICKS\tPUBLISHES\tFAILURES")
		for _, r := range records {
			duration := "running"
			if r.StoppedAt != nil {
				duration = r.StoppedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%d\t%d\n",
				r.ID, r.Mode, r.Decimation, r.StartedAt.Format(time.RFC3339), duration,
				r.Counters.Ticks, r.Counters.Publishes, r.Counters.InferenceFailures)
		}
		return w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&flagSessionsLimit, "limit", 20, "Maximum runs to show (0 for all)")
}
