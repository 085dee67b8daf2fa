package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"burstbench/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tURL\tREQS\tCONC\tOK\tFAIL\tAVG MS\tREQ/S")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.1f\t%.1f\n",
				it.ShortID(),
				it.Timestamp.Local().Format(time.DateTime),
				it.Config.Endpoint,
				it.Config.TotalRequests,
				it.Config.Concurrency,
				it.Result.SuccessfulRequests,
				it.Result.FailedRequests,
				it.Result.AvgResponseTimeMs,
				it.Result.ThroughputPerSecond,
			)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one saved run (ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.Get(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s  %s  (%d requests, concurrency %d)\n",
			item.ID, item.Config.Endpoint, item.Config.TotalRequests, item.Config.Concurrency)

		switch format {
		case "yaml":
			return report.WriteYAML(out, item.Result)
		case "json":
			return report.WriteJSON(out, item.Result)
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", format)
		}
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 20, "Maximum runs to list (0 for all)")
	historyShowCmd.Flags().StringP("format", "f", "yaml", "Output format: json or yaml")
	historyCmd.AddCommand(historyShowCmd)
}
