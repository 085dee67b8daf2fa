package cmd

import (
	"github.com/spf13/cobra"

	"burstbench/internal/dummy"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run internal dummy server",
	Long: `Run a local target with known latency and error profiles:
/fast /medium /slow /spike /error /status/{code} /api/test /api/submit,
plus Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		ctx, stop := signalContext()
		defer stop()

		return dummy.NewServer(dummy.ServerConfig{Port: port}).ListenAndServe(ctx)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
}
