package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"burstbench/internal/request"
	"burstbench/internal/runner"
	"burstbench/internal/tui/styles"
)

var requestCmd = &cobra.Command{
	Use:   "request URL",
	Short: "Send a single API request and print the response",
	Example: `  burstbench request http://localhost:8080/api/test
  burstbench request -X POST -d '{"name":"ann"}' --headers '{"Authorization":"Bearer x"}' URL
  burstbench request --filter 'server_info.name' http://localhost:8080/api/test`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		method, _ := f.GetString("method")
		headers, _ := f.GetString("headers")
		body, _ := f.GetString("data")
		filter, _ := f.GetString("filter")
		showHeaders, _ := f.GetBool("include")

		ctx, stop := signalContext()
		defer stop()

		timeout, _ := f.GetDuration("timeout")
		client := runner.NewHTTPClient(timeout, 1)
		resp, err := request.Send(ctx, client, request.Spec{
			Method:  method,
			URL:     args[0],
			Headers: headers,
			Body:    body,
			Filter:  filter,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		statusStyle := styles.Success
		if !resp.OK() {
			statusStyle = styles.Error
		}
		fmt.Fprintf(out, "%s  %s\n",
			statusStyle.Render(fmt.Sprintf("%d %s", resp.Status, resp.StatusText)),
			styles.Subtle.Render(resp.Duration.Round(time.Millisecond).String()),
		)

		if showHeaders {
			keys := make([]string, 0, len(resp.Headers))
			for k := range resp.Headers {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", lipgloss.NewStyle().Bold(true).Render(k), strings.Join(resp.Headers[k], ", "))
			}
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, resp.Body)
		return nil
	},
}

func init() {
	f := requestCmd.Flags()
	f.StringP("method", "X", "GET", "HTTP method")
	f.String("headers", "", "Request headers as a JSON object")
	f.StringP("data", "d", "", "Request body (JSON)")
	f.StringP("filter", "f", "", "JMESPath expression applied to a JSON response")
	f.BoolP("include", "i", false, "Print response headers")
	f.Duration("timeout", runner.DefaultTimeout, "Request timeout")
}
