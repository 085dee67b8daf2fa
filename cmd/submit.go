package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"burstbench/internal/request"
	"burstbench/internal/runner"
	"burstbench/internal/tui/styles"
)

var submitCmd = &cobra.Command{
	Use:     "submit ACTION_URL",
	Short:   "Validate and submit a test form",
	Example: `  burstbench submit --name Ann --email ann@example.com http://localhost:8080/api/submit`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		name, _ := f.GetString("name")
		email, _ := f.GetString("email")
		extra, _ := f.GetStringToString("field")

		ctx, stop := signalContext()
		defer stop()

		timeout, _ := f.GetDuration("timeout")
		client := runner.NewHTTPClient(timeout, 1)
		body, err := request.SubmitForm(ctx, client, args[0], request.Form{
			Name:  name,
			Email: email,
			Extra: extra,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styles.Success.Render("✔ Form submitted"))
		fmt.Fprintln(out, body)
		return nil
	},
}

func init() {
	f := submitCmd.Flags()
	f.String("name", "", "Name field")
	f.String("email", "", "Email field")
	f.StringToString("field", nil, "Extra form fields (key=value)")
	f.Duration("timeout", runner.DefaultTimeout, "Request timeout")
}
