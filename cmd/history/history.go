package history

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/mediscan/cmd/cliutil"
	"github.com/tphakala/mediscan/internal/conf"
)

// Command creates the history command.
func Command(settings *conf.Settings) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the diagnosis history of a user",
		Long:  "Log in and print the user's diagnoses, newest first, as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cliutil.OpenApp(ctx, settings)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit

			sess, err := cliutil.Login(ctx, a, email, password)
			if err != nil {
				return err
			}
			defer cliutil.Logout(ctx, a, sess)

			records, err := a.Diagnoses.History(ctx, sess.User.ID)
			if err != nil {
				return err
			}
			return cliutil.PrintJSON(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
