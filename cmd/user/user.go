package user

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/mediscan/cmd/cliutil"
	"github.com/tphakala/mediscan/internal/conf"
)

// Command creates the user command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(addCommand(settings))
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		Long:  "Create an account and print the new user as JSON. The session opened by signup is closed again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cliutil.OpenApp(ctx, settings)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit

			sess, err := a.Accounts.Signup(ctx, name, email, password)
			if err != nil {
				return err
			}
			cliutil.Logout(ctx, a, sess)
			return cliutil.PrintJSON(cmd.OutOrStdout(), sess.User)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	for _, f := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
