package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/mediscan/cmd/cliutil"
	"github.com/tphakala/mediscan/internal/conf"
)

const redacted = "[REDACTED]"

// Command creates the config command group. Without a subcommand it prints
// the effective settings.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
		Long:  "Print the effective settings as YAML after defaults, config file, environment and flags are merged. Secrets are redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliutil.PrintYAML(cmd.OutOrStdout(), Redact(settings))
		},
	}
	cmd.AddCommand(initCommand())
	return cmd
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init <path>",
		Short: "Write a default config file with a fresh session secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.WriteDefaultConfig(args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", args[0])
			return err
		},
	}
}

// Redact returns a copy of settings with credentials replaced.
func Redact(settings *conf.Settings) *conf.Settings {
	out := *settings
	for _, s := range []*string{
		&out.Security.SessionSecret,
		&out.Classifier.APIKey,
		&out.Events.MQTT.Password,
		&out.Output.MySQL.Password,
		&out.Sentry.DSN,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	return &out
}
