package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/mediscan/cmd/analyze"
	"github.com/tphakala/mediscan/cmd/config"
	"github.com/tphakala/mediscan/cmd/history"
	"github.com/tphakala/mediscan/cmd/knowledge"
	"github.com/tphakala/mediscan/cmd/serve"
	"github.com/tphakala/mediscan/cmd/user"
	"github.com/tphakala/mediscan/cmd/version"
	"github.com/tphakala/mediscan/internal/buildinfo"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/logger"
)

// RootCommand creates the root command. settings is filled from the config
// file, environment and flags before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "mediscan",
		Short:         "MediScan medical image diagnosis service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	if err := setupFlags(rootCmd); err != nil {
		panic(err)
	}

	versionCmd := version.Command()
	rootCmd.AddCommand(
		serve.Command(settings),
		user.Command(settings),
		analyze.Command(settings),
		history.Command(settings),
		knowledge.Command(),
		config.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(settings, configFile)
	}

	return rootCmd
}

// initialize loads settings and sets up the global logger.
func initialize(settings *conf.Settings, configFile string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded
	settings.Version = buildinfo.Version
	settings.BuildDate = buildinfo.BuildDate

	logCfg := settings.Main.Log
	if settings.Debug {
		logCfg.DefaultLevel = "debug"
		logCfg.Console = &logger.ConsoleOutput{Enabled: true, Level: "debug"}
	}
	central, err := logger.NewCentralLogger(&logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines the global flags and binds them into viper, so a flag
// set on the command line takes precedence over the config file.
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("db", "", "Path to the SQLite database")

	for key, flag := range map[string]string{
		"debug":              "debug",
		"output.sqlite.path": "db",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
