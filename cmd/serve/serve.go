package serve

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/mediscan/internal/app"
	"github.com/tphakala/mediscan/internal/buildinfo"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/telemetry"
)

// Command creates the serve command that runs the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MediScan API server",
		Long:  "Start the HTTP API with session maintenance and event publishing until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("host", "", "Listen address")
	cmd.Flags().String("port", "", "Listen port")
	cmd.Flags().String("classifier", "", "Classifier mode (http, mock)")

	for key, flag := range map[string]string{
		"webserver.host":  "host",
		"webserver.port":  "port",
		"classifier.mode": "classifier",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("main")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	systemID, err := telemetry.LoadOrCreateSystemID(stateDir())
	if err != nil {
		log.Warn("system id unavailable", logger.Error(err))
	}
	info := buildinfo.Current(systemID)
	if err := telemetry.Init(settings, info.SystemID); err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}
	defer telemetry.Flush(2 * time.Second)

	log.Info("starting MediScan",
		logger.String("version", info.Version),
		logger.String("build_date", info.BuildDate),
		logger.String("platform", info.Platform),
		logger.String("address", settings.ListenAddress()))

	a, err := app.New(ctx, settings, app.Options{Events: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown completed with errors", logger.Error(err))
		}
	}()

	if err := a.Serve(ctx); err != nil {
		return err
	}
	log.Info("MediScan stopped")
	return nil
}

// stateDir is where the system id lives: next to the config file in use,
// or the working directory.
func stateDir() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	return "."
}
