package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/navrozashvili/autoheadset/internal/audiodev"
	"github.com/navrozashvili/autoheadset/internal/config"
	"github.com/navrozashvili/autoheadset/internal/logging"
	"github.com/navrozashvili/autoheadset/internal/notify"
	"github.com/navrozashvili/autoheadset/internal/server"
	"github.com/navrozashvili/autoheadset/internal/switcher"
	"github.com/navrozashvili/autoheadset/internal/telemetry"
)

var (
	cfgPath  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoheadsetd",
		Short: "Automatically switch the default audio output when a wireless headset powers on or off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath(), "path to the config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	return cmd
}

func run() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.SetLevel(cfg.LogLevel)

	logger := logging.GetDefaultLogger()
	instanceID := uuid.NewString()
	logger.Info().
		Str("instance_id", instanceID).
		Str("speakers", cfg.SpeakersName).
		Str("headset", cfg.HeadsetName).
		Msg("starting autoheadsetd")

	audio := audiodev.NewPactlController(logger)
	provider := telemetry.NewBlueZProvider(logger)

	var notifier switcher.Notifier
	desktop, err := notify.NewDesktopNotifier(cfg.NotificationDuration(), logger)
	if err != nil {
		logger.Warn().Err(err).Msg("desktop notifications unavailable, continuing without")
		notifier = notify.Noop{}
	} else {
		notifier = desktop
		defer desktop.Close()
	}

	resolver := switcher.NewEndpointResolver(audio, cfg.SpeakersName, cfg.HeadsetName, logger)
	gate := switcher.NewProviderGate(provider, logger)
	detector := switcher.NewPresenceDetector(gate, cfg.HeadsetDeviceClass, logger)
	controller := switcher.NewController(audio, resolver, gate, detector, notifier, switcher.ControllerConfig{
		SettlingInterval: cfg.SettlingInterval(),
		SteadyInterval:   cfg.SteadyInterval(),
	}, logger)

	if err := controller.Start(); err != nil {
		return err
	}

	var srv *server.Server
	if cfg.ListenAddr != "" {
		srv = server.New(cfg.ListenAddr, controller, instanceID, logger)
		srv.Start()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("shutting down")

	// Fixed teardown order: stop the loop, then the HTTP surface, then
	// release the provider handle.
	controller.Stop()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("http server shutdown failed")
		}
	}
	if err := provider.Close(); err != nil {
		logger.Warn().Err(err).Msg("telemetry provider close failed")
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
