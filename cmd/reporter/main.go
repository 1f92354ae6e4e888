package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"device-fleet-api/internal/logger"
	"device-fleet-api/internal/reporter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reporter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		serverURL  string
		serial     string
		interval   time.Duration
		window     time.Duration
		once       bool
		logLevel   string
	)

	flagSet := pflag.NewFlagSet("reporter", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flagSet.StringVar(&serverURL, "server", "", "base URL of the fleet service (overrides server_url)")
	flagSet.StringVarP(&serial, "serial", "s", "", "serial number this device reports as (overrides serial_number)")
	flagSet.DurationVar(&interval, "interval", 0, "time between reports (overrides interval)")
	flagSet.DurationVar(&window, "cpu-window", time.Second, "CPU measurement window")
	flagSet.BoolVar(&once, "once", false, "send a single report and exit")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := reporter.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("server") {
		cfg.ServerURL = serverURL
	}
	if flagSet.Changed("serial") {
		cfg.SerialNumber = serial
	}
	if flagSet.Changed("interval") {
		cfg.Interval = interval
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: os.Getenv("APP_ENV"),
		ServiceName: "device-fleet-reporter",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := reporter.NewClient(cfg.ServerURL, cfg.Client, log)
	agent := reporter.NewAgent(cfg.SerialNumber, cfg.Interval, reporter.NewSystemSampler(window), client, log)

	if !client.IsHealthy(ctx) {
		log.Warn("Fleet service health check failed, reporting anyway", zap.String("server_url", cfg.ServerURL))
	}

	if once {
		return agent.ReportOnce(ctx)
	}

	log.Info("Reporter started",
		zap.String("server_url", cfg.ServerURL),
		zap.String("serial_number", cfg.SerialNumber),
		zap.Duration("interval", cfg.Interval),
	)
	return agent.Run(ctx)
}
