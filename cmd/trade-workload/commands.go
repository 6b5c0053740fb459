package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/failover"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine"
)

const (
	serviceName     = "trade-workload"
	dotEnvFile      = ".env"
	shutdownTimeout = 10 * time.Second
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// newRootCmd builds the command tree. Every command reads its configuration from its own viper instance.
func newRootCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Synthetic order submit/drain workload against a multi-region Postgres compatible cluster",
		Long: `Synthetic order submit/drain workload against a multi-region Postgres compatible cluster.

Every flag can also be set through the environment, e.g. --max-retries as TRADE_WORKLOAD_MAX_RETRIES.
A .env file in the working directory is loaded before the environment is read.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(dotEnvFile)
		},
	}

	addConnectionFlags(cmd.PersistentFlags())
	cobra.CheckErr(v.BindPFlags(cmd.PersistentFlags()))

	cmd.AddCommand(
		newRunCmd(v),
		newInitSchemaCmd(v),
		newVersionCmd(),
	)

	return cmd
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workers until interrupted or the configured duration elapsed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			return runWorkload(cmd.Context(), cfg)
		},
	}

	addRunFlags(cmd.Flags())
	cobra.CheckErr(v.BindPFlags(cmd.Flags()))

	return cmd
}

func newInitSchemaCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-schema",
		Short: "Create the trading tables and seed instruments and accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			return initSchema(cmd.Context(), cfg)
		},
	}

	addInitSchemaFlags(cmd.Flags())
	cobra.CheckErr(v.BindPFlags(cmd.Flags()))

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(serviceName, version)
		},
	}
}

// loadDotEnv loads path into the environment. A missing file is fine; set variables are not overridden.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func runWorkload(parent context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if shutdownErr := tel.shutdown(); shutdownErr != nil {
			tel.logger.Warn("telemetry shutdown failed", "error", shutdownErr.Error())
		}
	}()

	connect, err := buildConnector(cfg, tel, postgresengine.WithProcessingDelay(cfg.ProcessingDelay),
		postgresengine.WithPriceTick(cfg.PriceTick),
		postgresengine.WithDrainBatchLimit(cfg.DrainBatchLimit),
	)
	if err != nil {
		return err
	}

	workload := NewWorkload(cfg, connect, tel.logger)
	workload.Start(ctx)

	var deadline <-chan time.Time
	if cfg.Duration > 0 {
		timer := time.NewTimer(cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case sig := <-sigChan:
		tel.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-deadline:
		tel.logger.Info("run duration elapsed, shutting down", "duration", cfg.Duration.String())
	case <-workload.Done():
		tel.logger.Warn("all workers stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	stopErr := workload.Stop(shutdownCtx)
	if stopErr != nil {
		tel.logger.Warn("workers did not stop in time", "error", stopErr.Error())
	}

	cancel()

	summary := workload.Summary()
	tel.logger.Info("workload finished", summary.logArgs()...)

	if cfg.SummaryJSON != "" {
		if err := writeSummaryJSON(cfg.SummaryJSON, summary); err != nil {
			return err
		}
	}

	if summary.FatalWorkers == summary.Workers {
		return fmt.Errorf("%w: no worker could keep a connection", tradeorder.ErrConnectionExhausted)
	}

	return nil
}

func initSchema(ctx context.Context, cfg Config) error {
	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() { _ = tel.shutdown() }()

	connect, err := buildConnector(cfg, tel)
	if err != nil {
		return err
	}

	sess, err := connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	market := tradeorder.Market{}
	if cfg.SeedMarket {
		market = tradeorder.DefaultMarket(cfg.Accounts)
	}

	return sess.schema.InitSchema(ctx, market)
}

// buildConnector assembles the endpoint pool, the shared randomizer and all options for the configured driver.
func buildConnector(cfg Config, tel *telemetry, engineOptions ...postgresengine.Option) (connectFunc, error) {
	pool, err := tradeorder.NewEndpointPool(cfg.Endpoints, tradeorder.WithConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, err
	}

	randomizer := tradeorder.NewTimeSeededRandomizer()
	if cfg.Seed != 0 {
		randomizer = tradeorder.NewRandomizer(cfg.Seed)
	}

	managerOptions := append([]failover.Option{
		failover.WithMaxRetries(cfg.MaxRetries),
		failover.WithRetryDelay(cfg.RetryDelay),
		failover.WithRandomizer(randomizer),
	}, tel.managerOptions()...)

	engineOptions = append(engineOptions, postgresengine.WithRandomizer(randomizer))
	engineOptions = append(engineOptions, tel.engineOptions()...)

	return newConnector(cfg, pool, managerOptions, engineOptions)
}
