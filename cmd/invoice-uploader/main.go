// Command invoice-uploader batch-uploads invoice records from a CSV file
// to the customer portal through a headless browser session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/invoice-uploader/internal/adapters/portal"
	"github.com/target/invoice-uploader/internal/bootstrap"
	"github.com/target/invoice-uploader/internal/service"
	"github.com/target/invoice-uploader/internal/session"
)

func main() {
	logger := bootstrap.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, logger)
	if err != nil {
		logger.ErrorContext(ctx, "run failed", "error", err)
	}
	stop()
	os.Exit(int(code)) //nolint:forbidigo // Exit code is the batch health contract.
}

func run(ctx context.Context, logger *slog.Logger) (service.ExitCode, error) {
	var (
		csvPath     = flag.String("csv", "services.csv", "path to CSV file with invoice data")
		headed      = flag.Bool("headed", false, "run the browser in headed mode (visible)")
		concurrency = flag.Int("concurrency", 0, "maximum concurrent uploads (0 = use UPLOADER_CONCURRENCY, default 4)")
	)
	flag.Parse()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return service.ExitStartupError, err
	}
	if *headed {
		cfg.Portal.Headless = false
	}
	if *concurrency > 0 {
		cfg.Uploader.Concurrency = *concurrency
	}
	cfg.Sanitize()

	logger.InfoContext(ctx, "starting invoice uploader",
		"csv", *csvPath,
		"concurrency", cfg.Uploader.Concurrency,
		"headless", cfg.Portal.Headless,
		"portal", cfg.Portal.BaseURL)

	metrics, err := bootstrap.InitMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return service.ExitStartupError, err
	}
	defer func() {
		if cerr := metrics.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close metrics failed", "error", cerr)
		}
	}()

	driver, err := portal.New(ctx, portal.Options{
		Config: cfg.Portal,
		Logger: logger,
	})
	if err != nil {
		return service.ExitStartupError, fmt.Errorf("start portal driver: %w", err)
	}
	defer func() {
		if cerr := driver.Close(ctx); cerr != nil {
			logger.ErrorContext(ctx, "close browser failed", "error", cerr)
		}
	}()

	orch := service.MustNewOrchestrator(service.OrchestratorOptions{
		Config:  cfg,
		CSVPath: *csvPath,
		Driver:  driver,
		Store:   session.NewFileStore(cfg.Portal.AuthStateFile, logger),
		Logger:  logger,
		Metrics: metrics,
	})
	return orch.Run(ctx)
}
