package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"nearby-offers/internal/cliparse"
	"nearby-offers/internal/config"
	"nearby-offers/internal/logging"
	"nearby-offers/internal/service"
	"nearby-offers/internal/storage"
	"nearby-offers/internal/validation"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := cliparse.ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%v\n\n%s\n", err, cliparse.Usage)
		return 1
	}

	checkin, err := validation.ParseCheckinDate(opts.Checkin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.Input != "" {
		cfg.Filter.Input = opts.Input
	}
	if opts.Output != "" {
		cfg.Filter.Output = opts.Output
	}

	logger := logging.New(cfg.Log, stderr)
	slog.SetDefault(logger)

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("storage setup failed", "error", err)
		return 1
	}

	svc := service.NewService(nil, service.Options{})
	selected, err := svc.Run(ctx, store, cfg.Filter.Input, cfg.Filter.Output, checkin)
	if err != nil {
		logger.Error("filtering offers failed", "input", cfg.Filter.Input, "error", err)
		return 1
	}

	logger.Info("nearby offers written",
		"output", cfg.Filter.Output,
		"selected", len(selected),
		"checkin", opts.Checkin)
	return 0
}

// newStore adds S3 only when a location actually needs it, so local runs
// never touch AWS configuration.
func newStore(ctx context.Context, cfg *config.Config) (*storage.Router, error) {
	if !storage.IsObjectLocation(cfg.Filter.Input) && !storage.IsObjectLocation(cfg.Filter.Output) {
		return storage.NewRouter(nil), nil
	}
	s3Store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return storage.NewRouter(s3Store), nil
}
