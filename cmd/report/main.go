package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/app"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/infrastructure"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "YAML config file (defaults to schools.yaml or configs/schools.yaml)")
	schools := fs.String("schools", "", "schools CSV or XLSX file")
	counties := fs.String("counties", "", "county poverty CSV or XLSX file")
	outDir := fs.String("out", "", "output directory for the report artifacts")
	year := fs.Int("year", 0, "reference year for cross-sectional tables (0 selects the latest county year)")
	serve := fs.Bool("serve", false, "serve the report preview after generating it")
	addr := fs.String("addr", "", "preview server listen address")
	version := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	overrides := []config.Override{
		func(c *config.Config) {
			if *schools != "" {
				c.Inputs.SchoolsFile = *schools
			}
			if *counties != "" {
				c.Inputs.CountiesFile = *counties
			}
			if *outDir != "" {
				c.Output.Dir = *outDir
			}
			if *year != 0 {
				c.Analysis.ReferenceYear = *year
			}
			if *serve {
				c.Preview.Enabled = true
			}
			if *addr != "" {
				c.Preview.Addr = *addr
			}
		},
	}

	cfg, err := config.Load(*configFile, overrides...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		infrastructure.WithError(logger, err).Error("failed to initialize telemetry")
		return 1
	}

	application, err := app.NewApplication(cfg, providers, logger, stdout)
	if err != nil {
		infrastructure.WithError(logger, err).Error("failed to initialize application")
		return 1
	}
	defer func() {
		if err := application.Stop(context.Background()); err != nil {
			infrastructure.WithError(logger, err).Error("shutdown failed")
		}
	}()

	if err := application.Run(ctx); err != nil {
		infrastructure.WithError(logger, err).Error("report failed")
		return 1
	}
	return 0
}
