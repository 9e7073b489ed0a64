package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/exporter"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/infrastructure"
	customMiddleware "github.com/Sara-ShiHo/schools-and-poverty/internal/middleware"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/operations"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/services"
	handlers "github.com/Sara-ShiHo/schools-and-poverty/internal/transport/http"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts"
)

// Application wires the pipeline, the report services and the preview
// server of one invocation.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Pipeline      *operations.Manager
	Reports       *services.ReportService
	Health        *services.HealthService
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication builds the application. The console report is written to
// consoleOut, or stdout when nil.
func NewApplication(cfg *config.Config, providers *infrastructure.OTelProviders, logger *slog.Logger, consoleOut io.Writer) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	opts := exporter.OptionsFromConfig(cfg.Output)
	opts.ConsoleOut = consoleOut
	exp := exporter.New(paths, opts, logger)

	pipeline, err := operations.NewPipeline(
		operations.PipelineConfigFromConfig(cfg),
		exp,
		operations.NewOperationTracer(providers),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	reports := services.NewReportService(pipeline, paths, logger)
	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Pipeline:      pipeline,
		Reports:       reports,
		Health:        services.NewHealthService(reports, logger),
	}

	if err := a.setupRouter(); err != nil {
		return nil, err
	}
	a.createServer()
	return a, nil
}

// setupRouter configures the preview server routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// RequestID → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	if a.OTelProviders != nil {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
		}
		r.Use(otelMiddleware.Handler)
	}
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Preview.RateLimitRPS > 0 {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Preview.RateLimitRPS,
			a.Config.Preview.RateLimitBurst,
			a.Logger,
		).Handler)
	}

	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	reportHandler := handlers.NewReportHandler(a.Reports, a.Logger)

	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/readyz", healthHandler.ReadinessCheck)
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/version", healthHandler.Version)
		r.Mount("/", reportHandler.Routes())
	})
	r.With(chimiddleware.NoCache).Get("/report.xlsx", reportHandler.DownloadWorkbook)
	r.Handle("/metrics", a.OTelProviders.MetricsHandler())

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Preview.Addr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.Preview.ReadTimeout,
		WriteTimeout: a.Config.Preview.WriteTimeout,
	}
}

// Generate runs the pipeline once and writes the metrics textfile
func (a *Application) Generate(ctx context.Context) (*operations.OperationResponse, error) {
	a.Logger.InfoContext(ctx, "generating report",
		slog.String("version", contracts.Version),
		slog.String("schools_file", a.Config.Inputs.SchoolsFile),
		slog.String("counties_file", a.Config.Inputs.CountiesFile),
		slog.String("output_dir", a.Paths.OutputDir))

	if err := a.Paths.EnsureDirectories(); err != nil {
		return nil, err
	}
	resp, err := a.Reports.Run(ctx)

	if a.Paths.MetricsTextfile != "" {
		if werr := a.OTelProviders.WriteTextfile(a.Paths.MetricsTextfile); werr != nil {
			a.Logger.WarnContext(ctx, "failed to write metrics textfile", slog.String("error", werr.Error()))
		}
	}
	return resp, err
}

// Serve runs the preview server until ctx is done, then shuts it down
// within the configured timeout
func (a *Application) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *Application) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Serve(ln)
	}()

	a.Logger.InfoContext(ctx, "preview server started",
		slog.String("address", "http://"+ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("preview server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Preview.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	a.Logger.InfoContext(shutdownCtx, "preview server stopped")
	return nil
}

// Run generates the report and, when the preview is enabled, serves it
// until ctx is done. A failed run is still served so that /api/runs/last
// shows what went wrong.
func (a *Application) Run(ctx context.Context) error {
	_, err := a.Generate(ctx)
	if !a.Config.Preview.Enabled || ctx.Err() != nil {
		return err
	}
	if err != nil {
		a.Logger.WarnContext(ctx, "serving preview without a report", slog.String("error", err.Error()))
	}
	if serveErr := a.Serve(ctx); serveErr != nil {
		return serveErr
	}
	return err
}

// Stop flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	if a.OTelProviders == nil {
		return nil
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down telemetry: %w", err)
	}
	return nil
}
