package http

import (
	"context"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/exporter"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/operations"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations served over HTTP
type ReportServiceInterface interface {
	Run(ctx context.Context) (*operations.OperationResponse, error)
	Report(ctx context.Context) (*domain.Report, error)
	LastRun(ctx context.Context) (*operations.OperationResponse, error)
	Tables(ctx context.Context) ([]exporter.Table, error)
	Table(ctx context.Context, name string) (exporter.Table, error)
	Regressions(ctx context.Context) ([]domain.Regression, error)
	Regression(ctx context.Context, id string) (domain.Regression, error)
	WorkbookPath(ctx context.Context) (string, error)
}
