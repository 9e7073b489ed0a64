package exporter

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	return &config.Paths{
		OutputDir:    dir,
		WorkbookFile: filepath.Join(dir, config.WorkbookFile),
		ParquetFile:  filepath.Join(dir, config.ParquetFile),
	}
}

func sampleReport() *domain.Report {
	albany := domain.CountySummary{
		CountyName:          "ALBANY",
		Schools:             2,
		TotalEnroll:         domain.Some(2000),
		NumFreeLunch:        domain.Some(600),
		NumReducedLunch:     domain.Some(100),
		PerFreeLunch:        domain.Some(0.3),
		PerReducedLunch:     domain.Some(0.05),
		PerFreeReducedLunch: domain.Some(0.35),
		CountyPerPoverty:    domain.Some(0.12),
	}
	bronx := albany
	bronx.CountyName = "BRONX"
	bronx.CountyPerPoverty = domain.Some(0.3)

	albanyYear := albany
	albanyYear.Year = 2015
	albanyYear.MeanELAScore = domain.Some(301.25)

	merged := []domain.MergedRecord{
		{
			EnrichedSchool: domain.EnrichedSchool{
				SchoolRecord: domain.SchoolRecord{
					SchoolID:     "010100010000",
					SchoolName:   "Albany High",
					CountyName:   "ALBANY",
					Year:         2015,
					TotalEnroll:  domain.Some(1200),
					PerFreeLunch: domain.Some(0.45),
					MeanELAScore: domain.Some(301.5),
				},
				ZMeanELAScore: domain.Some(0.5),
			},
			CountyMatched:    true,
			CountyPerPoverty: domain.Some(0.12),
			PovCat:           domain.PovertyMedium,
		},
		{
			EnrichedSchool: domain.EnrichedSchool{
				SchoolRecord: domain.SchoolRecord{
					SchoolID:   "030100010000",
					SchoolName: "Kings Elementary",
					CountyName: "KINGS",
					Year:       2015,
				},
			},
		},
	}

	return &domain.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tables: &domain.ReportTables{
			ReferenceYear: 2015,
			Counties:      []domain.CountySummary{albany, bronx},
			CountyYears:   []domain.CountySummary{albanyYear},
			Tiers: []domain.TierSummary{
				{PovCat: domain.PovertyLow, Records: 1, ZMeanELAScore: domain.Some(0.4), ZMeanMathScore: domain.Null()},
			},
			Cutoffs: []domain.PovertyCutoffs{{Year: 2015, CutoffLow: 0.1, CutoffHigh: 0.2, Counties: 4}},
			Extremes: domain.ExtremeCounties{
				Year:    2015,
				Highest: []domain.CountySummary{bronx},
				Lowest:  []domain.CountySummary{albany},
			},
		},
		Regressions: []domain.Regression{
			{
				ID:     "ela_vs_lunch",
				Title:  "ELA score vs free/reduced lunch",
				XLabel: "per_free_reduced_lunch",
				YLabel: "mean_ela_score",
				Fit: domain.RegressionFit{
					N: 3, Slope: -2, Intercept: 10,
					RSquared:         domain.Some(1),
					DegreesOfFreedom: 1,
				},
				Points: []domain.Point{{X: 1, Y: 8}, {X: 2, Y: 6}, {X: 3, Y: 4}},
			},
			{
				ID:      "poverty_vs_county_lunch",
				Title:   "County poverty vs county lunch",
				Skipped: "not enough points",
			},
		},
		Merged: merged,
	}
}

func TestExporter_Export(t *testing.T) {
	paths := testPaths(t)
	var console bytes.Buffer
	exp := New(paths, Options{Console: true, Workbook: true, CSV: true, Parquet: true, ConsoleOut: &console}, nil)

	result, err := exp.Export(context.Background(), sampleReport())
	require.NoError(t, err)

	// seven summary tables, merged.csv, the workbook and the parquet file
	assert.Len(t, result.Files, 10)
	assert.Equal(t, int64(2), result.ParquetRows)
	for _, f := range result.Files {
		info, err := os.Stat(f)
		require.NoError(t, err, f)
		assert.Positive(t, info.Size(), f)
	}
	assert.Contains(t, console.String(), "County summary, all years")
}

func TestExporter_FailedExportKeepsPreviousFiles(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.WriteFile(paths.WorkbookFile, []byte("previous"), 0644))

	report := sampleReport()
	// NaN cannot be encoded as a Parquet row, so the last output fails
	report.Merged[0].TotalEnroll = domain.NullFloat{Float64: math.NaN(), Valid: true}

	exp := New(paths, Options{Workbook: true, CSV: true, Parquet: true}, nil)
	result, err := exp.Export(context.Background(), report)
	require.Error(t, err)
	assert.Empty(t, result.Files)

	previous, err := os.ReadFile(paths.WorkbookFile)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(previous))
	assert.NoFileExists(t, paths.GetCSVPath(TableMerged))
	assert.NoFileExists(t, paths.ParquetFile)

	entries, err := os.ReadDir(paths.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directory is removed")
	assert.Equal(t, config.WorkbookFile, entries[0].Name())
}

func TestExporter_NoOutputs(t *testing.T) {
	paths := testPaths(t)
	paths.OutputDir = filepath.Join(paths.OutputDir, "never")

	result, err := New(paths, Options{}, nil).Export(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.NoDirExists(t, paths.OutputDir)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.OutputConfig{Console: true, Parquet: true})
	assert.True(t, opts.Console)
	assert.True(t, opts.Parquet)
	assert.False(t, opts.CSV)
	assert.False(t, opts.Workbook)
}
