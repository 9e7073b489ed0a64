package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Column names of the input tables
const (
	ColSchoolID        = "school_id"
	ColSchoolName      = "school_name"
	ColCountyName      = "county_name"
	ColYear            = "year"
	ColTotalEnroll     = "total_enroll"
	ColPerFreeLunch    = "per_free_lunch"
	ColPerReducedLunch = "per_reduced_lunch"
	ColPerLEP          = "per_lep"
	ColMeanELAScore    = "mean_ela_score"
	ColMeanMathScore   = "mean_math_score"
	ColCountyPoverty   = "county_per_poverty"
)

// SchoolColumns are the required columns of the schools table
var SchoolColumns = []string{
	ColSchoolID, ColSchoolName, ColCountyName, ColYear, ColTotalEnroll,
	ColPerFreeLunch, ColPerReducedLunch, ColPerLEP, ColMeanELAScore, ColMeanMathScore,
}

// CountyColumns are the required columns of the counties table
var CountyColumns = []string{ColCountyName, ColYear, ColCountyPoverty}

// columnAliases maps alternative header spellings to canonical names
var columnAliases = map[string]string{
	"school_cd": ColSchoolID,
}

// missingTokens load as missing values in numeric columns
var missingTokens = map[string]bool{
	"":      true,
	"na":    true,
	"nan":   true,
	"<nil>": true,
	"null":  true,
}

// LoaderConfig holds input parsing options
type LoaderConfig struct {
	Delimiter rune
}

// Loader reads the two input tables into typed records
type Loader struct {
	logger *slog.Logger
	config LoaderConfig
}

// Inputs are the raw tables of one run
type Inputs struct {
	Schools  []domain.SchoolRecord
	Counties []domain.CountyRecord
}

// NewLoader creates a new loader
func NewLoader(logger *slog.Logger, config LoaderConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loader")),
		config: config,
	}
}

// LoadInputs reads both tables concurrently. Either failure fails the load.
func (l *Loader) LoadInputs(ctx context.Context, schoolsPath, countiesPath string) (*Inputs, error) {
	var inputs Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		schools, err := l.LoadSchools(gctx, schoolsPath)
		if err != nil {
			return err
		}
		inputs.Schools = schools
		return nil
	})
	g.Go(func() error {
		counties, err := l.LoadCounties(gctx, countiesPath)
		if err != nil {
			return err
		}
		inputs.Counties = counties
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &inputs, nil
}

// LoadSchools reads the schools table
func (l *Loader) LoadSchools(ctx context.Context, path string) ([]domain.SchoolRecord, error) {
	table, err := l.readTable(ctx, path, SchoolColumns)
	if err != nil {
		return nil, err
	}

	records := make([]domain.SchoolRecord, table.rows)
	for i := range records {
		r := &records[i]
		r.SchoolID = table.text(ColSchoolID, i)
		r.SchoolName = table.text(ColSchoolName, i)
		r.CountyName = table.text(ColCountyName, i)
		if r.Year, err = table.year(i); err != nil {
			return nil, err
		}
		numeric := []struct {
			col string
			dst *domain.NullFloat
		}{
			{ColTotalEnroll, &r.TotalEnroll},
			{ColPerFreeLunch, &r.PerFreeLunch},
			{ColPerReducedLunch, &r.PerReducedLunch},
			{ColPerLEP, &r.PerLEP},
			{ColMeanELAScore, &r.MeanELAScore},
			{ColMeanMathScore, &r.MeanMathScore},
		}
		for _, n := range numeric {
			if *n.dst, err = table.number(n.col, i); err != nil {
				return nil, err
			}
		}
	}

	l.logger.InfoContext(ctx, "schools loaded",
		slog.String("file", path),
		slog.Int("rows", len(records)))
	return records, nil
}

// LoadCounties reads the county poverty table
func (l *Loader) LoadCounties(ctx context.Context, path string) ([]domain.CountyRecord, error) {
	table, err := l.readTable(ctx, path, CountyColumns)
	if err != nil {
		return nil, err
	}

	records := make([]domain.CountyRecord, table.rows)
	for i := range records {
		r := &records[i]
		r.CountyName = table.text(ColCountyName, i)
		if r.Year, err = table.year(i); err != nil {
			return nil, err
		}
		if r.CountyPerPoverty, err = table.number(ColCountyPoverty, i); err != nil {
			return nil, err
		}
	}

	l.logger.InfoContext(ctx, "counties loaded",
		slog.String("file", path),
		slog.Int("rows", len(records)))
	return records, nil
}

// table is a string-typed view of a loaded frame keyed by canonical column name
type table struct {
	file    string
	rows    int
	columns map[string][]string
}

func (l *Loader) readTable(ctx context.Context, path string, required []string) (*table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	df, err := l.readFrame(path)
	if err != nil {
		return nil, err
	}
	if df.Err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse %s", path), df.Err).
			WithContext("file", path)
	}

	t := &table{file: path, rows: df.Nrow(), columns: make(map[string][]string)}
	for _, name := range df.Names() {
		canonical := normalizeHeader(name)
		if _, dup := t.columns[canonical]; dup {
			continue
		}
		t.columns[canonical] = df.Col(name).Records()
	}

	var missing []string
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s: missing required columns: %s", path, strings.Join(missing, ", ")), nil).
			WithContext("file", path).
			WithContext("columns", df.Names())
	}

	l.logger.DebugContext(ctx, "table read",
		slog.String("file", path),
		slog.Int("rows", t.rows),
		slog.Int("columns", len(t.columns)))
	return t, nil
}

// readFrame loads delimited text, or the first sheet of an .xlsx workbook,
// as an all-string dataframe
func (l *Loader) readFrame(path string) (dataframe.DataFrame, error) {
	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := readWorkbookRows(path)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		return dataframe.LoadRecords(rows, opts...), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	opts = append(opts, dataframe.WithDelimiter(l.config.Delimiter))
	return dataframe.ReadCSV(f, opts...), nil
}

// readWorkbookRows returns the first sheet padded to a rectangle
func readWorkbookRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: workbook has no sheets", path), nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: failed to read sheet %s", path, sheets[0]), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: sheet %s is empty", path, sheets[0]), nil)
	}

	width := len(rows[0])
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row[:width]
	}
	return rows, nil
}

func normalizeHeader(name string) string {
	n := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	if canonical, ok := columnAliases[n]; ok {
		return canonical
	}
	return n
}

func (t *table) text(col string, row int) string {
	v := strings.TrimSpace(t.columns[col][row])
	if v == "NaN" {
		return ""
	}
	return v
}

// number parses a numeric cell. Missing tokens load as missing values;
// anything else that is not a number fails the load.
func (t *table) number(col string, row int) (domain.NullFloat, error) {
	raw := strings.TrimSpace(t.columns[col][row])
	if missingTokens[strings.ToLower(raw)] {
		return domain.Null(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.Null(), t.cellError(col, row, raw, err)
	}
	return domain.Some(v), nil
}

func (t *table) year(row int) (int, error) {
	raw := strings.TrimSpace(t.columns[ColYear][row])
	if y, err := strconv.Atoi(raw); err == nil {
		return y, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, t.cellError(ColYear, row, raw, err)
	}
	return int(v), nil
}

func (t *table) cellError(col string, row int, raw string, cause error) error {
	// Line numbers count the header as line 1.
	return apperrors.NewParsingError(
		fmt.Sprintf("%s line %d column %s: invalid value %q", t.file, row+2, col, raw), cause).
		WithContext("file", t.file).
		WithContext("line", row+2).
		WithContext("column", col)
}
