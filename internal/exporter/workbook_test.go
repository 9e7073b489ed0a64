package exporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewWorkbookWriter(nil).Write(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		TableCounties, TableCountyYears, TableTiers, TableCutoffs,
		TableHighest, TableLowest, TableRegressions,
		"ela_vs_lunch",
	}, f.GetSheetList(), "skipped regressions get no chart sheet")

	name, err := f.GetCellValue(TableCounties, "A2")
	require.NoError(t, err)
	assert.Equal(t, "ALBANY", name)

	year, err := f.GetCellValue(TableCountyYears, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2015", year)

	skipped, err := f.GetCellValue(TableRegressions, "K3")
	require.NoError(t, err)
	assert.Equal(t, "not enough points", skipped)

	fitY, err := f.GetCellValue("ela_vs_lunch", "E3")
	require.NoError(t, err)
	assert.Equal(t, "4", fitY, "fitted line ends at the largest x")
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "tiers", sheetName("tiers"))
	assert.Len(t, sheetName("z_ela_vs_poverty_low_enrollment_extra"), maxSheetName)
}
