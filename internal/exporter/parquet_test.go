package exporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetWriter_WriteMerged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged.parquet")
	report := sampleReport()

	rows, err := NewParquetWriter(nil).WriteMerged(path, report.Merged)
	require.NoError(t, err)
	assert.Equal(t, int64(len(report.Merged)), rows)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	magic := []byte("PAR1")
	assert.True(t, bytes.HasPrefix(data, magic))
	assert.True(t, bytes.HasSuffix(data, magic))
}

func TestMergedParquetSchema(t *testing.T) {
	var schema struct {
		Tag    string
		Fields []map[string]string
	}
	require.NoError(t, json.Unmarshal([]byte(mergedParquetSchema()), &schema))

	require.Len(t, schema.Fields, len(MergedHeaders))
	assert.Equal(t, "name=school_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", schema.Fields[0]["Tag"])
	assert.Equal(t, "name=year, type=INT64, repetitiontype=OPTIONAL", schema.Fields[3]["Tag"])
	assert.Equal(t, "name=total_enroll, type=DOUBLE, repetitiontype=OPTIONAL", schema.Fields[4]["Tag"])
}

func TestParquetRowKeepsMissingAsNull(t *testing.T) {
	row := parquetRow(sampleReport().Merged[1])
	assert.Nil(t, row["county_per_poverty"])
	assert.Nil(t, row["pov_cat"])
	assert.Equal(t, "KINGS", row["county_name"])
}
