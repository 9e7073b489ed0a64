package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), contracts.Version)
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-nope"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRun_MissingInputsFailsValidation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "SchoolsFile")
}

func TestRun_GeneratesReport(t *testing.T) {
	dir := t.TempDir()
	schools := writeFile(t, dir, "schools.csv", `school_cd,school_name,county_name,year,total_enroll,per_free_lunch,per_reduced_lunch,per_lep,mean_ela_score,mean_math_score
s1,One,ALBANY,2016,500,0.10,0.05,0.01,320,318
s2,Two,BRONX,2016,600,0.60,0.10,0.20,280,281
s3,Three,KINGS,2016,300,0.40,0.10,0.10,295,299
`)
	counties := writeFile(t, dir, "counties.csv", `county_name,year,county_per_poverty
ALBANY,2016,0.11
BRONX,2016,0.31
KINGS,2016,0.21
`)
	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-schools", schools,
		"-counties", counties,
		"-out", out,
		"-year", "2016",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Reference year: 2016")
	assert.FileExists(t, filepath.Join(out, "report.xlsx"))
	assert.FileExists(t, filepath.Join(out, "merged.parquet"))
	assert.FileExists(t, filepath.Join(out, "counties.csv"))
}
