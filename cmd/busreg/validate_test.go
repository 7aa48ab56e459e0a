package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/busreg/internal/core"
)

func sampleRow() map[string]string {
	return map[string]string{
		core.ColLicenceNumber:             "PB0000001",
		core.ColRegistrationNumber:        "PB0000001/00000012",
		core.ColRouteNumber:               "12A",
		core.ColRouteDescription:          "Temple Meads to Airport",
		core.ColVariationNumber:           "0",
		core.ColStartPoint:                "Temple Meads",
		core.ColFinishPoint:               "Bristol Airport",
		core.ColVia:                       "Bedminster",
		core.ColSubsidised:                "No",
		core.ColSubsidyDetail:             "None",
		core.ColIsShortNotice:             "no",
		core.ColReceivedDate:              "01/02/2024",
		core.ColGrantedDate:               "15/02/2024",
		core.ColEffectiveDate:             "01/03/2024",
		core.ColOperatorName:              "First West of England",
		core.ColBusServiceTypeID:          "Standard",
		core.ColBusServiceTypeDescription: "Normal Stopping",
		core.ColApplicationType:           "new",
	}
}

func writeCSV(t *testing.T, rows ...map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(core.Columns))
	for _, r := range rows {
		rec := make([]string, len(core.Columns))
		for i, c := range core.Columns {
			rec[i] = r[c]
		}
		require.NoError(t, w.Write(rec))
	}
	w.Flush()

	path := filepath.Join(t.TempDir(), "routes.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_CleanFile(t *testing.T) {
	out, err := runCLI(t, "validate", writeCSV(t, sampleRow()))
	require.NoError(t, err)
	assert.Contains(t, out, "accepted:   1")
	assert.Contains(t, out, "duplicates: 0")
}

func TestValidate_RejectedRows(t *testing.T) {
	bad := sampleRow()
	bad[core.ColReceivedDate] = "2024-02-01"

	out, err := runCLI(t, "validate", writeCSV(t, sampleRow(), sampleRow(), bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 3 rows rejected")
	assert.Contains(t, out, "row 3:")
	assert.Contains(t, out, "duplicate of rows [2]")
}

func TestValidate_JSON(t *testing.T) {
	out, err := runCLI(t, "validate", "--json", writeCSV(t, sampleRow()))
	require.NoError(t, err)

	var report core.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, []int{1}, report.AcceptedRows)
}

func TestValidate_FileErrors(t *testing.T) {
	_, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = runCLI(t, "validate", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILE005")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	_, err := runCLI(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}
