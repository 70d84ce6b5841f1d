package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainimport/domainimport/internal/record"
	"github.com/domainimport/domainimport/internal/record/recordtest"
)

func writeWorkbook(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domains.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func runInspectWith(t *testing.T, path string, limit int, asJSON bool) (string, error) {
	t.Helper()
	origLimit, origJSON := inspectLimit, inspectJSON
	t.Cleanup(func() { inspectLimit, inspectJSON = origLimit, origJSON })
	inspectLimit, inspectJSON = limit, asJSON

	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	err := runInspect(c, []string{path})
	return buf.String(), err
}

func TestInspect_Table(t *testing.T) {
	path := writeWorkbook(t, recordtest.Workbook(t,
		recordtest.Header(),
		recordtest.Row("a.com", map[string]any{record.HeaderAge: 4, record.HeaderRegistrarName: "GoDaddy"}),
		recordtest.Row("b.com", nil),
		recordtest.Row("c.com", nil),
	))

	out, err := runInspectWith(t, path, 2, false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "3 records", lines[0])
	assert.Contains(t, lines[1], "DOMAIN")
	assert.Contains(t, lines[2], "a.com")
	assert.Contains(t, lines[2], "GoDaddy")
	assert.Contains(t, lines[3], "b.com")
	assert.Equal(t, "... 1 more", lines[4])
}

func TestInspect_JSON(t *testing.T) {
	path := writeWorkbook(t, recordtest.Domains(t, "a.com", "b.com"))

	out, err := runInspectWith(t, path, 0, true)
	require.NoError(t, err)

	var body struct {
		Total   int             `json:"total"`
		Records []record.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Records, 2)
	assert.Equal(t, "b.com", body.Records[1].DomainName)
}

func TestInspect_Errors(t *testing.T) {
	_, err := runInspectWith(t, filepath.Join(t.TempDir(), "missing.xlsx"), 0, false)
	assert.ErrorContains(t, err, "read")

	path := writeWorkbook(t, []byte("not a workbook"))
	_, err = runInspectWith(t, path, 0, false)
	assert.ErrorContains(t, err, "parse")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOMAINIMPORT_DEFAULT_TITLE=from-file\n"), 0o644))
	t.Setenv("DOMAINIMPORT_DEFAULT_TITLE", "from-env")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("DOMAINIMPORT_DEFAULT_TITLE"))
}
