package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobharvest/internal/model"
)

func sampleRecords() []model.Record {
	return []model.Record{
		model.NewRecord(model.OutputSchema, map[string]string{
			model.FieldSourceSite:  "elempleo.com",
			model.FieldJobID:       "1001",
			model.FieldTitle:       "Ingeniero de Procesos",
			model.FieldCompany:     "Manufacturas, S.A.",
			model.FieldDescription: "• Liderar mejoras\n• Reportar \"KPIs\"",
			model.FieldLocation:    "Cartago",
			model.FieldSalary:      "₡ 1.200.000",
		}),
		model.NewRecord(model.OutputSchema, map[string]string{
			model.FieldSourceSite: "computrabajo.com",
			model.FieldTitle:      "Cajero",
		}),
	}
}

func TestResolvePath(t *testing.T) {
	at := time.Date(2026, 10, 16, 8, 5, 9, 0, time.UTC)
	assert.Equal(t, "out/costarica_jobs_20261016_080509.csv", ResolvePath("out/costarica_jobs_{timestamp}.csv", at))
	assert.Equal(t, "fixed.csv", ResolvePath("fixed.csv", at))
}

func TestWriteStartsWithBOMAndHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, model.OutputSchema, sampleRecords()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, bom), "missing BOM")
	firstLine := strings.SplitN(string(raw[len(bom):]), "\n", 2)[0]
	assert.Equal(t, strings.Join(model.OutputFields, ","), firstLine)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.csv")
	records := sampleRecords()
	require.NoError(t, WriteFile(context.Background(), path, model.OutputSchema, records))

	schema, got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, model.OutputFields, schema.Fields())
	require.Len(t, got, len(records))
	for i := range records {
		assert.Equal(t, records[i].Values(), got[i].Values(), "row %d", i)
	}

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestWriteWidensNarrowRecords(t *testing.T) {
	narrow := model.MustSchema("listing", 1, model.FieldTitle, model.FieldURL)
	rec := model.NewRecord(narrow, map[string]string{model.FieldTitle: "Chofer"})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, model.OutputSchema, []model.Record{rec}))
	_, got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Values(), len(model.OutputFields))
	assert.Equal(t, "Chofer", got[0].Get(model.FieldTitle))
}

func TestReadWithoutBOM(t *testing.T) {
	_, got, err := Read(strings.NewReader("title,url\nChofer,https://x.test/1\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://x.test/1", got[0].Get("url"))
}

func TestReadRejectsRaggedRows(t *testing.T) {
	_, _, err := Read(strings.NewReader("title,url\nChofer\n"))
	assert.Error(t, err)
}

func TestReadEmpty(t *testing.T) {
	_, _, err := Read(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty file")
}

func TestWriteFileHonorsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	assert.Error(t, WriteFile(ctx, path, model.OutputSchema, sampleRecords()))
}

func TestMeasureCoverage(t *testing.T) {
	c := Measure(model.OutputSchema, sampleRecords())
	assert.Equal(t, 2, c.Total)
	assert.Equal(t, []SiteCount{{"elempleo.com", 1}, {"computrabajo.com", 1}}, c.Sites)

	byField := map[string]int{}
	for _, f := range c.Fields {
		byField[f.Field] = f.Filled
	}
	assert.Equal(t, 2, byField[model.FieldTitle])
	assert.Equal(t, 1, byField[model.FieldSalary])
	assert.Contains(t, c.Empty(), model.FieldPhotos)
	assert.NotContains(t, c.Empty(), model.FieldTitle)

	var buf bytes.Buffer
	c.Print(&buf)
	assert.Contains(t, buf.String(), "Records: 2")
	assert.Contains(t, buf.String(), "title")
}
