package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/verifier"
)

func init() {
	color.Disable()
}

func TestImportSummaryOrder(t *testing.T) {
	res := &importer.ImportResult{
		RunID:           "run-1",
		Created:         3,
		Updated:         1,
		Failed:          1,
		ProcessingStats: importer.ProcessingStats{Total: 5, Processed: 5},
	}

	summary := importSummary(res)
	assert.Equal(t, []string{"Run ID", "Created", "Updated", "Failed", "Processed"}, summary.Keys())
	v, _ := summary.Get("Processed")
	assert.Equal(t, "5 / 5", v)
}

func TestWriteImportReport(t *testing.T) {
	res := &importer.ImportResult{
		RunID:   "run-1",
		Created: 2,
		Failed:  1,
		Errors: map[string]string{
			"s3": "Error with s3: Sponsor name is required",
		},
		ProcessingStats: importer.ProcessingStats{Total: 3, Processed: 3},
	}

	var buf bytes.Buffer
	writeImportReport(&buf, model.KindSponsor, res, false)
	out := buf.String()

	assert.Contains(t, out, "=== Import sponsor Complete ===")
	assert.Contains(t, out, "Created:    2")
	assert.Contains(t, out, "Processed:  3 / 3")
	assert.Contains(t, out, "! 1 record(s) failed")
	assert.Contains(t, out, "s3:  Error with s3: Sponsor name is required")
}

func TestWriteImportReport_DryRunAndAborted(t *testing.T) {
	var buf bytes.Buffer
	writeImportReport(&buf, model.KindPerson, &importer.ImportResult{Errors: map[string]string{}}, true)
	assert.Contains(t, buf.String(), "Dry Run")
	assert.Contains(t, buf.String(), "✓ All records synced")

	buf.Reset()
	writeImportReport(&buf, model.KindPerson, &importer.ImportResult{
		Errors: map[string]string{importer.ErrorKeyFetch: "connection refused"},
	}, false)
	assert.Contains(t, buf.String(), "✗ Import aborted")
	assert.Contains(t, buf.String(), "fetch:  connection refused")
}

func TestWriteImportReport_TruncatesLongErrors(t *testing.T) {
	var buf bytes.Buffer
	writeImportReport(&buf, model.KindPerson, &importer.ImportResult{
		Failed: 1,
		Errors: map[string]string{"p1": strings.Repeat("x", 300)},
	}, false)

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "p1:") {
			assert.True(t, strings.HasSuffix(line, "..."))
			assert.Less(t, len(line), 120)
			return
		}
	}
	t.Fatal("error line not found")
}

func TestSortedErrorKeys(t *testing.T) {
	keys := sortedErrorKeys(map[string]string{
		"p2":                     "",
		importer.ErrorKeyGeneral: "",
		"p1":                     "",
		importer.ErrorKeyFetch:   "",
	})
	assert.Equal(t, []string{"fetch", "general", "p1", "p2"}, keys)
}

func TestProgressLine(t *testing.T) {
	line := progressLine(importer.ImportResult{
		Created:         1,
		Updated:         2,
		ProcessingStats: importer.ProcessingStats{Total: 10, Processed: 3},
	})
	assert.Equal(t, "[3/10] created=1 updated=2 failed=0", line)
}

func TestWriteRunHistory(t *testing.T) {
	started := time.Date(2024, 8, 10, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	writeRunHistory(&buf, []importer.RunRecord{
		{ID: "r2", StartedAt: started.Add(time.Hour), Status: importer.RunStatusPartial, Created: 10, Failed: 2, Total: 12},
		{ID: "r1", StartedAt: started, Status: importer.RunStatusCompleted, Updated: 4, Total: 4},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "STARTED"))
	assert.Contains(t, lines[1], "2024-08-10 10:30:00")
	assert.Contains(t, lines[1], "completed_with_errors")
	assert.True(t, strings.HasSuffix(lines[2], "r1"))

	statusCol := strings.Index(lines[0], "STATUS")
	assert.Equal(t, statusCol, strings.Index(lines[2], "completed"), "columns are aligned")
}

func TestWriteRunHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeRunHistory(&buf, nil)
	assert.Equal(t, "No import runs recorded\n", buf.String())
}

func TestWriteVerifyReport(t *testing.T) {
	var buf bytes.Buffer
	writeVerifyReport(&buf, &verifier.VerifyResult{
		Kind:             model.KindPerson,
		Method:           verifier.MethodSHA256,
		Checked:          4,
		MissingDocuments: []string{"p2"},
		Drifted:          []string{"p3", "p4"},
	})
	out := buf.String()

	assert.Contains(t, out, "=== Verify person (sha256) ===")
	assert.Contains(t, out, "Checked:            4")
	assert.Contains(t, out, "✗ Verification found problems")
	assert.Contains(t, out, "missing:  p2")
	assert.Contains(t, out, "drifted:  p3, p4")
	assert.NotContains(t, out, "broken:")
}

func TestWriteVerifyReport_PassAndSkip(t *testing.T) {
	var buf bytes.Buffer
	writeVerifyReport(&buf, &verifier.VerifyResult{Kind: model.KindSponsor, Method: verifier.MethodLinks, Checked: 2})
	assert.Contains(t, buf.String(), "✓ All links verified")
	assert.NotContains(t, buf.String(), "Drifted")

	buf.Reset()
	writeVerifyReport(&buf, &verifier.VerifyResult{Kind: model.KindSponsor, Method: verifier.MethodSkip})
	assert.Contains(t, buf.String(), "Verification skipped")
}
