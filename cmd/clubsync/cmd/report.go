package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/verifier"
)

const (
	maxErrorWidth = 100
	timeLayout    = "2006-01-02 15:04:05"
)

// importSummary lists the counters of a run in display order.
func importSummary(res *importer.ImportResult) *orderedmap.OrderedMap[string, string] {
	m := orderedmap.NewOrderedMap[string, string]()
	m.Set("Run ID", res.RunID)
	m.Set("Created", strconv.Itoa(res.Created))
	m.Set("Updated", strconv.Itoa(res.Updated))
	m.Set("Failed", strconv.Itoa(res.Failed))
	m.Set("Processed", fmt.Sprintf("%d / %d", res.ProcessingStats.Processed, res.ProcessingStats.Total))
	return m
}

// writeAligned prints key/value rows with the keys padded to one column.
func writeAligned(w io.Writer, rows *orderedmap.OrderedMap[string, string]) {
	width := 0
	for el := rows.Front(); el != nil; el = el.Next() {
		if n := runewidth.StringWidth(el.Key); n > width {
			width = n
		}
	}
	for el := rows.Front(); el != nil; el = el.Next() {
		fmt.Fprintf(w, "  %s  %s\n", runewidth.FillRight(el.Key+":", width+1), el.Value)
	}
}

// writeImportReport prints the outcome of one import run.
func writeImportReport(w io.Writer, kind model.Kind, res *importer.ImportResult, dryRun bool) {
	title := fmt.Sprintf("=== Import %s Complete ===", kind)
	if dryRun {
		title = fmt.Sprintf("=== Import %s Dry Run ===", kind)
	}
	fmt.Fprintf(w, "\n%s\n", color.Bold.Sprint(title))
	writeAligned(w, importSummary(res))

	switch {
	case res.HasRunError():
		fmt.Fprintln(w, color.Red.Sprint("✗ Import aborted"))
	case res.Failed > 0:
		fmt.Fprintln(w, color.Yellow.Sprintf("! %d record(s) failed", res.Failed))
	default:
		fmt.Fprintln(w, color.Green.Sprint("✓ All records synced"))
	}

	if len(res.Errors) == 0 {
		return
	}
	fmt.Fprintln(w, "\nErrors:")
	errs := orderedmap.NewOrderedMap[string, string]()
	for _, key := range sortedErrorKeys(res.Errors) {
		errs.Set(key, runewidth.Truncate(res.Errors[key], maxErrorWidth, "..."))
	}
	writeAligned(w, errs)
}

// sortedErrorKeys puts run-level keys first, then record keys in order.
func sortedErrorKeys(errs map[string]string) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		switch k {
		case importer.ErrorKeyFetch:
			return 0
		case importer.ErrorKeyGeneral:
			return 1
		}
		return 2
	}
	sort.Slice(keys, func(i, j int) bool {
		if ri, rj := rank(keys[i]), rank(keys[j]); ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// progressLine renders the running counters of an import.
func progressLine(res importer.ImportResult) string {
	return fmt.Sprintf("[%d/%d] created=%d updated=%d failed=%d",
		res.ProcessingStats.Processed, res.ProcessingStats.Total,
		res.Created, res.Updated, res.Failed)
}

// writeRunHistory prints recent import runs as a table.
func writeRunHistory(w io.Writer, runs []importer.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No import runs recorded")
		return
	}

	header := []string{"STARTED", "STATUS", "CREATED", "UPDATED", "FAILED", "TOTAL", "RUN ID"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.StartedAt.Format(timeLayout),
			string(r.Status),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Total),
			r.ID,
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	fmt.Fprintln(w, color.Bold.Sprint(formatRow(header, widths)))
	for _, row := range rows {
		line := formatRow(row, widths)
		switch importer.RunStatus(row[1]) {
		case importer.RunStatusFailed, importer.RunStatusInterrupted:
			line = color.Red.Sprint(line)
		case importer.RunStatusPartial:
			line = color.Yellow.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = runewidth.FillRight(c, widths[i])
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}

// writeVerifyReport prints the outcome of a link verification.
func writeVerifyReport(w io.Writer, res *verifier.VerifyResult) {
	fmt.Fprintf(w, "\n%s\n", color.Bold.Sprintf("=== Verify %s (%s) ===", res.Kind, res.Method))
	if res.Method == verifier.MethodSkip {
		fmt.Fprintln(w, color.Yellow.Sprint("! Verification skipped"))
		return
	}

	summary := orderedmap.NewOrderedMap[string, string]()
	summary.Set("Checked", strconv.Itoa(res.Checked))
	summary.Set("Missing documents", strconv.Itoa(len(res.MissingDocuments)))
	summary.Set("Broken back-links", strconv.Itoa(len(res.BrokenBackLinks)))
	if res.Method == verifier.MethodSHA256 {
		summary.Set("Drifted", strconv.Itoa(len(res.Drifted)))
		summary.Set("Unmappable", strconv.Itoa(len(res.Unmappable)))
	}
	writeAligned(w, summary)

	if res.Match() {
		fmt.Fprintln(w, color.Green.Sprint("✓ All links verified"))
		return
	}
	fmt.Fprintln(w, color.Red.Sprint("✗ Verification found problems"))

	problems := orderedmap.NewOrderedMap[string, string]()
	for _, group := range []struct {
		label string
		ids   []string
	}{
		{"missing", res.MissingDocuments},
		{"broken", res.BrokenBackLinks},
		{"drifted", res.Drifted},
		{"unmappable", res.Unmappable},
	} {
		if len(group.ids) > 0 {
			problems.Set(group.label, runewidth.Truncate(strings.Join(group.ids, ", "), maxErrorWidth, "..."))
		}
	}
	writeAligned(w, problems)
}
