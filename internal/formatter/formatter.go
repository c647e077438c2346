// package formatter renders sync runs, run history and records as text, JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// Formats lists the supported formats for flag help.
var Formats = []Format{Text, JSON, CSV, Markdown}

// ParseFormat accepts a format name, defaulting to text when empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case Text, JSON, CSV, Markdown:
		return f, nil
	case "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: format %q (want text, json, csv or markdown)", shared.ErrInvalidFlag, s)
	}
}

// Extension is the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case Markdown:
		return "md"
	default:
		return "txt"
	}
}

type kindJSON struct {
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Total    int    `json:"total"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
	Failed   int    `json:"failed"`
	Error    string `json:"error,omitempty"`
}

type runJSON struct {
	ID          string     `json:"id"`
	Sequence    int        `json:"sequence,omitempty"`
	Status      string     `json:"status"`
	DryRun      bool       `json:"dry_run"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	Error       string     `json:"error,omitempty"`
	Kinds       []kindJSON `json:"kinds"`
}

func toRunJSON(run *models.SyncRun) runJSON {
	out := runJSON{
		ID:          run.ID(),
		Sequence:    run.Sequence,
		Status:      string(run.Status),
		DryRun:      run.DryRun,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		DurationMS:  run.Duration().Milliseconds(),
		Error:       run.ErrorMessage,
		Kinds:       make([]kindJSON, 0, len(run.Kinds)),
	}
	for _, k := range run.Kinds {
		out.Kinds = append(out.Kinds, kindJSON{
			Kind:     k.Kind,
			Status:   string(k.Status),
			Total:    k.Total,
			Created:  k.Created,
			Existing: k.Existing,
			Failed:   k.Failed,
			Error:    k.ErrorMessage,
		})
	}
	return out
}

// FormatRun renders a single sync run.
func FormatRun(run *models.SyncRun, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return shared.MarshalJSON(toRunJSON(run), true)
	case CSV:
		return RunToCSV(run)
	case Markdown:
		return RunToMarkdown(run), nil
	default:
		return RunToText(run), nil
	}
}

// RunToText renders a run as an aligned summary followed by one line per failure.
func RunToText(run *models.SyncRun) []byte {
	var buf bytes.Buffer

	label := "Sync"
	if run.DryRun {
		label = "Dry run"
	}
	if run.Sequence > 0 {
		label += " #" + strconv.Itoa(run.Sequence)
	}
	fmt.Fprintf(&buf, "%s: %s (%s)\n\n", label, run.Status, run.Duration().Round(time.Millisecond))

	fmt.Fprintf(&buf, "%-14s %-8s %6s %8s %9s %7s\n", "KIND", "STATUS", "TOTAL", "CREATED", "EXISTING", "FAILED")
	for _, k := range run.Kinds {
		fmt.Fprintf(&buf, "%-14s %-8s %6d %8d %9d %7d\n", k.Kind, k.Status, k.Total, k.Created, k.Existing, k.Failed)
	}

	var failures []string
	for _, k := range run.Kinds {
		if k.ErrorMessage != "" {
			failures = append(failures, strings.Split(k.ErrorMessage, "\n")...)
		}
	}
	if run.ErrorMessage != "" {
		failures = append(failures, run.ErrorMessage)
	}
	if len(failures) > 0 {
		buf.WriteString("\nErrors:\n")
		for _, f := range failures {
			fmt.Fprintf(&buf, "  - %s\n", f)
		}
	}

	return buf.Bytes()
}

// RunToCSV renders one row per kind with columns: Kind, Status, Total, Created, Existing, Failed, Error
func RunToCSV(run *models.SyncRun) ([]byte, error) {
	rows := [][]string{{"Kind", "Status", "Total", "Created", "Existing", "Failed", "Error"}}
	for _, k := range run.Kinds {
		rows = append(rows, []string{
			k.Kind,
			string(k.Status),
			strconv.Itoa(k.Total),
			strconv.Itoa(k.Created),
			strconv.Itoa(k.Existing),
			strconv.Itoa(k.Failed),
			k.ErrorMessage,
		})
	}
	return writeCSV(rows)
}

// RunToMarkdown renders a run as a heading and a table of kinds.
func RunToMarkdown(run *models.SyncRun) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Sync %s\n\n", run.ID())
	fmt.Fprintf(&buf, "**Status**: %s\n", run.Status)
	fmt.Fprintf(&buf, "**Started**: %s\n", run.StartedAt.Format(time.RFC3339))
	if run.DryRun {
		buf.WriteString("**Dry run**: yes\n")
	}
	buf.WriteString("\n| Kind | Status | Total | Created | Existing | Failed |\n")
	buf.WriteString("| --- | --- | ---: | ---: | ---: | ---: |\n")
	for _, k := range run.Kinds {
		fmt.Fprintf(&buf, "| %s | %s | %d | %d | %d | %d |\n", k.Kind, k.Status, k.Total, k.Created, k.Existing, k.Failed)
	}

	return buf.Bytes()
}

// FormatHistory renders a list of runs, newest first as given.
func FormatHistory(runs []*models.SyncRun, format Format) ([]byte, error) {
	switch format {
	case JSON:
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, toRunJSON(run))
		}
		return shared.MarshalJSON(out, true)
	case CSV:
		return HistoryToCSV(runs)
	case Markdown:
		return HistoryToMarkdown(runs), nil
	default:
		return HistoryToText(runs), nil
	}
}

func totals(run *models.SyncRun) (created, existing, failed int) {
	for _, k := range run.Kinds {
		created += k.Created
		existing += k.Existing
		failed += k.Failed
	}
	return created, existing, failed
}

// HistoryToText renders one line per run.
func HistoryToText(runs []*models.SyncRun) []byte {
	if len(runs) == 0 {
		return []byte("No sync runs recorded.\n")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%-5s %-20s %-8s %-4s %8s %9s %7s  %s\n", "#", "STARTED", "STATUS", "DRY", "CREATED", "EXISTING", "FAILED", "KINDS")
	for _, run := range runs {
		created, existing, failed := totals(run)
		kinds := make([]string, 0, len(run.Kinds))
		for _, k := range run.Kinds {
			kinds = append(kinds, k.Kind)
		}
		dry := ""
		if run.DryRun {
			dry = "yes"
		}
		fmt.Fprintf(&buf, "%-5d %-20s %-8s %-4s %8d %9d %7d  %s\n",
			run.Sequence, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status, dry,
			created, existing, failed, strings.Join(kinds, ","))
	}
	return buf.Bytes()
}

// HistoryToCSV renders one row per run with columns: Sequence, ID, Started, Status, DryRun, Created, Existing, Failed, Error
func HistoryToCSV(runs []*models.SyncRun) ([]byte, error) {
	rows := [][]string{{"Sequence", "ID", "Started", "Status", "DryRun", "Created", "Existing", "Failed", "Error"}}
	for _, run := range runs {
		created, existing, failed := totals(run)
		rows = append(rows, []string{
			strconv.Itoa(run.Sequence),
			run.ID(),
			run.StartedAt.Format(time.RFC3339),
			string(run.Status),
			strconv.FormatBool(run.DryRun),
			strconv.Itoa(created),
			strconv.Itoa(existing),
			strconv.Itoa(failed),
			run.ErrorMessage,
		})
	}
	return writeCSV(rows)
}

// HistoryToMarkdown renders runs as a table.
func HistoryToMarkdown(runs []*models.SyncRun) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Sync history\n\n")
	buf.WriteString("| # | Started | Status | Created | Existing | Failed |\n")
	buf.WriteString("| ---: | --- | --- | ---: | ---: | ---: |\n")
	for _, run := range runs {
		created, existing, failed := totals(run)
		fmt.Fprintf(&buf, "| %d | %s | %s | %d | %d | %d |\n",
			run.Sequence, run.StartedAt.Format(time.RFC3339), run.Status, created, existing, failed)
	}
	return buf.Bytes()
}

type recordJSON struct {
	Kind       string         `json:"kind"`
	ID         string         `json:"id,omitempty"`
	SourceID   string         `json:"source_id,omitempty"`
	State      string         `json:"state"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// FormatRecords renders Firefly records, loaded or draft.
func FormatRecords(records []models.Record, format Format) ([]byte, error) {
	switch format {
	case JSON:
		out := make([]recordJSON, 0, len(records))
		for _, r := range records {
			attrs, _ := r.Payload()
			out = append(out, recordJSON{
				Kind:       r.Kind().String(),
				ID:         r.ID(),
				SourceID:   r.SourceID(),
				State:      r.State().String(),
				Label:      r.Label(),
				Attributes: attrs,
			})
		}
		return shared.MarshalJSON(out, true)
	case CSV:
		rows := [][]string{{"Kind", "ID", "MonarchID", "State", "Label"}}
		for _, r := range records {
			rows = append(rows, []string{r.Kind().String(), r.ID(), r.SourceID(), r.State().String(), r.Label()})
		}
		return writeCSV(rows)
	case Markdown:
		var buf bytes.Buffer
		buf.WriteString("| Kind | ID | Monarch ID | Label |\n| --- | --- | --- | --- |\n")
		for _, r := range records {
			fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n", r.Kind(), r.ID(), r.SourceID(), r.Label())
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		for _, r := range records {
			id := r.ID()
			if id == "" {
				id = "-"
			}
			source := r.SourceID()
			if source == "" {
				source = "-"
			}
			fmt.Fprintf(&buf, "%-6s %-12s %-8s %s\n", id, source, r.State(), r.Label())
		}
		return buf.Bytes(), nil
	}
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteOutput writes rendered output to path, creating parent directories as needed.
func WriteOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
