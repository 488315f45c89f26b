package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/notetugas/tugas/internal/note"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTOML  = "toml"
)

// noteRecord is the structured export of a note.
type noteRecord struct {
	ID          string `json:"id" yaml:"id" toml:"id"`
	Subject     string `json:"subject" yaml:"subject" toml:"subject"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Deadline    string `json:"deadline" yaml:"deadline" toml:"deadline"`
	Date        string `json:"deadline_date" yaml:"deadline_date" toml:"deadline_date"`
	Timestamp   int64  `json:"deadline_timestamp" yaml:"deadline_timestamp" toml:"deadline_timestamp"`
	Status      string `json:"status" yaml:"status" toml:"status"`
}

func toRecords(notes []note.Note) []noteRecord {
	records := make([]noteRecord, 0, len(notes))
	for _, n := range notes {
		records = append(records, noteRecord{
			ID:          n.ID,
			Subject:     n.Subject,
			Description: n.Description,
			Deadline:    n.Display,
			Date:        n.Date,
			Timestamp:   n.Timestamp,
			Status:      string(n.Status),
		})
	}
	return records
}

// writeNotes renders notes to w in the given format. now is used for the
// "due in" column of the table.
func writeNotes(w io.Writer, notes []note.Note, format string, now time.Time, width int) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRecords(notes))

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRecords(notes)); err != nil {
			return err
		}
		return enc.Close()

	case formatTOML:
		return toml.NewEncoder(w).Encode(struct {
			Notes []noteRecord `toml:"notes"`
		}{toRecords(notes)})

	case formatTable, "":
		if len(notes) == 0 {
			_, err := fmt.Fprintln(w, renderMuted("No notes."))
			return err
		}
		_, err := fmt.Fprintln(w, notesTable(notes, now, width))
		return err

	default:
		return fmt.Errorf("unknown format %q (want table, json, yaml or toml)", format)
	}
}

func notesTable(notes []note.Note, now time.Time, width int) string {
	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []string{
			shortID(n.ID),
			n.Subject,
			n.Description,
			n.Display,
			dueIn(time.Unix(n.Timestamp, 0), now),
			string(n.Status),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Width(width).
		Headers("ID", "MATA KULIAH", "TUGAS", "DEADLINE", "DUE", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return base.Inherit(headerStyle)
			}
			if col == 5 && row >= 0 && row < len(notes) {
				return base.Inherit(statusStyle(notes[row].Status))
			}
			return base
		})
	return t.Render()
}

func statusStyle(s note.Status) lipgloss.Style {
	switch s {
	case note.StatusNotified:
		return warnStyle
	case note.StatusDone, note.StatusCompleted:
		return passStyle
	default:
		return lipgloss.NewStyle()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// dueIn describes how far a deadline is from now, e.g. "in 3h" or "2d ago".
func dueIn(deadline, now time.Time) string {
	d := deadline.Sub(now)
	past := d < 0
	if past {
		d = -d
	}

	var s string
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		s = fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		s = fmt.Sprintf("%dh", int(d.Hours()))
	default:
		s = fmt.Sprintf("%dd", int(d.Hours()/24))
	}

	if past {
		return s + " ago"
	}
	return "in " + s
}

// draftSummary renders a parsed draft for the parse and add commands.
func draftSummary(d *note.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Mata Kuliah: %s\n", d.Subject)
	fmt.Fprintf(&b, "  Tugas:       %s\n", d.Description)
	fmt.Fprintf(&b, "  Deadline:    %s (%s)\n", d.Display, d.Date)
	return b.String()
}
