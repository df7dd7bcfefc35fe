package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/baiirun/openfocus/internal/model"
	"github.com/baiirun/openfocus/internal/tui"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(model.DateLayout)
}

// formatTaskLine renders one row of a task list.
func formatTaskLine(t model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(tui.DimStyle.Render("(" + t.ID + ")"))
	b.WriteString("\t")
	b.WriteString(tui.StyledIcon(t, now))
	b.WriteString(" ")
	b.WriteString(t.Title)
	if t.Due != nil {
		b.WriteString(" ")
		b.WriteString(tui.DueStyle.Render("due " + formatDate(t.Due)))
	}
	if t.Start != nil {
		b.WriteString(" ")
		b.WriteString(tui.DimStyle.Render("defer " + formatDate(t.Start)))
	}
	if t.EstimatedMinutes != nil {
		b.WriteString(" ")
		b.WriteString(tui.DimStyle.Render(fmt.Sprintf("~%dm", *t.EstimatedMinutes)))
	}
	return b.String()
}

// renderDetail renders every set field of t.
func renderDetail(w io.Writer, t model.Task, now time.Time) {
	var lines []string
	lines = append(lines, tui.StyledIcon(t, now)+" "+tui.TitleStyle.Render(t.Title))
	lines = append(lines, "")

	field := func(label, value string) {
		lines = append(lines, tui.LabelStyle.Render(fmt.Sprintf("%-10s", label+":"))+value)
	}

	field("ID", t.ID)
	if t.Parent != nil {
		field("Project", *t.Parent)
	}
	if t.Context != nil {
		field("Context", *t.Context)
	}
	field("Inbox", fmt.Sprintf("%t", t.Inbox))
	field("Flagged", fmt.Sprintf("%t", t.Flagged))
	field("Added", model.FormatTimestamp(t.Added))
	if t.Modified != nil {
		field("Modified", model.FormatTimestamp(*t.Modified))
	}
	if t.Start != nil {
		field("Defer", formatDate(t.Start))
	}
	if t.Due != nil {
		field("Due", formatDate(t.Due))
	}
	if t.Completed != nil {
		field("Completed", model.FormatTimestamp(*t.Completed))
	}
	if t.EstimatedMinutes != nil {
		field("Estimate", fmt.Sprintf("%d minutes", *t.EstimatedMinutes))
	}
	if t.Order != nil {
		field("Order", string(*t.Order))
	}
	if t.Rank != nil {
		field("Rank", fmt.Sprintf("%d", *t.Rank))
	}
	if t.CompleteByChildren {
		field("Auto", "complete with last action")
	}

	if t.Note != nil && *t.Note != "" {
		lines = append(lines, "")
		lines = append(lines, tui.LabelStyle.Render("Note:"))
		for _, l := range strings.Split(*t.Note, "\n") {
			lines = append(lines, "  "+l)
		}
	}

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

// TaskJSON is the JSON shape of a task for --json output.
type TaskJSON struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Project            *string    `json:"project,omitempty"`
	Context            *string    `json:"context,omitempty"`
	Inbox              bool       `json:"inbox"`
	Flagged            bool       `json:"flagged"`
	Completed          bool       `json:"completed"`
	CompleteByChildren bool       `json:"complete_by_children,omitempty"`
	Added              time.Time  `json:"added"`
	Modified           *time.Time `json:"modified,omitempty"`
	Defer              *time.Time `json:"defer,omitempty"`
	Due                *time.Time `json:"due,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	EstimatedMinutes   *int64     `json:"estimated_minutes,omitempty"`
	Order              string     `json:"order,omitempty"`
	Rank               *int64     `json:"rank,omitempty"`
	Note               *string    `json:"note,omitempty"`
}

func toJSON(t model.Task) TaskJSON {
	j := TaskJSON{
		ID:                 t.ID,
		Title:              t.Title,
		Project:            t.Parent,
		Context:            t.Context,
		Inbox:              t.Inbox,
		Flagged:            t.Flagged,
		Completed:          t.IsComplete(),
		CompleteByChildren: t.CompleteByChildren,
		Added:              t.Added,
		Modified:           t.Modified,
		Defer:              t.Start,
		Due:                t.Due,
		CompletedAt:        t.Completed,
		EstimatedMinutes:   t.EstimatedMinutes,
		Rank:               t.Rank,
		Note:               t.Note,
	}
	if t.Order != nil {
		j.Order = string(*t.Order)
	}
	return j
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeTasks prints a task list as text or JSON.
func writeTasks(w io.Writer, tasks []model.Task, asJSON bool, now time.Time) error {
	if asJSON {
		out := make([]TaskJSON, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, toJSON(t))
		}
		return writeJSON(w, out)
	}
	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t, now))
	}
	return nil
}
