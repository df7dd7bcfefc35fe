// Package model defines the in-memory representation of a task document:
// tasks, perspectives, and the Content collections folded from archives.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SubtaskOrder governs how the children of a task must be completed.
type SubtaskOrder string

const (
	OrderParallel   SubtaskOrder = "parallel"
	OrderSequential SubtaskOrder = "sequential"
)

// IsValid reports whether o is a known order.
func (o SubtaskOrder) IsValid() bool {
	switch o {
	case OrderParallel, OrderSequential:
		return true
	}
	return false
}

// ParseSubtaskOrder parses the wire value of an <order> element.
func ParseSubtaskOrder(s string) (SubtaskOrder, error) {
	o := SubtaskOrder(strings.TrimSpace(s))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid subtask order: %q", ErrParse, s)
	}
	return o, nil
}

// Task is one actionable item. Optional fields are nil when absent.
type Task struct {
	ID                 string
	Parent             *string
	Rank               *int64
	Inbox              bool
	Flagged            bool
	CompleteByChildren bool
	Added              time.Time
	Modified           *time.Time
	Start              *time.Time
	Due                *time.Time
	Completed          *time.Time
	Title              string
	Note               *string
	Context            *string
	EstimatedMinutes   *int64
	Order              *SubtaskOrder
}

// NewTask returns an inbox task added now.
func NewTask(title string) Task {
	now := Now()
	return Task{
		ID:       GenerateID(),
		Inbox:    true,
		Added:    now,
		Modified: &now,
		Title:    title,
	}
}

// IsComplete reports whether the task has a completion date.
func (t Task) IsComplete() bool {
	return t.Completed != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	c.Parent = clonePtr(t.Parent)
	c.Rank = clonePtr(t.Rank)
	c.Modified = clonePtr(t.Modified)
	c.Start = clonePtr(t.Start)
	c.Due = clonePtr(t.Due)
	c.Completed = clonePtr(t.Completed)
	c.Note = clonePtr(t.Note)
	c.Context = clonePtr(t.Context)
	c.EstimatedMinutes = clonePtr(t.EstimatedMinutes)
	c.Order = clonePtr(t.Order)
	return c
}

// String renders the task on one line for terminal display.
func (t Task) String() string {
	var b strings.Builder
	if t.IsComplete() {
		b.WriteString("[x] ")
	} else {
		b.WriteString("[ ] ")
	}
	b.WriteString(t.Title)
	if t.Flagged {
		b.WriteString(" (flagged)")
	}
	if t.Start != nil {
		fmt.Fprintf(&b, " defer:%s", t.Start.Local().Format(DateLayout))
	}
	if t.Due != nil {
		fmt.Fprintf(&b, " due:%s", t.Due.Local().Format(DateLayout))
	}
	if t.EstimatedMinutes != nil {
		fmt.Fprintf(&b, " ~%dm", *t.EstimatedMinutes)
	}
	return b.String()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}
