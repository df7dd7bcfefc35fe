// Package filter selects tasks by a handful of boolean properties and
// provides the builtin perspectives (inbox, flagged, forecast and so on).
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/baiirun/openfocus/internal/model"
)

// Filter holds optional conditions. A nil field is ignored; a set field must
// equal the task's property for the task to pass.
type Filter struct {
	Inbox      *bool
	Flagged    *bool
	Completed  *bool
	HasProject *bool
	HasDueDate *bool
}

// All lets every task through.
func All() Filter {
	return Filter{}
}

// Incomplete shows tasks that have not been completed.
func Incomplete() Filter {
	return Filter{Completed: model.Ptr(false)}
}

// Completed shows tasks that have been completed.
func Completed() Filter {
	return Filter{Completed: model.Ptr(true)}
}

// Inbox shows incomplete inbox tasks.
func Inbox() Filter {
	f := Incomplete()
	f.Inbox = model.Ptr(true)
	return f
}

// Flagged shows incomplete flagged tasks.
func Flagged() Filter {
	f := Incomplete()
	f.Flagged = model.Ptr(true)
	return f
}

// Projects shows tasks that belong to a project, complete or not.
func Projects() Filter {
	return Filter{HasProject: model.Ptr(true)}
}

// Forecast shows incomplete tasks with a due date.
func Forecast() Filter {
	f := Incomplete()
	f.HasDueDate = model.Ptr(true)
	return f
}

var builtins = map[string]func() Filter{
	"all":        All,
	"inbox":      Inbox,
	"flagged":    Flagged,
	"forecast":   Forecast,
	"projects":   Projects,
	"completed":  Completed,
	"incomplete": Incomplete,
}

// Names returns the builtin perspective names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the builtin perspective with the given name.
func ByName(name string) (Filter, error) {
	build, ok := builtins[strings.ToLower(name)]
	if !ok {
		return Filter{}, fmt.Errorf("%w: unknown perspective %q (available: %s)",
			model.ErrInvalidArgument, name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

// Match reports whether t passes every set condition.
func (f Filter) Match(t model.Task) bool {
	if f.Inbox != nil && t.Inbox != *f.Inbox {
		return false
	}
	if f.Flagged != nil && t.Flagged != *f.Flagged {
		return false
	}
	if f.Completed != nil && t.IsComplete() != *f.Completed {
		return false
	}
	if f.HasProject != nil && (t.Parent != nil) != *f.HasProject {
		return false
	}
	if f.HasDueDate != nil && (t.Due != nil) != *f.HasDueDate {
		return false
	}
	return true
}

// Apply returns the tasks that match, in their original order.
func (f Filter) Apply(tasks []model.Task) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
