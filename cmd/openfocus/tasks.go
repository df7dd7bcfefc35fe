package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/openfocus/internal/archive"
	"github.com/baiirun/openfocus/internal/codec"
	"github.com/baiirun/openfocus/internal/filter"
	"github.com/baiirun/openfocus/internal/model"
)

// taskUpdate holds the changes requested on the command line. Nil fields
// are left alone; an empty string clears the field.
type taskUpdate struct {
	title      *string
	project    *string
	note       *string
	due        *string
	deferDate  *string
	estimate   *int64
	complete   bool
	incomplete bool
	toggleFlag bool
	flag       bool
}

func (u taskUpdate) empty() bool {
	return u.title == nil && u.project == nil && u.note == nil &&
		u.due == nil && u.deferDate == nil && u.estimate == nil &&
		!u.complete && !u.incomplete && !u.toggleFlag && !u.flag
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseUserDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// applyUpdate changes t in place. It does not stamp Modified.
func applyUpdate(t *model.Task, u taskUpdate, now time.Time) error {
	if u.complete && u.incomplete {
		return fmt.Errorf("%w: --complete and --incomplete are mutually exclusive", model.ErrInvalidArgument)
	}

	if u.title != nil {
		t.Title = *u.title
	}
	if u.project != nil {
		if *u.project == "" {
			t.Parent = nil
		} else {
			t.Parent = model.Ptr(*u.project)
			t.Inbox = false
		}
	}
	if u.note != nil {
		if *u.note == "" {
			t.Note = nil
		} else {
			t.Note = model.Ptr(*u.note)
		}
	}
	if u.due != nil {
		due, err := parseOptionalDate(*u.due)
		if err != nil {
			return fmt.Errorf("invalid --due: %w", err)
		}
		t.Due = due
	}
	if u.deferDate != nil {
		start, err := parseOptionalDate(*u.deferDate)
		if err != nil {
			return fmt.Errorf("invalid --defer: %w", err)
		}
		t.Start = start
	}
	if u.estimate != nil {
		if *u.estimate < 0 {
			return fmt.Errorf("%w: --estimate must not be negative", model.ErrInvalidArgument)
		}
		t.EstimatedMinutes = model.Ptr(*u.estimate)
	}
	if u.complete {
		t.Completed = model.Ptr(now)
	}
	if u.incomplete {
		t.Completed = nil
	}
	if u.flag {
		t.Flagged = true
	}
	if u.toggleFlag {
		t.Flagged = !t.Flagged
	}
	return nil
}

// readUpdate collects the update flags that were set on cmd.
func readUpdate(cmd *cobra.Command) (taskUpdate, error) {
	var u taskUpdate
	fs := cmd.Flags()

	str := func(name string) (*string, error) {
		if !fs.Changed(name) {
			return nil, nil
		}
		v, err := fs.GetString(name)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	var err error
	if u.title, err = str("title"); err != nil {
		return u, err
	}
	if u.project, err = str("project"); err != nil {
		return u, err
	}
	if u.note, err = str("note"); err != nil {
		return u, err
	}
	if u.due, err = str("due"); err != nil {
		return u, err
	}
	if u.deferDate, err = str("defer"); err != nil {
		return u, err
	}
	if fs.Changed("estimate") {
		v, err := fs.GetInt64("estimate")
		if err != nil {
			return u, err
		}
		u.estimate = &v
	}
	return u, nil
}

var listCmd = &cobra.Command{
	Use:   "list [perspective]",
	Short: "List tasks in a perspective (default inbox)",
	Long: `List tasks matching a builtin perspective.

Perspectives: ` + strings.Join(filter.Names(), ", "),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "inbox"
		if len(args) == 1 {
			name = args[0]
		}
		f, err := filter.ByName(name)
		if err != nil {
			return err
		}

		database, release, err := openDB()
		if err != nil {
			return err
		}
		defer release()

		tasks := f.Apply(database.Tasks())
		if len(tasks) == 0 && !flagJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "No tasks in %s\n", name)
			return nil
		}
		return writeTasks(cmd.OutOrStdout(), tasks, flagJSON, time.Now())
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, release, err := openDB()
		if err != nil {
			return err
		}
		defer release()

		t, err := database.Task(args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), toJSON(t))
		}
		renderDetail(cmd.OutOrStdout(), t, time.Now())
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a new inbox task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := readUpdate(cmd)
		if err != nil {
			return err
		}
		u.flag, _ = cmd.Flags().GetBool("flag")

		t := model.NewTask(strings.Join(args, " "))
		if err := applyUpdate(&t, u, *t.Modified); err != nil {
			return err
		}

		database, release, err := openDB()
		if err != nil {
			return err
		}
		defer release()

		if _, err := database.Write(model.NewTaskContent(t)); err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), toJSON(t))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", t.ID, t.Title)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of an existing task",
	Long: `Change fields of an existing task and write the result as a new archive.

An empty value clears --project, --note, --due and --defer. --flag toggles
the flag. Dates take the form 2006-01-02 (local midnight) or a full
timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := readUpdate(cmd)
		if err != nil {
			return err
		}
		u.complete, _ = cmd.Flags().GetBool("complete")
		u.incomplete, _ = cmd.Flags().GetBool("incomplete")
		u.toggleFlag, _ = cmd.Flags().GetBool("flag")
		if u.empty() {
			return fmt.Errorf("%w: no changes given (see 'openfocus update --help')", model.ErrInvalidArgument)
		}

		database, release, err := openDB()
		if err != nil {
			return err
		}
		defer release()

		t, err := database.Task(args[0])
		if err != nil {
			return err
		}
		now := model.Now()
		if err := applyUpdate(&t, u, now); err != nil {
			return err
		}
		t.Modified = &now

		if _, err := database.Write(model.NewTaskContent(t)); err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), toJSON(t))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "(%s)\t%s\n", t.ID, t)
		return nil
	},
}

// DumpJSON is the JSON shape of a decoded archive.
type DumpJSON struct {
	Tasks        []TaskJSON `json:"tasks"`
	Perspectives []string   `json:"perspectives"`
}

var dumpCmd = &cobra.Command{
	Use:   "dump <archive.zip>",
	Short: "Decode a single archive and print its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := archive.ReadEntry(args[0])
		if err != nil {
			return err
		}
		c, err := codec.Decode(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			d := DumpJSON{Tasks: make([]TaskJSON, 0, len(c.Tasks)), Perspectives: make([]string, 0, len(c.Perspectives))}
			for _, t := range c.Tasks {
				d.Tasks = append(d.Tasks, toJSON(t))
			}
			for _, p := range c.Perspectives {
				d.Perspectives = append(d.Perspectives, p.ID)
			}
			return writeJSON(out, d)
		}

		for _, t := range c.Tasks {
			fmt.Fprintf(out, "(%s)\t%s\n", t.ID, t)
		}
		for _, p := range c.Perspectives {
			name := ""
			if p.Plist != nil {
				if v, ok := p.Plist.Lookup("name"); ok && v.Kind == model.PlistString {
					name = v.String
				}
			}
			fmt.Fprintf(out, "(%s)\tperspective %s\n", p.ID, name)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().StringP("project", "p", "", "id of the project the task belongs to")
		c.Flags().StringP("note", "n", "", "note text")
		c.Flags().StringP("due", "d", "", "due date")
		c.Flags().String("defer", "", "defer (start) date")
		c.Flags().Int64P("estimate", "e", 0, "estimated duration in minutes")
	}
	addCmd.Flags().BoolP("flag", "f", false, "flag the task")

	updateCmd.Flags().StringP("title", "t", "", "new title")
	updateCmd.Flags().BoolP("complete", "c", false, "mark the task completed now")
	updateCmd.Flags().Bool("incomplete", false, "clear the completion date")
	updateCmd.Flags().BoolP("flag", "f", false, "toggle the flag")
}
