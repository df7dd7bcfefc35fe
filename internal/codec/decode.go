package codec

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/baiirun/openfocus/internal/model"
)

// RootElement is the document element of every archive body.
const RootElement = "omnifocus"

// Decode reads one archive body. Tasks and perspectives are decoded; any
// other top-level record kind is skipped. Records repeated within the body
// collapse by id, the later one winning.
func Decode(r io.Reader) (model.Content, error) {
	rd := newReader(r)

	if err := findRoot(rd); err != nil {
		return model.Content{}, err
	}

	var decoded model.Content
	for {
		tok, err := rd.next()
		if err != nil {
			return model.Content{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "task":
				task, err := decodeTask(rd, t)
				if err != nil {
					return model.Content{}, err
				}
				decoded.Tasks = append(decoded.Tasks, task)
			case "perspective":
				p, err := decodePerspective(rd, t)
				if err != nil {
					return model.Content{}, err
				}
				decoded.Perspectives = append(decoded.Perspectives, p)
			default:
				if err := rd.skip(); err != nil {
					return model.Content{}, err
				}
			}
		case xml.EndElement:
			if rd.depth == 0 {
				var c model.Content
				c.Merge(decoded)
				return c, nil
			}
		}
	}
}

func findRoot(rd *reader) error {
	for {
		tok, err := rd.next()
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != RootElement {
				return fmt.Errorf("%w: unexpected root element <%s>", model.ErrParse, se.Name.Local)
			}
			return nil
		}
	}
}

func decodeTask(rd *reader, start xml.StartElement) (model.Task, error) {
	id := attr(start, "id")
	if id == "" {
		return model.Task{}, fmt.Errorf("%w: task element without id", model.ErrParse)
	}

	task := model.Task{ID: id}
	base := rd.depth
	for rd.depth >= base {
		tok, err := rd.next()
		if err != nil {
			return model.Task{}, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if err := decodeTaskField(rd, se, &task); err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", id, err)
		}
	}

	if task.Added.IsZero() {
		return model.Task{}, fmt.Errorf("%w: task %s has no added date", model.ErrParse, id)
	}
	return task, nil
}

// decodeTaskField consumes one child element of a task.
func decodeTaskField(rd *reader, se xml.StartElement, task *model.Task) error {
	name := se.Name.Local
	switch name {
	case "task":
		// A nested task reference points at the enclosing project.
		task.Parent = idref(se)
		return rd.skip()
	case "context":
		task.Context = idref(se)
		return rd.skip()
	case "project":
		return rd.skip()
	case "note":
		note, err := decodeNote(rd)
		if err != nil {
			return err
		}
		task.Note = note
		return nil
	}

	s, ok, err := rd.text()
	if err != nil || !ok {
		return err
	}
	if name == "name" {
		task.Title = s
		return nil
	}
	if blank(s) {
		return nil
	}

	switch name {
	case "inbox":
		task.Inbox, err = parseBool(name, s)
	case "flagged":
		task.Flagged, err = parseBool(name, s)
	case "completed-by-children":
		task.CompleteByChildren, err = parseBool(name, s)
	case "rank":
		task.Rank, err = parseInt(name, s)
	case "estimated-minutes":
		task.EstimatedMinutes, err = parseInt(name, s)
	case "added":
		var t *time.Time
		if t, err = parseTime(name, s); err == nil {
			task.Added = *t
		}
	case "modified":
		task.Modified, err = parseTime(name, s)
	case "start":
		task.Start, err = parseTime(name, s)
	case "due":
		task.Due, err = parseTime(name, s)
	case "completed":
		task.Completed, err = parseTime(name, s)
	case "order":
		var o model.SubtaskOrder
		if o, err = model.ParseSubtaskOrder(s); err == nil {
			task.Order = &o
		}
	}
	return err
}

// decodeNote flattens a rich-text note to plain text: the literal runs of
// each paragraph, paragraphs joined by newlines. A note element with no
// paragraphs is absent.
func decodeNote(rd *reader) (*string, error) {
	target := rd.depth - 1
	var b strings.Builder
	paragraphs := 0
	for rd.depth > target {
		tok, err := rd.next()
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			if paragraphs > 0 {
				b.WriteByte('\n')
			}
			paragraphs++
		case "lit":
			s, _, err := rd.text()
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
	}
	if paragraphs == 0 {
		return nil, nil
	}
	note := b.String()
	return &note, nil
}

func decodePerspective(rd *reader, start xml.StartElement) (model.Perspective, error) {
	id := attr(start, "id")
	if id == "" {
		return model.Perspective{}, fmt.Errorf("%w: perspective element without id", model.ErrParse)
	}

	p := model.Perspective{ID: id}
	base := rd.depth
	for rd.depth >= base {
		tok, err := rd.next()
		if err != nil {
			return model.Perspective{}, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "added":
			s, _, err := rd.text()
			if err != nil {
				return model.Perspective{}, err
			}
			if !blank(s) {
				if p.Added, err = parseTime("added", s); err != nil {
					return model.Perspective{}, fmt.Errorf("perspective %s: %w", id, err)
				}
			}
		case "plist":
			v, err := decodePlist(rd)
			if err != nil {
				return model.Perspective{}, fmt.Errorf("perspective %s: %w", id, err)
			}
			p.Plist = v
		default:
			if err := rd.skip(); err != nil {
				return model.Perspective{}, err
			}
		}
	}
	return p, nil
}

func parseBool(name, s string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("%w: <%s>: invalid boolean %q", model.ErrParse, name, s)
	}
	return v, nil
}

func parseInt(name, s string) (*int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: <%s>: invalid integer %q", model.ErrParse, name, s)
	}
	return &v, nil
}

func parseTime(name, s string) (*time.Time, error) {
	t, err := model.ParseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("<%s>: %w", name, err)
	}
	return &t, nil
}
