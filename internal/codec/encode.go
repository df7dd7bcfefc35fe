package codec

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/baiirun/openfocus/internal/model"
)

// Fixed identification written on the root element.
const (
	Namespace  = "http://www.omnigroup.com/namespace/OmniFocus/v1"
	AppID      = "com.omnigroup.OmniFocus2"
	AppVersion = "openfocus-1"
)

// Encode writes c as an archive body. Every task is written with all of its
// fields in a fixed order; absent optional fields become empty elements.
func Encode(w io.Writer, c model.Content) error {
	for _, t := range c.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: cannot encode task without id", model.ErrInvalidArgument)
		}
		if t.Added.IsZero() {
			return fmt.Errorf("%w: cannot encode task %s without added date", model.ErrInvalidArgument, t.ID)
		}
	}

	xw := &writer{w: bufio.NewWriter(w)}
	xw.raw(xml.Header)
	xw.open(RootElement,
		xmlAttr{"xmlns", Namespace},
		xmlAttr{"app-id", AppID},
		xmlAttr{"app-version", AppVersion},
		xmlAttr{"os-name", runtime.GOOS},
		xmlAttr{"os-version", "0"},
		xmlAttr{"machine-model", runtime.GOARCH},
	)
	for _, t := range c.Tasks {
		encodeTask(xw, t)
	}
	for _, p := range c.Perspectives {
		encodePerspective(xw, p)
	}
	xw.close(RootElement)
	xw.raw("\n")

	if xw.err != nil {
		return xw.err
	}
	return xw.w.Flush()
}

func encodeTask(w *writer, t model.Task) {
	w.open("task", xmlAttr{"id", t.ID})
	w.empty("project")
	w.leaf("inbox", strconv.FormatBool(t.Inbox))
	w.ref("task", t.Parent)
	w.leaf("added", model.FormatTimestamp(t.Added))
	w.timestamp("modified", t.Modified)
	w.leaf("name", t.Title)
	encodeNote(w, t.Note)
	w.integer("rank", t.Rank)
	w.ref("context", t.Context)
	w.timestamp("start", t.Start)
	w.timestamp("due", t.Due)
	w.timestamp("completed", t.Completed)
	w.integer("estimated-minutes", t.EstimatedMinutes)
	if t.Order != nil {
		w.leaf("order", string(*t.Order))
	} else {
		w.empty("order")
	}
	w.leaf("flagged", strconv.FormatBool(t.Flagged))
	w.leaf("completed-by-children", strconv.FormatBool(t.CompleteByChildren))
	w.close("task")
}

// encodeNote writes note text as rich text, one paragraph per line.
func encodeNote(w *writer, note *string) {
	if note == nil {
		w.empty("note")
		return
	}
	w.open("note")
	w.open("text")
	for _, line := range strings.Split(*note, "\n") {
		w.open("p")
		w.open("run")
		w.leaf("lit", line)
		w.close("run")
		w.close("p")
	}
	w.close("text")
	w.close("note")
}

func encodePerspective(w *writer, p model.Perspective) {
	w.open("perspective", xmlAttr{"id", p.ID})
	w.timestamp("added", p.Added)
	if p.Plist != nil {
		w.open("plist", xmlAttr{"version", "1.0"})
		encodePlistValue(w, *p.Plist)
		w.close("plist")
	}
	w.close("perspective")
}

func encodePlistValue(w *writer, v model.PlistValue) {
	switch v.Kind {
	case model.PlistString:
		w.leaf("string", v.String)
	case model.PlistDict:
		keys := make([]string, 0, len(v.Dict))
		for k := range v.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.open("dict")
		for _, k := range keys {
			w.leaf("key", k)
			encodePlistValue(w, v.Dict[k])
		}
		w.close("dict")
	default:
		// Content of unsupported kinds was never decoded; only the
		// element survives.
		if v.String != "" {
			w.empty(v.String)
		}
	}
}

type xmlAttr struct {
	name, value string
}

// writer emits indented XML. The first error sticks and later calls are
// no-ops.
type writer struct {
	w     *bufio.Writer
	depth int
	err   error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString(s)
}

func (w *writer) escaped(s string) {
	if w.err != nil {
		return
	}
	w.err = xml.EscapeText(w.w, []byte(s))
}

func (w *writer) indent() {
	w.raw("\n")
	w.raw(strings.Repeat("  ", w.depth))
}

func (w *writer) tag(name string, attrs []xmlAttr) {
	w.raw("<")
	w.raw(name)
	for _, a := range attrs {
		w.raw(" ")
		w.raw(a.name)
		w.raw(`="`)
		w.escaped(a.value)
		w.raw(`"`)
	}
}

func (w *writer) open(name string, attrs ...xmlAttr) {
	if w.depth > 0 {
		w.indent()
	}
	w.tag(name, attrs)
	w.raw(">")
	w.depth++
}

func (w *writer) close(name string) {
	w.depth--
	w.indent()
	w.raw("</" + name + ">")
}

func (w *writer) empty(name string, attrs ...xmlAttr) {
	w.indent()
	w.tag(name, attrs)
	w.raw("/>")
}

// leaf writes a text element, or an empty element when text is empty.
func (w *writer) leaf(name, text string) {
	if text == "" {
		w.empty(name)
		return
	}
	w.indent()
	w.raw("<" + name + ">")
	w.escaped(text)
	w.raw("</" + name + ">")
}

func (w *writer) ref(name string, id *string) {
	if id == nil {
		w.empty(name)
		return
	}
	w.empty(name, xmlAttr{"idref", *id})
}

func (w *writer) timestamp(name string, t *time.Time) {
	if t == nil {
		w.empty(name)
		return
	}
	w.leaf(name, model.FormatTimestamp(*t))
}

func (w *writer) integer(name string, v *int64) {
	if v == nil {
		w.empty(name)
		return
	}
	w.leaf(name, strconv.FormatInt(*v, 10))
}
