// Package tui provides an interactive terminal UI for openfocus using Bubble Tea.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/openfocus/internal/db"
	"github.com/baiirun/openfocus/internal/filter"
	"github.com/baiirun/openfocus/internal/model"
)

// ViewMode represents the current view state.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// InputMode represents what kind of text input is active.
type InputMode int

const (
	InputNone   InputMode = iota
	InputSearch           // Entering search text
	InputCreate           // Entering new task title
	InputTitle            // Entering a replacement title
	InputDue              // Entering a due date
	InputDefer            // Entering a defer date
)

// Layout constants
const (
	minSplitWidth = 80 // Minimum terminal width for split view
)

// FocusPane represents which pane is focused in split view.
type FocusPane int

const (
	FocusList FocusPane = iota
	FocusDetail
)

// store serializes access to the document. Commands run on their own
// goroutines and DB is not safe for concurrent use.
type store struct {
	mu sync.Mutex
	db *db.DB
}

func (s *store) tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Tasks()
}

func (s *store) refold() ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Refold(); err != nil {
		return nil, err
	}
	return s.db.Tasks(), nil
}

// write stores t as a one-task delta. A document that defers folding is
// refolded so the edit shows up in the snapshot.
func (s *store) write(t model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Write(model.NewTaskContent(t)); err != nil {
		return err
	}
	if s.db.Deferred() {
		return s.db.Refold()
	}
	return nil
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	store    *store
	tasks    []model.Task // snapshot tasks in document order
	filtered []model.Task // tasks after filtering
	cursor   int
	viewMode ViewMode

	// Filter state
	perspective  string
	filterSearch string

	// Input state
	inputMode  InputMode
	inputText  string
	inputLabel string

	// UI state
	width   int
	height  int
	err     error
	message string // temporary status message
	now     func() time.Time

	// Split view state
	focusPane    FocusPane // Which pane is focused (list or detail)
	detailScroll int       // Scroll offset in detail pane
}

// Styles
var (
	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// Content area padding
	contentPadding = 2
)

// New creates a new TUI model showing the given perspective.
func New(database *db.DB, perspective string) (Model, error) {
	if _, err := filter.ByName(perspective); err != nil {
		return Model{}, err
	}
	return Model{
		store:       &store{db: database},
		viewMode:    ViewList,
		perspective: strings.ToLower(perspective),
		now:         time.Now,
	}, nil
}

// Messages
type tasksMsg struct {
	tasks []model.Task
	err   error
}

type actionMsg struct {
	message string
	err     error
}

// loadTasks reads the snapshot held by the open document.
func (m Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		return tasksMsg{tasks: m.store.tasks()}
	}
}

// refold re-reads the document from disk.
func (m Model) refold() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.refold()
		return tasksMsg{tasks: tasks, err: err}
	}
}

// applyFilters filters tasks based on current filter state.
func (m *Model) applyFilters() {
	f, err := filter.ByName(m.perspective)
	if err != nil {
		f = filter.All()
	}

	m.filtered = nil
	for _, t := range f.Apply(m.tasks) {
		if m.filterSearch != "" {
			search := strings.ToLower(m.filterSearch)
			note := ""
			if t.Note != nil {
				note = *t.Note
			}
			if !strings.Contains(strings.ToLower(t.Title), search) &&
				!strings.Contains(strings.ToLower(t.ID), search) &&
				!strings.Contains(strings.ToLower(note), search) {
				continue
			}
		}
		m.filtered = append(m.filtered, t)
	}
	// Adjust cursor
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadTasks()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear message on any key
		m.message = ""
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Narrow modal → Wide: close modal, show split view
		if m.viewMode == ViewDetail && m.width >= minSplitWidth {
			m.viewMode = ViewList
		}
		return m, nil

	case tasksMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tasks = msg.tasks
		m.applyFilters()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.message = msg.message
		}
		return m, m.loadTasks()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle input mode first
	if m.inputMode != InputNone {
		return m.handleInputKey(msg)
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = InputNone
		m.inputText = ""
		return m, nil

	case "enter":
		return m.submitInput()

	case "backspace":
		if len(m.inputText) > 0 {
			m.inputText = m.inputText[:len(m.inputText)-1]
			if m.inputMode == InputSearch {
				m.filterSearch = m.inputText
				m.applyFilters()
			}
		}

	default:
		// Add character if printable
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			if msg.Type == tea.KeySpace {
				m.inputText += " "
			} else {
				m.inputText += string(msg.Runes)
			}
			if m.inputMode == InputSearch {
				m.filterSearch = m.inputText
				m.applyFilters()
			}
		}
	}
	return m, nil
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.inputText)
	mode := m.inputMode
	m.inputMode = InputNone
	m.inputText = ""

	switch mode {
	case InputSearch:
		m.filterSearch = text
		m.applyFilters()
		return m, nil

	case InputCreate:
		if text == "" {
			return m, nil
		}
		t := model.NewTask(text)
		return m, m.write(t, fmt.Sprintf("Created %s", t.ID))
	}

	// Remaining inputs edit the selected task
	t, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch mode {
	case InputTitle:
		if text == "" {
			return m, nil
		}
		t.Title = text
		return m, m.write(t, fmt.Sprintf("Renamed %s", t.ID))

	case InputDue, InputDefer:
		var date *time.Time
		if text != "" {
			d, err := model.ParseUserDate(text)
			if err != nil {
				m.err = err
				return m, nil
			}
			date = &d
		}
		if mode == InputDue {
			t.Due = date
			return m, m.write(t, fmt.Sprintf("Set due date of %s", t.ID))
		}
		t.Start = date
		return m, m.write(t, fmt.Sprintf("Set defer date of %s", t.ID))
	}

	return m, nil
}

// selected returns a copy of the task under the cursor.
func (m Model) selected() (model.Task, bool) {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return model.Task{}, false
	}
	return m.filtered[m.cursor].Clone(), true
}

// write stamps t as modified and stores it.
func (m Model) write(t model.Task, message string) tea.Cmd {
	return func() tea.Msg {
		now := model.Now()
		t.Modified = &now
		if err := m.store.write(t); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: message}
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// In split view with detail focused, handle detail-specific navigation
	if m.width >= minSplitWidth && m.focusPane == FocusDetail {
		return m.handleDetailPaneKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		// Toggle focus between list and detail panes (only in split view)
		if m.width >= minSplitWidth {
			if m.focusPane == FocusList {
				m.focusPane = FocusDetail
			} else {
				m.focusPane = FocusList
			}
		}
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.detailScroll = 0
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.detailScroll = 0
		}

	case "g", "home":
		m.cursor = 0
		m.detailScroll = 0

	case "G", "end":
		m.cursor = max(0, len(m.filtered)-1)
		m.detailScroll = 0

	case "enter", "l":
		// In narrow mode, open full-screen detail view
		// In split view, focus the detail pane
		if m.width < minSplitWidth && len(m.filtered) > 0 {
			m.viewMode = ViewDetail
		} else if m.width >= minSplitWidth {
			m.focusPane = FocusDetail
		}

	// Perspectives
	case "1", "2", "3", "4", "5", "6", "7":
		names := filter.Names()
		i := int(msg.String()[0] - '1')
		if i < len(names) {
			m.perspective = names[i]
			m.cursor = 0
			m.applyFilters()
		}

	case "/":
		return m.startInput(InputSearch, "Search: ")

	case "esc":
		// If a search is set, clear it; otherwise quit
		if m.filterSearch != "" {
			m.filterSearch = ""
			m.applyFilters()
		} else {
			return m, tea.Quit
		}

	case "r":
		return m, m.refold()

	case "n":
		return m.startInput(InputCreate, "New inbox task: ")
	}

	return m.handleAction(msg)
}

// handleAction runs the task actions shared by every view.
func (m Model) handleAction(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "d":
		return m.doToggleComplete()
	case "f":
		return m.doToggleFlag()
	case "t":
		return m.startInput(InputTitle, "Title: ")
	case "D":
		return m.startInput(InputDue, "Due (YYYY-MM-DD, empty clears): ")
	case "S":
		return m.startInput(InputDefer, "Defer (YYYY-MM-DD, empty clears): ")
	}
	return m, nil
}

// handleDetailPaneKey handles keys when detail pane is focused in split view.
func (m Model) handleDetailPaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "esc", "h":
		// Return focus to list
		m.focusPane = FocusList
		return m, nil

	case "up", "k":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
		return m, nil

	case "down", "j":
		// Bounded by content in detailView
		m.detailScroll++
		return m, nil

	case "g", "home":
		m.detailScroll = 0
		return m, nil

	case "G", "end":
		// Bounded in render
		m.detailScroll = 9999
		return m, nil
	}

	return m.handleAction(msg)
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc", "h", "backspace":
		m.viewMode = ViewList
		return m, nil
	}

	return m.handleAction(msg)
}

func (m Model) startInput(mode InputMode, label string) (Model, tea.Cmd) {
	m.inputMode = mode
	m.inputLabel = label
	m.inputText = ""
	return m, nil
}

func (m Model) doToggleComplete() (Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	if t.IsComplete() {
		t.Completed = nil
		return m, m.write(t, fmt.Sprintf("Reopened %s", t.ID))
	}
	now := model.Now()
	t.Completed = &now
	return m, m.write(t, fmt.Sprintf("Completed %s", t.ID))
}

func (m Model) doToggleFlag() (Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	t.Flagged = !t.Flagged
	if t.Flagged {
		return m, m.write(t, fmt.Sprintf("Flagged %s", t.ID))
	}
	return m, m.write(t, fmt.Sprintf("Unflagged %s", t.ID))
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	switch m.viewMode {
	case ViewList:
		b.WriteString(m.listView())
	case ViewDetail:
		b.WriteString(m.detailView(0)) // 0 = full width
	}

	// Input line
	if m.inputMode != InputNone {
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(m.inputLabel + m.inputText + "█"))
	}

	// Status message
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.message))
	}

	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

func (m Model) listView() string {
	if m.width >= minSplitWidth {
		return m.splitView()
	}
	return m.renderListPane(m.width - (contentPadding * 2))
}

// splitView renders the split layout with list on left and details on right.
func (m Model) splitView() string {
	focusedColor := lipgloss.Color("39")
	unfocusedColor := lipgloss.Color("241")

	// Each pane has a border on both sides, plus one gap between panes.
	gap := 1
	borderChars := 4
	availableWidth := m.width - borderChars - gap - (contentPadding * 2)
	leftContentWidth := availableWidth / 2
	rightContentWidth := availableWidth - leftContentWidth

	// Outer padding top, border top and bottom, padding bottom.
	contentHeight := m.height - 4
	if contentHeight < 10 {
		contentHeight = 10
	}

	leftLines := strings.Split(m.renderListPaneWithHeight(leftContentWidth, contentHeight), "\n")
	rightLines := strings.Split(m.detailViewWithHeight(rightContentWidth, contentHeight), "\n")

	leftLines = normalizeLines(leftLines, contentHeight, leftContentWidth)
	rightLines = normalizeLines(rightLines, contentHeight, rightContentWidth)

	leftColor := unfocusedColor
	rightColor := unfocusedColor
	if m.focusPane == FocusList {
		leftColor = focusedColor
	} else {
		rightColor = focusedColor
	}

	leftBox := buildBorderedBox(leftLines, leftContentWidth, leftColor)
	rightBox := buildBorderedBox(rightLines, rightContentWidth, rightColor)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftBox, strings.Repeat(" ", gap), rightBox)
}

// normalizeLines ensures the slice has exactly `height` lines, each padded to `width`.
func normalizeLines(lines []string, height, width int) []string {
	result := make([]string, height)
	for i := 0; i < height; i++ {
		if i < len(lines) {
			result[i] = padToWidth(lines[i], width)
		} else {
			result[i] = strings.Repeat(" ", width)
		}
	}
	return result
}

// buildBorderedBox creates a box with rounded borders around content lines.
func buildBorderedBox(lines []string, contentWidth int, borderColor lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(borderColor)

	topLeft := style.Render("╭")
	topRight := style.Render("╮")
	bottomLeft := style.Render("╰")
	bottomRight := style.Render("╯")
	horizontal := style.Render("─")
	vertical := style.Render("│")

	var b strings.Builder

	b.WriteString(topLeft)
	b.WriteString(strings.Repeat(horizontal, contentWidth))
	b.WriteString(topRight)
	b.WriteString("\n")

	for _, line := range lines {
		b.WriteString(vertical)
		b.WriteString(line)
		b.WriteString(vertical)
		b.WriteString("\n")
	}

	b.WriteString(bottomLeft)
	b.WriteString(strings.Repeat(horizontal, contentWidth))
	b.WriteString(bottomRight)

	return b.String()
}

// padToWidth pads a string to the specified width with spaces.
// Accounts for ANSI escape codes when calculating visible width.
func padToWidth(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

// renderListPane renders the list content for a given width (uses default height calc).
func (m Model) renderListPane(width int) string {
	height := m.height - 8
	if height < 10 {
		height = 15
	}
	return m.renderListPaneWithHeight(width, height)
}

// renderListPaneWithHeight renders the list content for given width and height.
func (m Model) renderListPaneWithHeight(width, height int) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.perspective))
	b.WriteString(fmt.Sprintf("  %d/%d tasks", len(m.filtered), len(m.tasks)))
	if m.filterSearch != "" {
		b.WriteString("  ")
		b.WriteString(filterStyle.Render("search:\"" + m.filterSearch + "\""))
	}
	b.WriteString("\n\n")

	// Header takes 2 lines and the footer 3.
	itemsHeight := height - 5
	if itemsHeight < 3 {
		itemsHeight = 3
	}

	if len(m.filtered) == 0 {
		b.WriteString("No tasks in " + m.perspective + "\n")
	} else {
		// Keep cursor in view
		start := 0
		if m.cursor >= itemsHeight {
			start = m.cursor - itemsHeight + 1
		}
		end := min(start+itemsHeight, len(m.filtered))

		rowWidth := width
		if rowWidth < 40 {
			rowWidth = 40
		}

		now := m.now()
		for i := start; i < end; i++ {
			t := m.filtered[i]
			if i == m.cursor {
				line := formatTaskLinePlain(t, rowWidth, now)
				b.WriteString(selectedRowStyle.Width(rowWidth).Render(line))
			} else {
				line := formatTaskLineStyled(t, rowWidth, now)
				b.WriteString(lipgloss.NewStyle().Width(rowWidth).Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k:nav  enter:detail  d:done f:flag t:title D:due S:defer n:new"))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("1-7:" + strings.Join(filter.Names(), "/") + "  /:search r:reload q:quit"))

	return b.String()
}

func truncateTitle(title string, width int) string {
	if lipgloss.Width(title) <= width {
		return title
	}
	runes := []rune(title)
	if width <= 3 || len(runes) <= 3 {
		return "..."
	}
	if width-3 < len(runes) {
		runes = runes[:width-3]
	}
	return string(runes) + "..."
}

func dueSuffix(t model.Task) string {
	if t.Due == nil {
		return ""
	}
	return "due " + t.Due.Local().Format(model.DateLayout)
}

// formatTaskLinePlain returns a plain text line without any ANSI styling.
// Used for selected rows where we apply a single highlight style.
func formatTaskLinePlain(t model.Task, width int, now time.Time) string {
	due := dueSuffix(t)
	// icon, space, id, two spaces, title, space, due
	titleWidth := width - 15 - len(due)
	if titleWidth < 20 {
		titleWidth = 40
	}
	return fmt.Sprintf("%s %s  %-*s %s", TaskIcon(t, now), t.ID, titleWidth, truncateTitle(t.Title, titleWidth), due)
}

// formatTaskLineStyled returns a styled line with colors for non-selected rows.
func formatTaskLineStyled(t model.Task, width int, now time.Time) string {
	iconStyled := StyledIcon(t, now)

	due := dueSuffix(t)
	titleWidth := width - 15 - len(due)
	if titleWidth < 20 {
		titleWidth = 40
	}
	return fmt.Sprintf("%s %s  %-*s %s", iconStyled, DimStyle.Render(t.ID), titleWidth,
		truncateTitle(t.Title, titleWidth), DimStyle.Render(due))
}

// detailView renders the detail pane. If width is 0, uses full terminal width.
func (m Model) detailView(width int) string {
	return m.detailViewWithHeight(width, 0)
}

// detailViewWithHeight renders the detail pane with explicit height constraint.
func (m Model) detailViewWithHeight(width, height int) string {
	t, ok := m.selected()
	if !ok {
		return "No task selected"
	}

	var lines []string
	now := m.now()

	iconStyled := StyledIcon(t, now)
	title := t.Title
	if width > 0 {
		title = truncateTitle(title, max(width-4, 10))
	}
	lines = append(lines, iconStyled+" "+TitleStyle.Render(title))
	lines = append(lines, "")

	field := func(label, value string) {
		lines = append(lines, LabelStyle.Render(fmt.Sprintf("%-10s", label+":"))+value)
	}
	date := func(p *time.Time) string { return p.Local().Format(model.DateLayout) }

	field("ID", t.ID)
	if t.Parent != nil {
		field("Project", *t.Parent)
	}
	if t.Context != nil {
		field("Context", *t.Context)
	}
	if t.Inbox {
		field("Inbox", "yes")
	}
	if t.Flagged {
		field("Flagged", "yes")
	}
	field("Added", date(&t.Added))
	if t.Start != nil {
		field("Defer", date(t.Start))
	}
	if t.Due != nil {
		field("Due", date(t.Due))
	}
	if t.Completed != nil {
		field("Completed", date(t.Completed))
	}
	if t.EstimatedMinutes != nil {
		field("Estimate", fmt.Sprintf("%d minutes", *t.EstimatedMinutes))
	}
	if t.Order != nil {
		field("Order", string(*t.Order))
	}

	if t.Note != nil && *t.Note != "" {
		lines = append(lines, "")
		lines = append(lines, LabelStyle.Render("Note:"))
		for _, l := range strings.Split(*t.Note, "\n") {
			if width > 0 {
				l = truncateTitle(l, max(width, 10))
			}
			lines = append(lines, l)
		}
	}

	// Full-screen detail view shows everything
	if width == 0 {
		lines = append(lines, "")
		lines = append(lines, helpStyle.Render("esc:back  d:done f:flag t:title D:due S:defer  q:quit"))
		return strings.Join(lines, "\n")
	}

	// Split view: apply scroll offset and height constraint
	totalLines := len(lines)
	visibleHeight := height
	if visibleHeight <= 0 {
		visibleHeight = totalLines
	}

	maxScroll := max(0, totalLines-visibleHeight)
	scroll := min(m.detailScroll, maxScroll)

	end := min(scroll+visibleHeight, totalLines)
	return strings.Join(lines[scroll:end], "\n")
}

// Run starts the TUI.
func Run(database *db.DB, perspective string) error {
	m, err := New(database, perspective)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
