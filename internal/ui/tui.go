// Package ui provides the interactive terminal dashboard.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"todo/internal/service"
	"todo/internal/state"
	"todo/internal/task"
)

// ErrNotTTY is returned by Run when the output is not a terminal.
var ErrNotTTY = errors.New("ui requires a TTY")

// Run starts the dashboard over store and blocks until the user quits or ctx is done.
// The store is closed on return.
func Run(ctx context.Context, store *state.Store, out io.Writer) error {
	defer store.Close()

	if !IsTTY(out) {
		return ErrNotTTY
	}

	program := tea.NewProgram(New(store), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(out))
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
)

type authForm struct {
	registering bool
	email       field
	password    field
	focus       int
	notice      string
}

func newAuthForm() authForm {
	return authForm{email: newField("Email"), password: newPasswordField("Password")}
}

func (a *authForm) focused() *field {
	if a.focus == 0 {
		return &a.email
	}
	return &a.password
}

type taskForm struct {
	id          string // "" for a new task
	title       field
	description field
	priority    task.Priority
	focus       int
	errs        map[string]string
}

const formFields = 3

func newTaskForm(t *task.Task) taskForm {
	f := taskForm{
		title:       newField("Title"),
		description: newField("Description"),
		priority:    task.DefaultPriority,
	}
	if t != nil {
		f.id = t.ID
		f.title.SetValue(t.Title)
		f.description.SetValue(t.Description)
		if t.Priority.Valid() {
			f.priority = t.Priority
		}
	}
	return f
}

// Model is the bubbletea model for the dashboard. Screens follow the route guard.
type Model struct {
	store *state.Store

	auth   authForm
	form   taskForm
	mode   mode
	view   task.View
	search field
	cursor int
	notice string

	pendingDelete string
	// loadedFor is the account the current task list was requested for.
	loadedFor string
}

// New returns a dashboard model over store.
func New(store *state.Store) *Model {
	return &Model{
		store:  store,
		auth:   newAuthForm(),
		view:   task.View{Filter: task.FilterAll},
		search: newField("Search"),
	}
}

// Init opens the auth-state subscription. A store that already knows the session
// starts loading right away.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.store.Observe(), m.sync())
}

// Update handles keys and settlement messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.store.Route() {
		case state.RouteLoading:
			if msg.String() == "q" || msg.Type == tea.KeyEsc {
				return m, m.quit()
			}
			return m, nil
		case state.RouteSignIn:
			return m, m.updateAuth(msg)
		default:
			return m, m.updateDashboard(msg)
		}
	case tea.WindowSizeMsg, tea.QuitMsg:
		return m, nil
	}

	follow := m.store.Update(msg)
	cmd := m.sync()
	m.clampCursor()
	return m, tea.Batch(follow, cmd)
}

func (m *Model) quit() tea.Cmd {
	m.store.Close()
	return tea.Quit
}

// sync resets per-account view state and starts a load whenever the signed-in account changes.
func (m *Model) sync() tea.Cmd {
	id := m.store.Identity().SessionID()
	if id == m.loadedFor {
		return nil
	}
	m.loadedFor = id
	m.mode = modeBrowse
	m.view = task.View{Filter: task.FilterAll}
	m.search.Reset()
	m.cursor = 0
	m.notice = ""
	m.auth.password.Reset()
	m.auth.notice = ""
	if id == "" {
		return nil
	}
	return m.store.Reload()
}

func (m *Model) updateAuth(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		return m.quit()
	case tea.KeyCtrlR:
		m.auth.registering = !m.auth.registering
		m.auth.notice = ""
		return nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.auth.focus = 1 - m.auth.focus
		return nil
	case tea.KeyEnter:
		if m.auth.focus == 0 {
			m.auth.focus = 1
			return nil
		}
		return m.submitAuth()
	}
	m.auth.focused().handleKey(msg)
	return nil
}

func (m *Model) submitAuth() tea.Cmd {
	if m.store.Identity().Status == state.StatusLoading {
		return nil
	}
	creds := service.Credentials{Email: m.auth.email.Value(), Password: m.auth.password.Value()}
	var cmd tea.Cmd
	var err error
	if m.auth.registering {
		cmd, err = m.store.CreateSession(creds)
	} else {
		cmd, err = m.store.BeginSession(creds)
	}
	if err != nil {
		m.auth.notice = inputError(err)
		return nil
	}
	m.auth.notice = ""
	return cmd
}

func (m *Model) updateDashboard(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeSearch:
		m.updateSearch(msg)
		return nil
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}

	visible := m.visible()
	m.notice = ""
	switch msg.String() {
	case "q":
		return m.quit()
	case "up", "k":
		m.cursor--
	case "down", "j":
		m.cursor++
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(visible) - 1
	case "f":
		m.view.Filter = m.view.Filter.Next()
		m.cursor = 0
	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.view.Search)
	case "esc":
		m.view.Search = ""
		m.search.Reset()
	case " ", "space", "x":
		if t, ok := m.selected(visible); ok {
			return m.apply(m.store.UpdateTask(t.ID, task.SetCompleted(!t.Completed)))
		}
	case "n":
		m.form = newTaskForm(nil)
		m.mode = modeForm
	case "e", "enter":
		if t, ok := m.selected(visible); ok {
			m.form = newTaskForm(&t)
			m.mode = modeForm
		}
	case "d":
		if t, ok := m.selected(visible); ok {
			m.pendingDelete = t.ID
			m.mode = modeConfirmDelete
		}
	case "r":
		return m.store.Reload()
	case "ctrl+l":
		return m.store.EndSession()
	}
	m.clampCursor()
	return nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeBrowse
		return
	case tea.KeyEsc:
		m.search.Reset()
		m.view.Search = ""
		m.mode = modeBrowse
		return
	}
	if m.search.handleKey(msg) {
		m.view.Search = m.search.Value()
		m.cursor = 0
	}
}

func (m *Model) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	id := m.pendingDelete
	m.pendingDelete = ""
	m.mode = modeBrowse
	if msg.String() != "y" {
		return nil
	}
	return m.apply(m.store.DeleteTask(id))
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	f := &m.form
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		return nil
	case tea.KeyTab, tea.KeyDown:
		f.focus = (f.focus + 1) % formFields
		return nil
	case tea.KeyShiftTab, tea.KeyUp:
		f.focus = (f.focus + formFields - 1) % formFields
		return nil
	case tea.KeyEnter:
		return m.submitForm()
	}
	switch f.focus {
	case 0:
		f.title.handleKey(msg)
	case 1:
		f.description.handleKey(msg)
	default:
		switch msg.Type {
		case tea.KeyLeft, tea.KeyRight, tea.KeySpace:
			f.priority = f.priority.Next()
		}
	}
	return nil
}

func (m *Model) submitForm() tea.Cmd {
	f := &m.form
	if f.id == "" {
		cmd, err := m.store.CreateTask(task.Draft{
			Title:       f.title.Value(),
			Description: f.description.Value(),
			Priority:    f.priority,
		})
		return m.closeForm(cmd, err)
	}

	orig, ok := m.store.Tasks().Find(f.id)
	if !ok {
		m.mode = modeBrowse
		m.notice = "task no longer exists"
		return nil
	}
	var p task.Patch
	if title := f.title.Value(); strings.TrimSpace(title) != orig.Title {
		p.Title = &title
	}
	if desc := f.description.Value(); strings.TrimSpace(desc) != orig.Description {
		p.Description = &desc
	}
	if f.priority != orig.Priority {
		prio := f.priority
		p.Priority = &prio
	}
	if p.Empty() {
		m.mode = modeBrowse
		return nil
	}
	cmd, err := m.store.UpdateTask(f.id, p)
	return m.closeForm(cmd, err)
}

// closeForm keeps the form open with inline errors when validation failed.
func (m *Model) closeForm(cmd tea.Cmd, err error) tea.Cmd {
	if err != nil {
		var verr *task.ValidationError
		if errors.As(err, &verr) {
			m.form.errs = verr.Fields
		} else {
			m.form.errs = map[string]string{"": inputError(err)}
		}
		return nil
	}
	m.form.errs = nil
	m.mode = modeBrowse
	return cmd
}

func (m *Model) apply(cmd tea.Cmd, err error) tea.Cmd {
	if err != nil {
		m.notice = inputError(err)
		return nil
	}
	return cmd
}

func inputError(err error) string {
	return strings.TrimPrefix(err.Error(), state.ErrValidation.Error()+": ")
}

func (m *Model) visible() []task.Task {
	return m.view.Apply(m.store.Tasks().Items)
}

func (m *Model) selected(visible []task.Task) (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(visible) {
		return task.Task{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the screen chosen by the route guard.
func (m *Model) View() string {
	var b strings.Builder
	writeTitle(&b)

	switch m.store.Route() {
	case state.RouteLoading:
		b.WriteString("Loading...\n\n")
		writeFooter(&b, "ctrl+c quit")
	case state.RouteSignIn:
		m.writeAuth(&b)
	default:
		m.writeDashboard(&b)
	}
	return b.String()
}

func writeTitle(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Todo") + "\n\n")
}

func writeFooter(b *strings.Builder, keys string) {
	b.WriteString(mutedStyle.Render(keys) + "\n")
}

func (m *Model) writeAuth(b *strings.Builder) {
	id := m.store.Identity()
	if m.auth.registering {
		b.WriteString("Create account\n\n")
	} else {
		b.WriteString("Sign in\n\n")
	}
	b.WriteString("  " + m.auth.email.render(m.auth.focus == 0) + "\n")
	b.WriteString("  " + m.auth.password.render(m.auth.focus == 1) + "\n\n")

	switch {
	case id.Status == state.StatusLoading:
		b.WriteString("  Working...\n\n")
	case m.auth.notice != "":
		b.WriteString("  " + errorStyle.Render(m.auth.notice) + "\n\n")
	case id.Status == state.StatusFailed && id.Err != "":
		b.WriteString("  " + errorStyle.Render(id.Err) + "\n\n")
	}

	if m.auth.registering {
		writeFooter(b, "enter register | tab next field | ctrl+r sign in instead | esc quit")
	} else {
		writeFooter(b, "enter sign in | tab next field | ctrl+r create account | esc quit")
	}
}

func (m *Model) writeDashboard(b *strings.Builder) {
	st := m.store.State()
	if st.Identity.Session != nil {
		b.WriteString("Signed in as " + st.Identity.Session.DisplayLabel + "\n")
	}
	active, completed := task.Counts(st.Tasks.Items)
	fmt.Fprintf(b, "%d active, %d completed | filter: %s", active, completed, m.view.Filter)
	if m.mode == modeSearch {
		b.WriteString(" | " + m.search.render(true))
	} else if m.view.Search != "" {
		fmt.Fprintf(b, " | search: %q", m.view.Search)
	}
	b.WriteString("\n\n")

	visible := m.view.Apply(st.Tasks.Items)
	switch {
	case len(visible) > 0:
		for i, t := range visible {
			b.WriteString(formatTask(t, i == m.cursor) + "\n")
		}
	case len(st.Tasks.Items) == 0 && st.Tasks.Status == state.StatusLoading:
		b.WriteString("  Loading tasks...\n")
	case len(st.Tasks.Items) == 0:
		b.WriteString("  No tasks yet. Press n to add one.\n")
	default:
		b.WriteString("  No tasks match.\n")
	}
	b.WriteString("\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.renderForm() + "\n\n")
	case modeConfirmDelete:
		if t, ok := st.Tasks.Find(m.pendingDelete); ok {
			fmt.Fprintf(b, "Delete %q? (y/N)\n\n", t.Title)
		}
	}

	writeStatusLine(b, st, m.notice)

	switch m.mode {
	case modeForm:
		writeFooter(b, "enter save | tab next field | left/right priority | esc cancel")
	case modeSearch:
		writeFooter(b, "type to search | enter keep | esc clear")
	default:
		writeFooter(b, "j/k move | space toggle | n new | e edit | d delete | f filter | / search | r reload | ctrl+l sign out | q quit")
	}
}

func writeStatusLine(b *strings.Builder, st state.State, notice string) {
	status := fmt.Sprintf("tasks: %s", st.Tasks.Status)
	if st.Identity.Status == state.StatusLoading {
		status = "signing out..."
	}
	b.WriteString(mutedStyle.Render(status))
	switch {
	case notice != "":
		b.WriteString("  " + errorStyle.Render(notice))
	case st.Tasks.Status == state.StatusFailed && st.Tasks.Err != "":
		b.WriteString("  " + errorStyle.Render("error: "+st.Tasks.Err))
	case st.Identity.Status == state.StatusFailed && st.Identity.Err != "":
		b.WriteString("  " + errorStyle.Render("error: "+st.Identity.Err))
	}
	b.WriteString("\n")
}

func (m *Model) renderForm() string {
	f := &m.form
	var b strings.Builder
	if f.id == "" {
		b.WriteString("New task\n\n")
	} else {
		b.WriteString("Edit task\n\n")
	}
	writeFormLine(&b, f.title.render(f.focus == 0), f.errs["title"])
	writeFormLine(&b, f.description.render(f.focus == 1), "")

	prio := string(f.priority)
	if f.focus == 2 {
		prio = focusStyle.Render("< " + prio + " >")
	}
	writeFormLine(&b, labelStyle.Render("Priority")+" "+prio, f.errs["priority"])
	if msg := f.errs[""]; msg != "" {
		b.WriteString(errorStyle.Render(msg))
	}
	return formStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func writeFormLine(b *strings.Builder, line, errMsg string) {
	b.WriteString(line + "\n")
	if errMsg != "" {
		b.WriteString("  " + errorStyle.Render(errMsg) + "\n")
	}
}

// descriptionWidth is the widest description shown under a task, in terminal cells.
const descriptionWidth = 60

func formatTask(t task.Task, selected bool) string {
	marker := "  "
	if selected {
		marker = cursorStyle.Render("> ")
	}
	check := "[ ]"
	title := t.Title
	if t.Completed {
		check = "[x]"
		title = doneStyle.Render(title)
	}
	prio := fmt.Sprintf("%-6s", t.Priority)
	if style, ok := priorityStyles[string(t.Priority)]; ok {
		prio = style.Render(prio)
	}
	line := fmt.Sprintf("%s%s %s  %s", marker, check, prio, title)
	if t.Description == "" {
		return line
	}
	desc := ansi.Truncate(t.Description, descriptionWidth, "...")
	return line + "\n" + mutedStyle.Render("              "+desc)
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
