package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"todo/internal/service"
	"todo/internal/state"
	"todo/internal/task"
	"todo/internal/testutil"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	t     *testing.T
	model *Model
	store *state.Store
	id    *testutil.FakeIdentity
	docs  *testutil.FakeDocuments
	uid   string
}

func newHarness(t *testing.T, signedIn bool) *harness {
	t.Helper()

	id := testutil.NewFakeIdentity()
	docs := testutil.NewFakeDocuments()
	uid := id.AddAccount("alice@example.com", "secret1")
	if signedIn {
		id.SetCurrent(&service.Account{ID: uid, Email: "alice@example.com"})
	}
	store := state.New(context.Background(), id, docs)
	t.Cleanup(store.Close)

	h := &harness{t: t, model: New(store), store: store, id: id, docs: docs, uid: uid}
	return h
}

// start runs Init and settles everything it leads to.
func (h *harness) start() {
	h.t.Helper()
	h.run(h.model.Init())
}

// run executes cmd and feeds resulting messages back into the model until nothing is left.
// Commands still blocked after a short wait are waiting for the next auth-state change
// and are abandoned; the store's context releases them on cleanup.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := within(next, 200*time.Millisecond)
		if !ok || msg == nil {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
		default:
			_, follow := h.model.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func within(cmd tea.Cmd, d time.Duration) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(d):
		return nil, false
	}
}

func (h *harness) key(k tea.KeyMsg) {
	h.t.Helper()
	_, cmd := h.model.Update(k)
	h.run(cmd)
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) press(t tea.KeyType) {
	h.t.Helper()
	h.key(tea.KeyMsg{Type: t})
}

func (h *harness) expectView(want ...string) {
	h.t.Helper()
	view := h.model.View()
	for _, w := range want {
		if !strings.Contains(view, w) {
			h.t.Errorf("expected view to contain %q, got:\n%s", w, view)
		}
	}
}

func (h *harness) rejectView(unwanted string) {
	h.t.Helper()
	if view := h.model.View(); strings.Contains(view, unwanted) {
		h.t.Errorf("expected view not to contain %q, got:\n%s", unwanted, view)
	}
}

func TestView_LoadingBeforeFirstObservation(t *testing.T) {
	h := newHarness(t, false)
	h.expectView("Loading...")
}

func TestInit_NoSessionShowsSignIn(t *testing.T) {
	h := newHarness(t, false)
	h.start()

	if got := h.store.Route(); got != state.RouteSignIn {
		t.Fatalf("expected sign-in route, got %s", got)
	}
	h.expectView("Sign in", "Email", "Password")
}

func TestInit_RestoredSessionLoadsTasks(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "two litres", false, baseTime))
	h.start()

	if got := h.store.Route(); got != state.RouteAllowed {
		t.Fatalf("expected allowed route, got %s", got)
	}
	h.expectView("Signed in as alice@example.com", "Buy milk", "two litres", "1 active, 0 completed")
}

func TestSignIn_Flow(t *testing.T) {
	h := newHarness(t, false)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.start()

	h.typeText("alice@example.com")
	h.press(tea.KeyTab)
	h.typeText("secret1")
	h.rejectView("secret1")
	h.expectView("*******")
	h.press(tea.KeyEnter)

	if got := h.store.Route(); got != state.RouteAllowed {
		t.Fatalf("expected allowed route after sign-in, got %s", got)
	}
	h.expectView("Buy milk")
	if got := h.model.auth.password.Value(); got != "" {
		t.Errorf("expected password to be cleared after sign-in, got %q", got)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	h := newHarness(t, false)
	h.start()

	h.typeText("alice@example.com")
	h.press(tea.KeyEnter) // moves to the password field
	h.typeText("wrong")
	h.press(tea.KeyEnter)

	if got := h.store.Route(); got != state.RouteSignIn {
		t.Fatalf("expected to stay on sign-in, got %s", got)
	}
	h.expectView(service.ErrInvalidCredentials.Error())
}

func TestSignIn_ValidationNotice(t *testing.T) {
	h := newHarness(t, false)
	h.start()

	h.press(tea.KeyTab)
	h.typeText("secret1")
	h.press(tea.KeyEnter)

	h.expectView("email required")
	if h.id.SignInCalls != 0 {
		t.Errorf("expected no sign-in call for invalid input, got %d", h.id.SignInCalls)
	}
}

func TestRegister_ToggleAndCreate(t *testing.T) {
	h := newHarness(t, false)
	h.start()

	h.press(tea.KeyCtrlR)
	h.expectView("Create account")

	h.typeText("bob@example.com")
	h.press(tea.KeyTab)
	h.typeText("abc")
	h.press(tea.KeyEnter)
	h.expectView("password must be at least 6 characters")

	h.press(tea.KeyBackspace)
	h.press(tea.KeyBackspace)
	h.press(tea.KeyBackspace)
	h.typeText("longenough")
	h.press(tea.KeyEnter)

	if got := h.store.Route(); got != state.RouteAllowed {
		t.Fatalf("expected allowed route after registering, got %s", got)
	}
	h.expectView("Signed in as bob@example.com", "No tasks yet")
}

func TestDashboard_FilterAndSearch(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.docs.Put(task.Collection, "b", testutil.TaskFields(h.uid, "Write report", "", true, baseTime.Add(time.Hour)))
	h.start()

	h.typeText("f")
	h.expectView("filter: active", "Buy milk")
	h.rejectView("Write report")

	h.typeText("f")
	h.expectView("filter: completed", "Write report")
	h.rejectView("Buy milk")

	h.typeText("f")
	h.expectView("filter: all")

	h.typeText("/")
	h.typeText("MILK")
	h.press(tea.KeyEnter)
	h.expectView(`search: "MILK"`, "Buy milk")
	h.rejectView("Write report")

	h.press(tea.KeyEsc)
	h.expectView("Buy milk", "Write report")
}

func TestDashboard_SearchNoMatch(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.start()

	h.typeText("/")
	h.typeText("zzz")
	h.expectView("No tasks match.")
}

func TestDashboard_ToggleCompletion(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.start()

	h.press(tea.KeySpace)

	fields, _ := h.docs.Get(task.Collection, "a")
	if fields[task.FieldCompleted] != true {
		t.Fatalf("expected stored task to be completed, got %v", fields[task.FieldCompleted])
	}
	h.expectView("[x]", "0 active, 1 completed")
}

func TestDashboard_CursorMovement(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Older", "", false, baseTime))
	h.docs.Put(task.Collection, "b", testutil.TaskFields(h.uid, "Newer", "", false, baseTime.Add(time.Hour)))
	h.start()

	h.typeText("j")
	h.typeText("j")
	if h.model.cursor != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", h.model.cursor)
	}
	h.typeText("x")

	fields, _ := h.docs.Get(task.Collection, "a")
	if fields[task.FieldCompleted] != true {
		t.Errorf("expected the second (older) task to be toggled, got %v", fields)
	}
	h.typeText("k")
	h.typeText("k")
	if h.model.cursor != 0 {
		t.Errorf("expected cursor clamped at 0, got %d", h.model.cursor)
	}
}

func TestDashboard_CreateWithInlineValidation(t *testing.T) {
	h := newHarness(t, true)
	h.start()

	h.typeText("n")
	h.expectView("New task")

	h.press(tea.KeyEnter)
	h.expectView("title required")
	if n := h.docs.Count(task.Collection); n != 0 {
		t.Fatalf("expected no insert for an invalid form, got %d records", n)
	}

	h.typeText("Buy milk")
	h.press(tea.KeyTab)
	h.typeText("two litres")
	h.press(tea.KeyTab)
	h.press(tea.KeyRight)
	h.press(tea.KeyEnter)

	if h.model.mode != modeBrowse {
		t.Fatalf("expected form to close after a valid submit")
	}
	items := h.store.Tasks().Items
	if len(items) != 1 {
		t.Fatalf("expected 1 task, got %d", len(items))
	}
	got := items[0]
	if got.Title != "Buy milk" || got.Description != "two litres" || got.Priority != task.PriorityHigh {
		t.Errorf("unexpected task %+v", got)
	}
	h.expectView("Buy milk")
}

func TestDashboard_EditOnlyChangedFields(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "two litres", false, baseTime))
	h.start()

	h.typeText("e")
	h.expectView("Edit task")
	if got := h.model.form.title.Value(); got != "Buy milk" {
		t.Fatalf("expected form prefilled with title, got %q", got)
	}

	h.typeText(" and eggs")
	h.press(tea.KeyEnter)

	stored, _ := h.docs.Get(task.Collection, "a")
	if stored[task.FieldTitle] != "Buy milk and eggs" {
		t.Errorf("expected stored title updated, got %v", stored[task.FieldTitle])
	}
	if stored[task.FieldDescription] != "two litres" {
		t.Errorf("expected description untouched, got %v", stored[task.FieldDescription])
	}
	h.expectView("Buy milk and eggs")
}

func TestDashboard_EditRejectsEmptyTitle(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy", "", false, baseTime))
	h.start()

	h.typeText("e")
	h.press(tea.KeyCtrlU)
	h.press(tea.KeyEnter)

	if h.model.mode != modeForm {
		t.Fatal("expected form to stay open")
	}
	h.expectView("title required")

	h.press(tea.KeyEsc)
	h.expectView("Buy")
	h.rejectView("Edit task")
}

func TestDashboard_DeleteConfirm(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.start()

	h.typeText("d")
	h.expectView(`Delete "Buy milk"? (y/N)`)
	h.typeText("n")
	if n := h.docs.Count(task.Collection); n != 1 {
		t.Fatalf("expected delete to be cancelled, got %d records", n)
	}

	h.typeText("d")
	h.typeText("y")
	if n := h.docs.Count(task.Collection); n != 0 {
		t.Fatalf("expected task deleted, got %d records", n)
	}
	h.expectView("No tasks yet")
}

func TestDashboard_RemoteErrorShownInStatusLine(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.start()

	h.docs.UpdateErr = errors.New("boom")
	h.press(tea.KeySpace)

	h.expectView("tasks: failed", "error: boom")
	items := h.store.Tasks().Items
	if len(items) != 1 || items[0].Completed {
		t.Errorf("expected task unchanged after a failed update, got %+v", items)
	}
}

func TestDashboard_ReloadPicksUpRemoteChanges(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	h.expectView("No tasks yet")

	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Added elsewhere", "", false, baseTime))
	h.typeText("r")
	h.expectView("Added elsewhere")
}

func TestDashboard_SignOut(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.start()

	h.press(tea.KeyCtrlL)

	if got := h.store.Route(); got != state.RouteSignIn {
		t.Fatalf("expected sign-in route after sign-out, got %s", got)
	}
	if items := h.store.Tasks().Items; len(items) != 0 {
		t.Errorf("expected tasks cleared on sign-out, got %d", len(items))
	}
	h.expectView("Sign in")
	h.rejectView("Buy milk")
}

func TestQuit_ClosesStore(t *testing.T) {
	h := newHarness(t, true)
	h.start()

	_, cmd := h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !h.store.Closed() {
		t.Error("expected store to be closed on quit")
	}
}

func TestQuit_TypingQOnSignInDoesNotQuit(t *testing.T) {
	h := newHarness(t, false)
	h.start()

	h.typeText("q")
	if h.store.Closed() {
		t.Fatal("expected q to be typed into the form")
	}
	if got := h.model.auth.email.Value(); got != "q" {
		t.Errorf("expected email field to contain q, got %q", got)
	}
}

func TestIsTTY_NonFile(t *testing.T) {
	var b strings.Builder
	if IsTTY(&b) {
		t.Error("expected a strings.Builder not to be a TTY")
	}
}

func TestInit_StoreAlreadyInitialized(t *testing.T) {
	h := newHarness(t, true)
	h.docs.Put(task.Collection, "a", testutil.TaskFields(h.uid, "Buy milk", "", false, baseTime))
	h.store.Initialize()

	h.start()
	h.expectView("Buy milk")
}

func TestFormatTask_TruncatesByCell(t *testing.T) {
	desc := strings.Repeat("ж", 70)
	line := formatTask(task.Task{ID: "a", Title: "Купить молоко", Description: desc, Priority: task.PriorityMedium}, false)

	if !utf8.ValidString(line) {
		t.Fatalf("expected valid UTF-8, got %q", line)
	}
	want := strings.Repeat("ж", descriptionWidth-3) + "..."
	if !strings.Contains(line, want) {
		t.Errorf("expected description cut to %d cells, got %q", descriptionWidth, line)
	}
}

func TestFormatTask_ShortDescriptionKept(t *testing.T) {
	desc := strings.Repeat("ж", 31)
	line := formatTask(task.Task{ID: "a", Title: "Молоко", Description: desc, Priority: task.PriorityLow}, false)

	if !strings.Contains(line, desc) || strings.Contains(line, "...") {
		t.Errorf("expected description shown in full, got %q", line)
	}
}

func TestField_EditingKeys(t *testing.T) {
	f := newField("Title")
	f.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("buy oat milk")})
	if changed := f.handleKey(tea.KeyMsg{Type: tea.KeyCtrlW}); !changed {
		t.Error("expected ctrl+w to change the value")
	}
	if got := f.Value(); got != "buy oat " {
		t.Errorf("expected last word deleted, got %q", got)
	}

	f.SetValue("молоко")
	f.handleKey(tea.KeyMsg{Type: tea.KeyBackspace})
	if got := f.Value(); got != "молок" {
		t.Errorf("expected one rune removed, got %q", got)
	}
	if changed := f.handleKey(tea.KeyMsg{Type: tea.KeyLeft}); changed {
		t.Error("expected cursor movement not to change the value")
	}

	f.Reset()
	if f.Value() != "" {
		t.Errorf("expected empty value after reset, got %q", f.Value())
	}
}
