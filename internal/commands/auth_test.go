package commands_test

import (
	"errors"
	"strings"
	"testing"

	"todo/internal/commands"
	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/state"
)

func TestLoginCommand_PasswordFlag(t *testing.T) {
	f := newFixture(t, false)

	cmd := &commands.LoginCmd{}
	args := parse(t, cmd, "--password", "secret1", "alice@example.com")
	stdout, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if f.store.Route() != state.RouteAllowed {
		t.Errorf("expected signed in, got route %s", f.store.Route())
	}
	if got := f.store.Identity().Session.DisplayLabel; got != "alice@example.com" {
		t.Errorf("expected display label to be the email, got %q", got)
	}
}

func TestLoginCommand_PasswordFromStdin(t *testing.T) {
	f := newFixture(t, false)
	commands.SetStdin(t, strings.NewReader("secret1\n"), false)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, f.store, []string{"alice@example.com"}, true)

	expectCode(t, exitcode.Success, code, stderr)
	if f.store.Route() != state.RouteAllowed {
		t.Errorf("expected signed in, got route %s", f.store.Route())
	}
}

func TestLoginCommand_TerminalPrompt(t *testing.T) {
	f := newFixture(t, false)
	commands.SetStdin(t, strings.NewReader("secret1\n"), true)

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, f.store, []string{"alice@example.com"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if stderr != "Password: \n" {
		t.Errorf("expected a password prompt on stderr, got %q", stderr)
	}
	if f.store.Route() != state.RouteAllowed {
		t.Errorf("expected signed in, got route %s", f.store.Route())
	}
}

func TestLoginCommand_TerminalEmptyPassword(t *testing.T) {
	f := newFixture(t, false)
	commands.SetStdin(t, strings.NewReader("\n"), true)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, f.store, []string{"alice@example.com"}, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if !strings.Contains(stderr, "password required") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if f.id.SignInCalls != 0 {
		t.Errorf("expected no sign-in attempt, got %d", f.id.SignInCalls)
	}
}

func TestLoginCommand_FlagSkipsPrompt(t *testing.T) {
	f := newFixture(t, false)
	commands.SetStdin(t, strings.NewReader("wrong\n"), true)

	cmd := &commands.LoginCmd{}
	args := parse(t, cmd, "--password", "secret1", "alice@example.com")
	_, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stderr != "" {
		t.Errorf("expected no prompt, got %q", stderr)
	}
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	f := newFixture(t, false)

	cmd := &commands.LoginCmd{}
	args := parse(t, cmd, "--password", "nope", "alice@example.com")
	_, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.AuthError, code, stderr)
	if stderr != "error: invalid email or password\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if f.store.Identity().Status != state.StatusFailed {
		t.Errorf("expected failed identity status, got %s", f.store.Identity().Status)
	}
}

func TestLoginCommand_MissingEmail(t *testing.T) {
	f := newFixture(t, false)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, f.store, nil, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: invalid input: email required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand_InvalidEmail(t *testing.T) {
	f := newFixture(t, false)

	cmd := &commands.LoginCmd{}
	args := parse(t, cmd, "--password", "secret1", "alice")
	_, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: invalid input: invalid email: alice\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand_AlreadyLoggedIn(t *testing.T) {
	f := newFixture(t, true)

	cmd := &commands.LoginCmd{}
	args := parse(t, cmd, "--password", "secret1", "Alice@Example.com")
	stdout, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "already logged in\n" {
		t.Errorf("expected already logged in, got %q", stdout)
	}
	if f.id.SignInCalls != 0 {
		t.Errorf("expected no sign-in call, got %d", f.id.SignInCalls)
	}
}

func TestLoginCommand_SwitchAccount(t *testing.T) {
	f := newFixture(t, true)
	f.id.AddAccount("bob@example.com", "hunter22")
	f.put("a", "Alice's task", "", false, 0)
	if err := f.store.Settle(f.store.Reload()); err != nil {
		t.Fatalf("load: %v", err)
	}

	cmd := &commands.LoginCmd{}
	args := parse(t, cmd, "--password", "hunter22", "bob@example.com")
	_, stderr, code := runCommand(t, cmd, f.store, args, true)

	expectCode(t, exitcode.Success, code, stderr)
	if got := f.store.Identity().Session.DisplayLabel; got != "bob@example.com" {
		t.Errorf("expected bob signed in, got %q", got)
	}
	if items := f.store.Tasks().Items; len(items) != 0 {
		t.Errorf("expected previous account's tasks dropped, got %d", len(items))
	}
}

func TestRegisterCommand(t *testing.T) {
	f := newFixture(t, false)

	cmd := &commands.RegisterCmd{}
	args := parse(t, cmd, "--password", "hunter22", "bob@example.com")
	stdout, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if got := f.store.Identity().Session.DisplayLabel; got != "bob@example.com" {
		t.Errorf("expected bob signed in, got %q", got)
	}
}

func TestRegisterCommand_ShortPassword(t *testing.T) {
	f := newFixture(t, false)

	cmd := &commands.RegisterCmd{}
	args := parse(t, cmd, "--password", "abc", "bob@example.com")
	_, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: invalid input: password must be at least 6 characters\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestRegisterCommand_EmailTaken(t *testing.T) {
	f := newFixture(t, false)

	cmd := &commands.RegisterCmd{}
	args := parse(t, cmd, "--password", "hunter22", "alice@example.com")
	_, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: email already registered\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if f.store.Route() != state.RouteSignIn {
		t.Errorf("expected to stay signed out, got %s", f.store.Route())
	}
}

func TestRegisterCommand_BackendFailure(t *testing.T) {
	f := newFixture(t, false)
	f.id.CreateUserErr = errors.New("quota exceeded")

	cmd := &commands.RegisterCmd{}
	args := parse(t, cmd, "--password", "hunter22", "bob@example.com")
	_, stderr, code := runCommand(t, cmd, f.store, args, false)

	expectCode(t, exitcode.BackendError, code, stderr)
	if stderr != "error: backend error: quota exceeded\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLogoutCommand(t *testing.T) {
	f := newFixture(t, true)
	f.put("a", "Buy milk", "", false, 0)
	if err := f.store.Settle(f.store.Reload()); err != nil {
		t.Fatalf("load: %v", err)
	}

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, f.store, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	st := f.store.State()
	if st.Identity.Session != nil {
		t.Errorf("expected no session, got %+v", st.Identity.Session)
	}
	if len(st.Tasks.Items) != 0 {
		t.Errorf("expected tasks cleared, got %d", len(st.Tasks.Items))
	}
	if f.id.SignOutCalls != 1 {
		t.Errorf("expected 1 sign-out call, got %d", f.id.SignOutCalls)
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	f := newFixture(t, false)

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, f.store, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "not logged in\n" {
		t.Errorf("expected not logged in, got %q", stdout)
	}
	if f.id.SignOutCalls != 0 {
		t.Errorf("expected no sign-out call, got %d", f.id.SignOutCalls)
	}
}

func TestLogoutCommand_Failure(t *testing.T) {
	f := newFixture(t, true)
	f.id.SignOutErr = service.ErrTimeout

	_, stderr, code := runCommand(t, &commands.LogoutCmd{}, f.store, nil, false)

	expectCode(t, exitcode.BackendError, code, stderr)
	if f.store.Identity().Session == nil {
		t.Error("expected session kept after a failed sign-out")
	}
}

func TestWhoamiCommand(t *testing.T) {
	f := newFixture(t, true)

	stdout, stderr, code := runCommand(t, &commands.WhoamiCmd{}, f.store, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "alice@example.com ("+f.uid+")\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}
