package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todo/internal/cli"
	"todo/internal/commands"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/task"
	"todo/internal/testutil"
)

// testFactory returns a factory handing out the given fakes and counting calls and closes.
func testFactory(id *testutil.FakeIdentity, docs *testutil.FakeDocuments, calls, closes *int) cli.BackendFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		if calls != nil {
			*calls++
		}
		b := testutil.Backend(id, docs)
		b.Close = func() error {
			if closes != nil {
				*closes++
			}
			return nil
		}
		return b, nil
	}
}

func run(t *testing.T, factory cli.BackendFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{"TODO_BACKEND", "TODO_TIMEOUT", "TODO_PASSWORD", "TODO_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	var outBuf, errBuf bytes.Buffer
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func signedIn() (*testutil.FakeIdentity, *testutil.FakeDocuments, string) {
	id := testutil.NewFakeIdentity()
	docs := testutil.NewFakeDocuments()
	uid := id.AddAccount("alice@example.com", "secret1")
	id.SetCurrent(&service.Account{ID: uid, Email: "alice@example.com"})
	return id, docs, uid
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, nil, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown command: unknowncmd\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, nil, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown command: --quiet\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_OfflineCommandsSkipBackend(t *testing.T) {
	calls := 0
	id, docs, _ := signedIn()
	stdout, stderr, code := run(t, testFactory(id, docs, &calls, nil), "version")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "todo 0.1.0\n" {
		t.Errorf("expected version, got %q", stdout)
	}
	if calls != 0 {
		t.Errorf("expected no backend for version, got %d factory calls", calls)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown flag: -unknown\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	id, docs, _ := signedIn()
	_, stderr, code := run(t, testFactory(id, docs, nil, nil), "list", "--filter")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: flag needs an argument: -filter\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_NoArgsRunsList(t *testing.T) {
	id, docs, uid := signedIn()
	docs.Put(task.Collection, "a", testutil.TaskFields(uid, "Buy milk", "", false, time.Now()))

	stdout, stderr, code := run(t, testFactory(id, docs, nil, nil))

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	expected := "   1  [ ]  medium  Buy milk\n1 active, 0 completed\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestDispatcher_RouteGuardBlocksSignedInCommands(t *testing.T) {
	id := testutil.NewFakeIdentity()
	docs := testutil.NewFakeDocuments()
	closes := 0

	for _, args := range [][]string{{"list"}, {"add", "x"}, {"done", "1"}, {"whoami"}} {
		stdout, stderr, code := run(t, testFactory(id, docs, nil, &closes), args...)
		if code != exitcode.AuthError {
			t.Errorf("%v: expected exit code %d, got %d", args, exitcode.AuthError, code)
		}
		if stdout != "" {
			t.Errorf("%v: expected no stdout, got %q", args, stdout)
		}
		if stderr != "error: not logged in (run: todo login)\n" {
			t.Errorf("%v: unexpected stderr %q", args, stderr)
		}
	}
	if docs.Count(task.Collection) != 0 {
		t.Error("expected nothing written while signed out")
	}
	if closes != 4 {
		t.Errorf("expected backend closed after every command, got %d", closes)
	}
}

func TestDispatcher_PublicCommandsRunSignedOut(t *testing.T) {
	id := testutil.NewFakeIdentity()
	id.AddAccount("alice@example.com", "secret1")
	docs := testutil.NewFakeDocuments()

	stdout, stderr, code := run(t, testFactory(id, docs, nil, nil), "login", "--password", "secret1", "alice@example.com")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	id, docs, _ := signedIn()

	stdout, stderr, code := run(t, testFactory(id, docs, nil, nil), "add", "--quiet", "Buy", "milk")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected no output with --quiet, got %q", stdout)
	}
	if docs.Count(task.Collection) != 1 {
		t.Error("expected the task to be stored")
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	id, docs, _ := signedIn()

	_, stderr, code := run(t, testFactory(id, docs, nil, nil), "list", "--debug", "--quiet")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stderr, "tasks/loadAll") {
		t.Errorf("expected debug log of the load, got %q", stderr)
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		return service.Backend{}, errors.New("firebase api_key not set")
	}

	_, stderr, code := run(t, factory, "list")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: config error: firebase api_key not set\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("backend = [\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, nil, "version", "--config", dir)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: config error: invalid config.toml") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_ConfigFlagReachesFactory(t *testing.T) {
	dir := t.TempDir()
	id, docs, _ := signedIn()
	var gotDir string
	factory := func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		gotDir = cfg.Dir
		return testutil.Backend(id, docs), nil
	}

	_, stderr, code := run(t, factory, "whoami", "--config", dir)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if gotDir != dir {
		t.Errorf("expected config dir %q, got %q", dir, gotDir)
	}
}
