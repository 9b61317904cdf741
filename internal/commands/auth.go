package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/output"
	"todo/internal/service"
	"todo/internal/state"
)

// Stdin is where a password is read from when neither --password nor TODO_PASSWORD is set.
var Stdin io.Reader = os.Stdin

// stdinIsTerminal reports whether Stdin is interactive.
var stdinIsTerminal = func() bool {
	f, ok := Stdin.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// readTerminalPassword prompts on errOut and reads a password from the terminal without echo.
var readTerminalPassword = func(errOut io.Writer) (string, error) {
	f, ok := Stdin.(*os.File)
	if !ok {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(errOut, "Password: ")
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(errOut)
	return string(b), err
}

var errPasswordRequired = errors.New("password required (use --password, TODO_PASSWORD or stdin)")

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
}

// credentials builds the sign-in input from args, the flag, the environment or stdin.
func credentials(cfg *config.Config, flagPassword string, args []string, errOut io.Writer) (service.Credentials, error) {
	if len(args) == 0 {
		return service.Credentials{}, fmt.Errorf("%w: email required", state.ErrValidation)
	}
	if len(args) > 1 {
		return service.Credentials{}, fmt.Errorf("%w: unexpected argument: %s", state.ErrValidation, args[1])
	}

	password := flagPassword
	if password == "" {
		password = cfg.Password
	}
	switch {
	case password != "":
	case stdinIsTerminal():
		p, err := readTerminalPassword(errOut)
		if err != nil {
			return service.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = p
	default:
		line, err := bufio.NewReader(Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return service.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return service.Credentials{}, fmt.Errorf("%w: %w", state.ErrValidation, errPasswordRequired)
	}
	return service.Credentials{Email: args[0], Password: password}, nil
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string     { return "todo login [--password <p>] <email>" }
func (c *LoginCmd) Access() Access    { return Public }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	creds, err := credentials(cfg, c.password, args, errOut)
	if err != nil {
		return fail(errOut, err)
	}

	if sess := store.Identity().Session; sess != nil && strings.EqualFold(sess.DisplayLabel, strings.TrimSpace(creds.Email)) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	cmd, err := store.BeginSession(creds)
	if err != nil {
		return fail(errOut, err)
	}
	if err := store.Settle(cmd); err != nil {
		return fail(errOut, err)
	}
	return success(out, cfg.Quiet)
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string     { return "todo register [--password <p>] <email>" }
func (c *RegisterCmd) Access() Access    { return Public }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	creds, err := credentials(cfg, c.password, args, errOut)
	if err != nil {
		return fail(errOut, err)
	}
	cmd, err := store.CreateSession(creds)
	if err != nil {
		return fail(errOut, err)
	}
	if err := store.Settle(cmd); err != nil {
		return fail(errOut, err)
	}
	return success(out, cfg.Quiet)
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Sign out and forget the stored session" }
func (c *LogoutCmd) Usage() string     { return "todo logout" }
func (c *LogoutCmd) Access() Access    { return Public }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	if store.Route() != state.RouteAllowed {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}
	if err := store.Settle(store.EndSession()); err != nil {
		return fail(errOut, err)
	}
	return success(out, cfg.Quiet)
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in account" }
func (c *WhoamiCmd) Usage() string     { return "todo whoami" }
func (c *WhoamiCmd) Access() Access    { return SignedIn }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, store *state.Store, args []string, out, errOut io.Writer) int {
	sess := store.Identity().Session
	output.FormatAccount(out, sess.DisplayLabel, sess.ID)
	return exitcode.Success
}
