// Package runner launches shell commands as other users and tees their
// combined output to a line sink.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"

	"privrun/pkg/identity"
	"privrun/pkg/log"
)

// Sink receives one line of text at a time: the pre-launch announcement and
// every non-blank line of command output, trimmed, in emission order.
type Sink func(line string)

// Result describes a finished command. Output is the exact concatenation of
// everything the command wrote to stdout and stderr, blank lines and
// whitespace included.
type Result struct {
	Cmd      *exec.Cmd
	Output   string
	ExitCode int
}

// LaunchError reports a subprocess that could not be created, commonly
// because the demotion prerequisites were not met. It carries the user the
// launch was attempted as.
type LaunchError struct {
	User    string
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch %q as user %q: %v", e.Command, e.User, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// CommandRunner is the interface satisfied by Runner.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(ctx context.Context, command, userName string, overrides map[string]string, sink Sink) (*Result, error)
}

// Runner runs commands on the live system, demoted to another user's
// identity when one is given.
type Runner struct {
	Store  identity.Store
	Logger log.Logger

	// Environ supplies the baseline environment for every command.
	// Nil means os.Environ.
	Environ func() []string
	// EUID reports the caller's effective user id. Nil means os.Geteuid.
	EUID func() int
}

func New(store identity.Store, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Runner{Store: store, Logger: logger}
}

// Run tokenizes command with shell-word-splitting rules, builds the process
// environment, launches the command (demoted when userName names a user other
// than the caller), and tees its combined output to sink until it exits.
//
// Environment precedence, lowest to highest: inherited environment, identity
// variables (HOME, LOGNAME, USER, set only when impersonating), explicit
// overrides.
//
// A non-zero exit status is not an error; it is reported unaltered in the
// Result. Cancelling ctx kills the child.
func (r *Runner) Run(ctx context.Context, command, userName string, overrides map[string]string, sink Sink) (*Result, error) {
	if sink == nil {
		sink = func(string) {}
	}

	cmd, err := r.prepare(ctx, command, userName, overrides)
	if err != nil {
		return nil, err
	}

	sink(fmt.Sprintf("Running '%s' as '%s'", strings.Join(cmd.Args, " "), displayUser(userName)))

	// One pipe carries stdout and stderr interleaved so both are observed
	// in a single chronological sequence.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{User: userName, Command: command, Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, &LaunchError{User: userName, Command: command, Err: err}
	}
	// The child holds its own copy of the write end; closing ours lets the
	// read side see EOF when the child exits.
	pw.Close()

	output := drain(pr, sink)
	pr.Close()

	if err := cmd.Wait(); err != nil {
		// Non-zero exit belongs in the result, not the error.
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("waiting for %q: %w", command, err)
		}
	}

	return &Result{
		Cmd:      cmd,
		Output:   output,
		ExitCode: cmd.ProcessState.ExitCode(),
	}, nil
}

// prepare resolves the target user, builds the environment and returns a
// fully configured, unstarted command.
func (r *Runner) prepare(ctx context.Context, command, userName string, overrides map[string]string) (*exec.Cmd, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("splitting command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command cannot be empty")
	}

	env := environMap(r.environ())

	var cred *syscall.Credential
	if userName != "" {
		id, err := r.Store.Lookup(userName)
		if err != nil {
			return nil, err
		}
		// Same identity as the caller: no privilege change, no
		// identity-derived variables.
		if id.UID != r.euid() {
			env["HOME"] = id.Home
			env["LOGNAME"] = id.Name
			env["USER"] = id.Name
			// The kernel applies the group id before the user id when
			// starting the child; setting the user id first would strip
			// the permission needed to change groups.
			cred = &syscall.Credential{
				Uid: uint32(id.UID),
				Gid: uint32(id.GID),
			}
		}
	}

	// Explicit overrides win over identity variables and the inherited
	// environment. Only the keys are logged; values may hold secrets.
	if len(overrides) > 0 {
		keys := make([]string, 0, len(overrides))
		for k, v := range overrides {
			env[k] = v
			keys = append(keys, k)
		}
		sort.Strings(keys)
		r.Logger.Debug("applying environment overrides", "keys", strings.Join(keys, ","))
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = environList(env)
	if cred != nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
	}
	return cmd, nil
}

// drain reads the combined output stream line by line until it closes.
// Trimmed non-blank lines go to the sink; the raw stream, blank lines
// included, is accumulated and returned. That asymmetry is deliberate: the
// sink sees a readable log, the accumulation preserves the exact bytes.
func drain(r io.Reader, sink Sink) string {
	var out strings.Builder
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				sink(trimmed)
			}
			out.WriteString(line)
		}
		if err != nil {
			return out.String()
		}
	}
}

func (r *Runner) environ() []string {
	if r.Environ != nil {
		return r.Environ()
	}
	return os.Environ()
}

func (r *Runner) euid() int {
	if r.EUID != nil {
		return r.EUID()
	}
	return os.Geteuid()
}

func displayUser(userName string) string {
	if userName == "" {
		return "current user"
	}
	return userName
}
