package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Command is one external program invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin string
	// Input, when set, is connected to the child's stdin instead of Stdin.
	Input io.Reader
	// Sensitive hides arguments and stdin from logs and error text.
	Sensitive bool
}

type Result struct {
	Stdout []byte
	Stderr []byte
	Code   int
}

// Runner executes commands. The default implementation is Exec; tests use
// shelltest.Fake.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// ExitError is returned when a command could not be started or exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if e.Code < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

func (c Command) String() string {
	if c.Sensitive {
		return c.Name + " [redacted]"
	}
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Line returns the full command line regardless of Sensitive.
func (c Command) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Exec runs commands as child processes. There is no per-command timeout;
// only ctx cancellation stops a running child.
type Exec struct {
	Log zerolog.Logger
	// Stream, when set, receives the child's stdout and stderr as they are
	// produced in addition to capture.
	Stream io.Writer
}

func NewExec(log zerolog.Logger, stream io.Writer) *Exec {
	return &Exec{Log: log, Stream: stream}
}

func (e *Exec) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	var outBuf, errBuf bytes.Buffer
	if e.Stream != nil {
		cmd.Stdout = io.MultiWriter(&outBuf, e.Stream)
		cmd.Stderr = io.MultiWriter(&errBuf, e.Stream)
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}
	switch {
	case c.Input != nil:
		cmd.Stdin = c.Input
	case c.Stdin != "":
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	e.Log.Debug().Str("cmd", c.String()).Msg("exec")
	err := cmd.Run()
	res := Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes(), Code: exitCode(err)}
	if err != nil {
		e.Log.Error().Str("cmd", c.String()).Int("code", res.Code).Bytes("stderr", tail(res.Stderr, 2048)).Msg("command failed")
		return res, &ExitError{Command: c.String(), Code: res.Code, Stderr: string(tail(res.Stderr, 512)), Err: err}
	}
	return res, nil
}

// Output runs name with args and returns trimmed stdout.
func Output(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Run(ctx, Command{Name: name, Args: args})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func tail(b []byte, n int) []byte {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}
