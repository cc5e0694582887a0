package shell

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestExecCapturesStdout(t *testing.T) {
	e := NewExec(zerolog.Nop(), nil)
	res, err := e.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}

func TestExecFeedsStdin(t *testing.T) {
	e := NewExec(zerolog.Nop(), nil)
	res, err := e.Run(context.Background(), Command{Name: "cat", Stdin: "abc\n123"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if string(res.Stdout) != "abc\n123" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}

func TestExecInputReader(t *testing.T) {
	e := NewExec(zerolog.Nop(), nil)
	in := strings.NewReader("secret\n")
	res, err := e.Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", "read -r pw || exit 3; echo got $pw"},
		Stdin: "ignored\n",
		Input: in,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "got secret" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}

func TestExecExitError(t *testing.T) {
	e := NewExec(zerolog.Nop(), nil)
	_, err := e.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if ee.Code != 3 || ee.Stderr != "boom" {
		t.Fatalf("unexpected exit error %+v", ee)
	}
}

func TestSensitiveCommandRedacted(t *testing.T) {
	c := Command{Name: "systemd-firstboot", Args: []string{"--root-password=hunter2"}, Sensitive: true}
	if strings.Contains(c.String(), "hunter2") {
		t.Fatalf("password leaked: %s", c.String())
	}
	if !strings.Contains(c.Line(), "hunter2") {
		t.Fatalf("line should keep arguments")
	}
}
