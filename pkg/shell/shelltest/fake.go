// Package shelltest provides a recording shell.Runner for tests.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"github.com/sabitm/sail/pkg/shell"
)

type rule struct {
	prefix string
	stdout string
	code   int
	hook   func(shell.Command) error
}

// Fake records every command and answers from rules matched by command-line
// prefix. Commands without a matching rule succeed with empty output.
type Fake struct {
	mu    sync.Mutex
	rules []rule
	Calls []shell.Command
}

func (f *Fake) Run(_ context.Context, c shell.Command) (shell.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	var match *rule
	line := c.Line()
	for i := range f.rules {
		if strings.HasPrefix(line, f.rules[i].prefix) {
			match = &f.rules[i]
			break
		}
	}
	f.mu.Unlock()

	if match == nil {
		return shell.Result{}, nil
	}
	if match.hook != nil {
		if err := match.hook(c); err != nil {
			return shell.Result{Code: 1}, &shell.ExitError{Command: c.String(), Code: 1, Err: err}
		}
	}
	res := shell.Result{Stdout: []byte(match.stdout), Code: match.code}
	if match.code != 0 {
		return res, &shell.ExitError{Command: c.String(), Code: match.code}
	}
	return res, nil
}

// Respond makes commands starting with prefix print stdout.
func (f *Fake) Respond(prefix, stdout string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, stdout: stdout})
}

// Fail makes commands starting with prefix exit with code.
func (f *Fake) Fail(prefix string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, code: code})
}

// Hook runs fn for commands starting with prefix. A non-nil error fails the command.
func (f *Fake) Hook(prefix string, fn func(shell.Command) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, hook: fn})
}

// Lines returns the recorded command lines in order.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.Line())
	}
	return out
}

// Find returns recorded lines starting with prefix.
func (f *Fake) Find(prefix string) []string {
	var out []string
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// Index returns the position of the first recorded line starting with
// prefix, or -1.
func (f *Fake) Index(prefix string) int {
	for i, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return i
		}
	}
	return -1
}
