// Package postinstall ships the helper scripts the operator runs after the
// first boot, and runs them by name.
package postinstall

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/sabitm/sail/pkg/shell"
	"github.com/sabitm/sail/pkg/validate"
)

//go:embed scripts/*.sh
var scripts embed.FS

var ErrUnknownScript = errors.New("unknown post-install script")

// Names lists the available scripts without their .sh suffix.
func Names() []string {
	entries, _ := fs.ReadDir(scripts, "scripts")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".sh"))
	}
	sort.Strings(out)
	return out
}

// Script returns the content of the named script. name may omit ".sh".
func Script(name string) ([]byte, error) {
	file, err := fileName(name)
	if err != nil {
		return nil, err
	}
	b, err := scripts.ReadFile(path.Join("scripts", file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	return b, err
}

// Install writes every script into dir as an executable file.
func Install(afs afero.Fs, dir string) error {
	if err := afs.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	for _, n := range Names() {
		b, err := Script(n)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(afs, filepath.Join(dir, n+".sh"), b, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", n, err)
		}
	}
	return nil
}

// Exec runs the named script from dir with bash. The copy in dir is used so
// operator edits (user names, pools) take effect. The scripts prompt, so in
// is handed to the child as its stdin.
func Exec(ctx context.Context, afs afero.Fs, r shell.Runner, dir, name string, in io.Reader) error {
	file, err := fileName(name)
	if err != nil {
		return err
	}
	if _, err := Script(file); err != nil {
		return err
	}
	p := filepath.Join(dir, file)
	ok, err := afero.Exists(afs, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s not installed in %s", file, dir)
	}
	_, err = r.Run(ctx, shell.Command{Name: "bash", Args: []string{p}, Input: in})
	return err
}

func fileName(name string) (string, error) {
	if err := validate.ScriptName(name); err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	if !strings.HasSuffix(name, ".sh") {
		name += ".sh"
	}
	return name, nil
}
