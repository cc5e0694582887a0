package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sabitm/sail/internal/config"
	"github.com/sabitm/sail/internal/journal"
	"github.com/sabitm/sail/internal/pacman"
	"github.com/sabitm/sail/internal/target"
	"github.com/sabitm/sail/pkg/shell"
)

// Stage is one fixed step of the pipeline.
type Stage struct {
	Name  string
	Title string
	run   func(ctx context.Context) error
}

type Installer struct {
	env     Env
	cfg     config.Config
	t       *target.Descriptor
	root    string
	pkgs    *pacman.Index
	journal *journal.Journal
	undo    *undoStack
	report  *reporter
}

func New(env Env, cfg config.Config, t *target.Descriptor) *Installer {
	if env.Sync == nil {
		env.Sync = func() {}
	}
	return &Installer{
		env:    env,
		cfg:    cfg,
		t:      t,
		root:   filepath.Clean(cfg.MountRoot),
		pkgs:   pacman.NewIndex(env.Runner),
		undo:   newUndoStack(cfg.Rollback),
		report: newReporter(env.Out, env.Log),
	}
}

// Stages returns the pipeline in execution order.
func (i *Installer) Stages() []Stage {
	return []Stage{
		{Name: "partition", Title: "Partitioning disk", run: i.partition},
		{Name: "pools", Title: "Creating pools and datasets", run: i.pools},
		{Name: "base", Title: "Installing base system", run: i.base},
		{Name: "configure", Title: "Configuring system", run: i.configure},
		{Name: "aur", Title: "Building AUR packages", run: i.aur},
		{Name: "workarounds", Title: "Applying GRUB workarounds", run: i.workarounds},
		{Name: "bootloader", Title: "Installing bootloader", run: i.bootloader},
		{Name: "finalize", Title: "Finalizing installation", run: i.finalize},
	}
}

// JournalPath is where the current run is recorded, once Run has started.
func (i *Installer) JournalPath() string {
	if i.journal == nil {
		return ""
	}
	return i.journal.Path()
}

// Run executes every stage in order and stops at the first failure. When
// rollback is enabled the recorded compensations are unwound on failure.
func (i *Installer) Run(ctx context.Context) (err error) {
	stages := i.Stages()
	steps := make([]journal.Step, len(stages))
	for n, st := range stages {
		steps[n] = journal.Step{Name: st.Name, Title: st.Title}
	}
	i.journal = journal.New(i.cfg.JournalDir, i.t.Disk(), steps)
	i.env.Log.Info().Str("run", i.journal.ID()).Str("disk", i.t.Disk()).Msg("starting installation")

	i.report.begin(len(stages))
	defer func() {
		i.report.end()
		if err != nil && i.undo.enabled {
			i.report.warn("rolling back")
			if uerr := i.undo.unwind(ctx, i.env.Log); uerr != nil {
				err = fmt.Errorf("%w; rollback incomplete: %v", err, uerr)
			}
		}
		if jerr := i.journal.Close(ctx, err); jerr != nil {
			i.env.Log.Warn().Err(jerr).Msg("write journal")
		}
		if i.env.Metrics != nil {
			if merr := i.env.Metrics.WriteFile(i.cfg.MetricsFile); merr != nil {
				i.env.Log.Warn().Err(merr).Msg("write metrics")
			}
		}
	}()

	for n, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		i.report.stage(n+1, len(stages), st.Title)
		if jerr := i.journal.Start(ctx, st.Name); jerr != nil {
			i.env.Log.Warn().Err(jerr).Msg("write journal")
		}
		start := time.Now()
		serr := st.run(ctx)
		if i.env.Metrics != nil {
			i.env.Metrics.ObserveStage(st.Name, time.Since(start), serr)
		}
		if jerr := i.journal.Finish(ctx, st.Name, serr); jerr != nil {
			i.env.Log.Warn().Err(jerr).Msg("write journal")
		}
		if serr != nil {
			i.env.Log.Error().Err(serr).Str("stage", st.Name).Msg("stage failed")
			return fmt.Errorf("%s failed: %w", strings.ToLower(st.Title), serr)
		}
		i.report.stageDone()
	}
	i.env.Log.Info().Str("run", i.journal.ID()).Msg("installation completed")
	return nil
}

// Helper functions

func (i *Installer) step(format string, args ...any) {
	i.report.step(fmt.Sprintf(format, args...))
}

func (i *Installer) exec(ctx context.Context, c shell.Command) (shell.Result, error) {
	return i.env.Runner.Run(ctx, c)
}

func (i *Installer) run(ctx context.Context, name string, args ...string) error {
	_, err := i.exec(ctx, shell.Command{Name: name, Args: args})
	return err
}

func (i *Installer) output(ctx context.Context, name string, args ...string) (string, error) {
	return shell.Output(ctx, i.env.Runner, name, args...)
}

// chroot runs a command inside the target root.
func (i *Installer) chroot(ctx context.Context, args ...string) error {
	return i.run(ctx, "arch-chroot", append([]string{i.root}, args...)...)
}

// path maps an absolute target path to its location under the mount root.
func (i *Installer) path(rel string) string {
	return filepath.Join(i.root, rel)
}

func (i *Installer) readFile(rel string) ([]byte, error) {
	return afero.ReadFile(i.env.Fs, i.path(rel))
}

func (i *Installer) writeFile(rel string, data []byte, perm os.FileMode) error {
	p := i.path(rel)
	if err := i.env.Fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(i.env.Fs, p, data, perm); err != nil {
		return err
	}
	return i.env.Fs.Chmod(p, perm)
}

func (i *Installer) appendFile(rel, data string) error {
	p := i.path(rel)
	if err := i.env.Fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := i.env.Fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (i *Installer) removeFile(rel string) error {
	err := i.env.Fs.Remove(i.path(rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ensureDir creates rel under the root and sets its mode.
func (i *Installer) ensureDir(rel string, perm os.FileMode) error {
	p := i.path(rel)
	if err := i.env.Fs.MkdirAll(p, perm); err != nil {
		return err
	}
	return i.env.Fs.Chmod(p, perm)
}

func (i *Installer) copyFile(src, dst string) error {
	b, err := afero.ReadFile(i.env.Fs, src)
	if err != nil {
		return err
	}
	if err := i.env.Fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(i.env.Fs, dst, b, 0o644)
}
