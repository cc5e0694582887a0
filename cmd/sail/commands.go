package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sabitm/sail/internal/config"
	"github.com/sabitm/sail/internal/fsatomic"
	"github.com/sabitm/sail/internal/installer"
	"github.com/sabitm/sail/internal/journal"
	"github.com/sabitm/sail/internal/metrics"
	"github.com/sabitm/sail/internal/postinstall"
	"github.com/sabitm/sail/internal/preflight"
	"github.com/sabitm/sail/internal/storage/blk"
	"github.com/sabitm/sail/internal/sysenv"
	"github.com/sabitm/sail/internal/target"
	"github.com/sabitm/sail/internal/zfs"
	"github.com/sabitm/sail/pkg/shell"
)

func newStartCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the installation",
		Long: `Run the installation described by the configuration file.

A missing configuration file is replaced by a template and sail exits so it
can be edited. Values can be overridden with SAIL_<KEY> environment
variables, e.g. SAIL_DISK=/dev/disk/by-id/... or SAIL_ARCHZFS_KEY_ID=...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStart(ctx, sysenv.New(), yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// liveHost is the part of the live system runStart reads.
type liveHost interface {
	preflight.Host
	installer.Mounts
	Info(ctx context.Context) (sysenv.Info, error)
	Sync()
}

func runStart(ctx context.Context, host liveHost, yes bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	// Privilege and tool errors are reported before anything is created.
	if err := preflight.Check(host, preflight.RequiredTools); err != nil {
		return err
	}

	log, logFile, err := installer.OpenLog(cfg.JournalDir, cfg.Level(), os.Stderr)
	if err != nil {
		return fmt.Errorf("open install log: %w", err)
	}
	defer logFile.Close()

	if err := os.MkdirAll(cfg.JournalDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.JournalDir, err)
	}
	unlock, err := fsatomic.TryLock(filepath.Join(cfg.JournalDir, "sail.lock"))
	if errors.Is(err, fsatomic.ErrLocked) {
		return errors.New("another sail instance is running")
	}
	if err != nil {
		return err
	}
	defer unlock()

	if info, err := host.Info(ctx); err == nil {
		log.Info().
			Str("hostname", info.Hostname).
			Str("platform", info.Platform).
			Str("kernel", info.Kernel).
			Str("arch", info.Arch).
			Msg("live system")
	}

	m := metrics.New()
	runner := m.Instrument(shell.NewExec(log, os.Stderr))
	devices := blk.New(runner)
	desc, err := target.New(ctx, devices, cfg.TargetParams())
	if err != nil {
		return err
	}

	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("no terminal to confirm on, pass --yes for unattended runs")
		}
		if err := installer.Confirm(os.Stderr, desc.Disk(), summarize(cfg, desc)); err != nil {
			return err
		}
	}

	env := installer.Env{
		Runner:  runner,
		Fs:      afero.NewOsFs(),
		Devices: devices,
		Modules: zfs.NewKmod(runner),
		Mounts:  host,
		Sync:    host.Sync,
		Metrics: m,
		Log:     log,
		Out:     os.Stderr,
		LogPath: logFile.Name(),
	}
	inst := installer.New(env, cfg, desc)
	start := time.Now()
	if err := inst.Run(ctx); err != nil {
		if p := inst.JournalPath(); p != "" {
			fmt.Fprintf(os.Stderr, "Run journal: %s\n", p)
		}
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "\nInstallation completed in %s\n", time.Since(start).Round(time.Second))
	fmt.Fprintf(os.Stderr, "Post-install scripts are in %s on the new system.\n", cfg.PostScriptsDir)
	return nil
}

func summarize(cfg config.Config, d *target.Descriptor) []string {
	return []string{
		fmt.Sprintf("kernel:     %s (%s)", d.Kernel(), d.ZFSPackage()),
		fmt.Sprintf("esp:        %s, %s", d.EFIPartition(), d.ESPSize()),
		fmt.Sprintf("boot pool:  %s, %s", d.BootPoolPartition(), d.BootPoolSize()),
		fmt.Sprintf("root pool:  %s, rest of disk", d.RootPoolPartition()),
		fmt.Sprintf("storage:    %s", d.Storage()),
		fmt.Sprintf("hostname:   %s", cfg.Hostname),
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show the journal of the latest or a given run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if _, err := os.Stat(cfgFile); err == nil {
				if cfg, err = config.Load(cfgFile); err != nil {
					return err
				}
			}
			path, err := journalPath(cfg.JournalDir, args)
			if err != nil {
				return err
			}
			run, ok, err := journal.Load(path)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no journal at %s", path)
			}
			durations, err := metrics.ReadStageDurations(cfg.MetricsFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", cfg.MetricsFile, err)
			}
			printRun(run, durations)
			return nil
		},
	}
}

func journalPath(dir string, args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Join(dir, args[0]+".json"), nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no runs recorded in %s", dir)
	}
	mod := make(map[string]time.Time, len(matches))
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil {
			mod[m] = fi.ModTime()
		}
	}
	sort.Slice(matches, func(i, j int) bool { return mod[matches[i]].After(mod[matches[j]]) })
	return matches[0], nil
}

// printRun shows the journal of run. Durations come from the metrics file,
// which only describes the latest run.
func printRun(run journal.Run, durations map[string]time.Duration) {
	fmt.Printf("Run %s on %s, started %s\n", run.ID, run.Disk, humanize.Time(run.StartedAt))
	for _, s := range run.Steps {
		status := s.Status
		switch s.Status {
		case journal.StatusOK:
			status = color.GreenString(s.Status)
		case journal.StatusError:
			status = color.RedString(s.Status)
		case journal.StatusRunning:
			status = color.YellowString(s.Status)
		}
		took := ""
		if d, ok := durations[s.Name]; ok && s.FinishedAt != nil {
			took = d.Round(time.Second).String()
		}
		fmt.Printf("  %-12s %-30s %-8s %s\n", s.Name, s.Title, took, status)
		if s.Err != "" {
			fmt.Printf("  %-12s %s\n", "", s.Err)
		}
	}
	switch {
	case run.OK:
		color.Green("Completed")
	case run.FinishedAt != nil:
		color.Red("Failed: %s", run.Error)
	default:
		color.Yellow("Incomplete")
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the bundled post-install scripts",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range postinstall.Names() {
				fmt.Println(n)
			}
		},
	}
}

func newExecCmd() *cobra.Command {
	var (
		script string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run a post-install script on the installed system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				With().Timestamp().Logger()
			return postinstall.Exec(cmd.Context(), afero.NewOsFs(), shell.NewExec(log, os.Stdout), dir, script, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&script, "script", "s", "", "script name, see `sail list`")
	cmd.Flags().StringVar(&dir, "dir", config.Default().PostScriptsDir, "directory holding the scripts")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show sail version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sail version %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion script",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
