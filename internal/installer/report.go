package installer

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// reporter prints stage banners and step announcements. The overall
// progress bar is only drawn on a terminal.
type reporter struct {
	out io.Writer
	log zerolog.Logger
	bar *progressbar.ProgressBar
	tty bool
}

func newReporter(out io.Writer, log zerolog.Logger) *reporter {
	if out == nil {
		out = io.Discard
	}
	r := &reporter{out: out, log: log}
	if f, ok := out.(*os.File); ok {
		r.tty = term.IsTerminal(int(f.Fd()))
	}
	return r
}

func (r *reporter) begin(total int) {
	if !r.tty {
		return
	}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("Installing"),
		progressbar.OptionShowCount(),
	)
}

func (r *reporter) stage(n, total int, title string) {
	if r.bar != nil {
		r.bar.Describe(title)
		fmt.Fprintln(r.out)
	}
	color.New(color.FgBlue, color.Bold).Fprintf(r.out, "==> [%d/%d] %s\n", n, total, title)
	r.log.Info().Int("stage", n).Msg(title)
}

func (r *reporter) step(msg string) {
	fmt.Fprintf(r.out, "  -> %s\n", msg)
	r.log.Info().Msg(msg)
}

func (r *reporter) warn(msg string) {
	color.New(color.FgYellow).Fprintf(r.out, "  !! %s\n", msg)
	r.log.Warn().Msg(msg)
}

func (r *reporter) stageDone() {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *reporter) end() {
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Fprintln(r.out)
	}
}
