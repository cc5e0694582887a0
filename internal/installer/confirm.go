package installer

import (
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
)

const confirmWord = "DESTROY"

var ErrCancelled = errors.New("installation cancelled by user")

// Confirm asks the operator to approve writing to disk. It requires an
// interactive terminal; unattended runs pass --yes instead.
func Confirm(out io.Writer, disk string, summary []string) error {
	color.New(color.FgRed, color.Bold).Fprintf(out, "\nWARNING: new partitions and pools will be created on %s\n", disk)
	for _, s := range summary {
		fmt.Fprintf(out, "  %s\n", s)
	}

	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: "Do you want to continue?", Default: false}, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	word := ""
	if err := survey.AskOne(&survey.Input{Message: fmt.Sprintf("Type '%s' to confirm:", confirmWord)}, &word); err != nil {
		return err
	}
	if word != confirmWord {
		return ErrCancelled
	}
	return nil
}
