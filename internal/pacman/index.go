package pacman

import (
	"context"
	"fmt"

	"github.com/sabitm/sail/pkg/shell"
)

// Index answers package metadata queries from the host's sync databases.
type Index struct {
	Runner shell.Runner
}

func NewIndex(r shell.Runner) *Index { return &Index{Runner: r} }

// Refresh downloads fresh sync databases.
func (x *Index) Refresh(ctx context.Context) error {
	_, err := x.Runner.Run(ctx, shell.Command{Name: "pacman", Args: []string{"-Sy"}})
	return err
}

func (x *Index) Info(ctx context.Context, name string) (Info, error) {
	res, err := x.Runner.Run(ctx, shell.Command{Name: "pacman", Args: []string{"-Si", name}})
	if err != nil {
		return Info{}, err
	}
	info, err := ParseInfo(res.Stdout)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", name, err)
	}
	return info, nil
}
