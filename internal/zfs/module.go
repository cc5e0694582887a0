package zfs

import (
	"context"
	"fmt"

	"github.com/pmorjan/kmod"

	"github.com/sabitm/sail/pkg/shell"
)

// ModuleLoader loads a kernel module by name, resolving dependencies.
type ModuleLoader interface {
	Load(ctx context.Context, name string) error
}

// Kmod loads modules in-process through modules.dep of the running kernel
// and falls back to modprobe when the module index cannot be read.
type Kmod struct {
	Runner shell.Runner
}

func NewKmod(r shell.Runner) *Kmod { return &Kmod{Runner: r} }

func (k *Kmod) Load(ctx context.Context, name string) error {
	manager, err := kmod.New()
	if err == nil {
		if err = manager.Load(name, "", 0); err == nil {
			return nil
		}
	}
	if _, ferr := k.Runner.Run(ctx, shell.Command{Name: "modprobe", Args: []string{name}}); ferr != nil {
		return fmt.Errorf("error loading module %q: %w (modprobe: %v)", name, err, ferr)
	}
	return nil
}
