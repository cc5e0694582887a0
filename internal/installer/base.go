package installer

import (
	"context"
	"fmt"

	"github.com/sabitm/sail/internal/pacman"
)

var (
	basePackages     = []string{"base", "base-devel", "dosfstools", "efibootmgr", "grub", "git", "htop", "mandoc", "mkinitcpio", "neovim", "networkmanager", "reflector", "sudo", "zsh"}
	firmwarePackages = []string{"linux-firmware", "intel-ucode", "amd-ucode"}
)

func (i *Installer) base(ctx context.Context) error {
	t := i.t

	i.step("refresh package databases")
	if err := i.pkgs.Refresh(ctx); err != nil {
		return err
	}

	src, err := i.kernelSource(ctx)
	if err != nil {
		return err
	}

	i.step("install base system")
	if err := i.pacstrap(ctx, basePackages...); err != nil {
		return fmt.Errorf("install base: %w", err)
	}

	if src.Archive {
		i.step("install %s %s from the package archive", t.Kernel(), src.Required)
		if err := i.run(ctx, "pacstrap", "-U", i.root, src.URL); err != nil {
			return fmt.Errorf("install archived kernel: %w", err)
		}
		if err := i.pacstrap(ctx, t.KernelHeaders()); err != nil {
			return fmt.Errorf("install kernel headers: %w", err)
		}
	} else {
		i.step("install %s %s", t.Kernel(), src.Repo)
		if err := i.pacstrap(ctx, t.Kernel(), t.KernelHeaders()); err != nil {
			return fmt.Errorf("install kernel: %w", err)
		}
	}

	i.step("install firmware and microcode")
	if err := i.pacstrap(ctx, firmwarePackages...); err != nil {
		return fmt.Errorf("install firmware: %w", err)
	}

	i.step("install %s", t.ZFSPackage())
	if err := i.pacstrap(ctx, t.ZFSPackage(), "zfs-utils"); err != nil {
		return fmt.Errorf("install zfs: %w", err)
	}
	return nil
}

// kernelSource decides whether the repository kernel satisfies the version
// the zfs package was built against.
func (i *Installer) kernelSource(ctx context.Context) (pacman.KernelSource, error) {
	t := i.t
	i.step("look up kernel version required by %s", t.ZFSPackage())
	zi, err := i.pkgs.Info(ctx, t.ZFSPackage())
	if err != nil {
		return pacman.KernelSource{}, fmt.Errorf("query %s: %w", t.ZFSPackage(), err)
	}
	required, pinned := zi.PinnedVersion(t.Kernel())
	if !pinned {
		i.env.Log.Info().Str("package", t.ZFSPackage()).Msg("no kernel pin, using repository kernel")
	}
	ki, err := i.pkgs.Info(ctx, t.Kernel())
	if err != nil {
		return pacman.KernelSource{}, fmt.Errorf("query %s: %w", t.Kernel(), err)
	}
	src := pacman.ChooseKernel(t.Kernel(), required, ki.Version)
	i.env.Log.Info().
		Str("kernel", t.Kernel()).
		Str("required", src.Required).
		Str("repo", src.Repo).
		Bool("archive", src.Archive).
		Msg("kernel source")
	return src, nil
}

func (i *Installer) pacstrap(ctx context.Context, pkgs ...string) error {
	return i.run(ctx, "pacstrap", append([]string{"-c", i.root}, pkgs...)...)
}
