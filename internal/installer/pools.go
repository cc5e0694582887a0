package installer

import (
	"context"
	"fmt"

	"github.com/sabitm/sail/internal/zfs"
)

func (i *Installer) pools(ctx context.Context) error {
	t := i.t
	optional, err := zfs.Optional(i.cfg.ExtraDatasets)
	if err != nil {
		return err
	}

	i.step("load zfs kernel module")
	if err := i.env.Modules.Load(ctx, "zfs"); err != nil {
		return fmt.Errorf("load zfs module: %w", err)
	}

	i.step("create %s on %s", zfs.BootPool, t.BootPoolPartition())
	if err := i.run(ctx, "zpool", zfs.BootPoolArgs(i.root, t.BootPoolPartition())...); err != nil {
		return fmt.Errorf("create %s: %w", zfs.BootPool, err)
	}
	i.undo.push("destroy "+zfs.BootPool, func(ctx context.Context) error {
		return i.run(ctx, "zpool", "destroy", "-f", zfs.BootPool)
	})

	i.step("create %s on %s", zfs.RootPool, t.RootPoolPartition())
	if err := i.run(ctx, "zpool", zfs.RootPoolArgs(i.root, t.RootPoolPartition())...); err != nil {
		return fmt.Errorf("create %s: %w", zfs.RootPool, err)
	}
	i.undo.push("destroy "+zfs.RootPool, func(ctx context.Context) error {
		return i.run(ctx, "zpool", "destroy", "-f", zfs.RootPool)
	})

	for _, op := range zfs.Layout() {
		if op.Mount {
			i.step("mount %s", op.Dataset)
		} else {
			i.step("create dataset %s", op.Dataset)
		}
		if err := i.run(ctx, "zfs", op.Args()...); err != nil {
			return fmt.Errorf("dataset %s: %w", op.Dataset, err)
		}
	}
	if err := i.ensureDir("root", 0o750); err != nil {
		return fmt.Errorf("chmod /root: %w", err)
	}

	if err := i.formatESP(ctx); err != nil {
		return err
	}

	for _, op := range optional {
		i.step("create dataset %s", op.Dataset)
		if err := i.run(ctx, "zfs", op.Args()...); err != nil {
			return fmt.Errorf("dataset %s: %w", op.Dataset, err)
		}
	}
	for _, rel := range i.cfg.ExtraDatasets {
		if rel == "var/games" {
			if err := i.ensureDir("var/games", 0o775); err != nil {
				return fmt.Errorf("chmod /var/games: %w", err)
			}
		}
	}
	return nil
}

// formatESP creates the vfat filesystem and mounts it both at its per-disk
// location under /boot/efis and at /boot/efi.
func (i *Installer) formatESP(ctx context.Context) error {
	t := i.t
	i.step("format %s as vfat", t.EFIPartition())
	if err := i.run(ctx, "mkfs.vfat", "-n", "EFI", t.EFIPartition()); err != nil {
		return fmt.Errorf("format esp: %w", err)
	}
	for _, rel := range []string{"boot/efis/" + t.EFIName(), "boot/efi"} {
		mnt := i.path(rel)
		if err := i.env.Fs.MkdirAll(mnt, 0o755); err != nil {
			return err
		}
		i.step("mount esp at /%s", rel)
		if err := i.run(ctx, "mount", "-t", "vfat", t.EFIPartition(), mnt); err != nil {
			return fmt.Errorf("mount esp at /%s: %w", rel, err)
		}
		i.undo.push("unmount "+mnt, func(ctx context.Context) error {
			return i.run(ctx, "umount", mnt)
		})
	}
	return nil
}
