package installer

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/sabitm/sail/internal/templates"
)

const grubLinux = "/etc/grub.d/10_linux"

var reGrubPool = regexp.MustCompile(`(?m)^[ \t]*rpool=.*$`)

// workarounds make grub-probe and grub-mkconfig work on pools imported by
// device path.
func (i *Installer) workarounds(context.Context) error {
	i.step("export ZPOOL_VDEV_NAME_PATH for login shells and sudo")
	if err := i.writeFile("/etc/profile.d/zpool_vdev_name_path.sh", []byte(templates.VdevNamePath), 0o644); err != nil {
		return err
	}
	if err := i.appendFile("/etc/sudoers", templates.EnvKeepVdev); err != nil {
		return err
	}

	i.step("read pool name with zdb in %s", grubLinux)
	b, err := i.readFile(grubLinux)
	if err != nil {
		return fmt.Errorf("read %s: %w", grubLinux, err)
	}
	if !reGrubPool.Match(b) {
		i.env.Log.Warn().Str("file", grubLinux).Msg("no rpool assignment to patch")
		return nil
	}
	patched := reGrubPool.ReplaceAllFunc(b, func(m []byte) []byte {
		indent := m[:len(m)-len(bytes.TrimLeft(m, " \t"))]
		out := append([]byte{}, indent...)
		return append(out, templates.GrubPoolLookup...)
	})
	return i.writeFile(grubLinux, patched, 0o755)
}

func (i *Installer) bootloader(ctx context.Context) error {
	t := i.t

	i.step("create immutable empty zpool.cache")
	if err := i.removeFile("/etc/zfs/zpool.cache"); err != nil {
		return err
	}
	if err := i.writeFile("/etc/zfs/zpool.cache", nil, 0o444); err != nil {
		return err
	}
	if err := i.chroot(ctx, "chattr", "+i", "/etc/zfs/zpool.cache"); err != nil {
		return fmt.Errorf("chattr zpool.cache: %w", err)
	}

	i.step("build initramfs")
	if err := i.chroot(ctx, "mkinitcpio", "-P"); err != nil {
		return fmt.Errorf("mkinitcpio: %w", err)
	}

	for _, dir := range []string{"/boot/efi/EFI/arch", "/boot/grub"} {
		if err := i.env.Fs.MkdirAll(i.path(dir), 0o755); err != nil {
			return err
		}
	}

	i.step("install grub to %s", t.EFIPartition())
	grubArgs := []string{"grub-install", "--boot-directory", "/boot/efi/EFI/arch", "--efi-directory", "/boot/efi/"}
	if err := i.chroot(ctx, grubArgs...); err != nil {
		return fmt.Errorf("grub-install: %w", err)
	}
	if err := i.chroot(ctx, append(grubArgs, "--removable")...); err != nil {
		return fmt.Errorf("grub-install --removable: %w", err)
	}

	i.step("register boot entry arch-%s", t.DiskName())
	if err := i.chroot(ctx, "efibootmgr", "-cgp", strconv.Itoa(t.EFIPartNum()),
		"-l", `\EFI\arch\grubx64.efi`, "-L", "arch-"+t.DiskName(), "-d", t.Disk()); err != nil {
		return fmt.Errorf("efibootmgr: %w", err)
	}

	i.step("generate grub.cfg")
	const cfg = "/boot/efi/EFI/arch/grub/grub.cfg"
	if err := i.chroot(ctx, "grub-mkconfig", "-o", cfg); err != nil {
		return fmt.Errorf("grub-mkconfig: %w", err)
	}
	if err := i.copyFile(i.path(cfg), i.path("/boot/grub/grub.cfg")); err != nil {
		return fmt.Errorf("copy grub.cfg: %w", err)
	}

	i.step("mirror EFI tree to every ESP")
	dsts, err := mirrorTree(i.env.Fs, i.path("/boot/efi/EFI"), i.path("/boot/efis"))
	if err != nil {
		return fmt.Errorf("mirror esp: %w", err)
	}
	i.env.Log.Info().Strs("targets", dsts).Msg("esp mirrored")
	return nil
}
