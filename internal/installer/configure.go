package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/sabitm/sail/internal/fstab"
	"github.com/sabitm/sail/internal/pacman"
	"github.com/sabitm/sail/internal/templates"
	"github.com/sabitm/sail/pkg/shell"
)

func (i *Installer) configure(ctx context.Context) error {
	for _, step := range []struct {
		desc string
		fn   func(context.Context) error
	}{
		{"grub defaults", i.grubDefaults},
		{"fstab", i.writeFstab},
		{"mkinitcpio", i.writeMkinitcpio},
		{"clock", i.configureClock},
		{"first boot settings", i.firstBoot},
		{"host id", i.hostID},
		{"package pins", i.pinPackages},
		{"zfs services", i.zfsServices},
		{"locale", i.generateLocale},
		{"archzfs repository", i.archzfsRepo},
	} {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.desc, err)
		}
	}
	return nil
}

func (i *Installer) grubDefaults(context.Context) error {
	i.step("set grub defaults, zfs_import_dir=%s", i.t.DiskDir())
	return i.appendFile("/etc/default/grub", templates.GrubDefaults(i.t.DiskDir()))
}

func (i *Installer) writeFstab(ctx context.Context) error {
	i.step("generate /etc/fstab")
	gen, err := i.output(ctx, "genfstab", "-U", i.root)
	if err != nil {
		return err
	}
	uuid, err := i.env.Devices.UUID(ctx, i.t.EFIPartition())
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(fstab.FilterZFS(gen))
	b.WriteString(fstab.ESPEntry(uuid, "/boot/efis/"+i.t.EFIName()))
	b.WriteString(fstab.ESPEntry(uuid, "/boot/efi"))
	return i.writeFile("/etc/fstab", []byte(b.String()), 0o644)
}

func (i *Installer) writeMkinitcpio(context.Context) error {
	const conf = "/etc/mkinitcpio.conf"
	i.step("add zfs hook to %s", conf)
	stock, err := i.readFile(conf)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	default:
		if err := i.env.Fs.Rename(i.path(conf), i.path(conf+".old")); err != nil {
			return err
		}
	}
	return i.writeFile(conf, []byte(templates.Mkinitcpio(string(stock))), 0o644)
}

func (i *Installer) configureClock(ctx context.Context) error {
	i.step("sync hardware clock and enable timesyncd")
	if err := i.run(ctx, "hwclock", "--systohc"); err != nil {
		return err
	}
	return i.run(ctx, "systemctl", "enable", "systemd-timesyncd", "--root="+i.root)
}

func (i *Installer) firstBoot(ctx context.Context) error {
	c := i.cfg
	if err := i.removeFile("/etc/localtime"); err != nil {
		return err
	}
	i.step("set locale %s, keymap %s, timezone %s, hostname %s", c.Locale, c.Keymap, c.Timezone, c.Hostname)
	_, err := i.exec(ctx, shell.Command{
		Name: "systemd-firstboot",
		Args: []string{
			"--root=" + i.root,
			"--force",
			"--locale=" + c.Locale,
			"--locale-messages=" + c.Locale,
			"--keymap=" + c.Keymap,
			"--timezone=" + c.Timezone,
			"--hostname=" + c.Hostname,
			"--root-password=" + c.RootPassword,
			"--root-shell=/bin/bash",
		},
		Sensitive: true,
	})
	if err != nil {
		return err
	}
	i.step("set root password")
	_, err = i.exec(ctx, shell.Command{
		Name:  "arch-chroot",
		Args:  []string{i.root, "passwd"},
		Stdin: c.RootPassword + "\n" + c.RootPassword + "\n",
	})
	return err
}

func (i *Installer) hostID(ctx context.Context) error {
	i.step("generate /etc/hostid")
	return i.run(ctx, "zgenhostid", "-f", "-o", i.path("/etc/hostid"))
}

func (i *Installer) pinPackages(context.Context) error {
	t := i.t
	pins := []string{t.Kernel(), t.KernelHeaders(), t.ZFSPackage(), "zfs-utils"}
	i.step("hold %s", strings.Join(pins, " "))
	conf, err := i.readFile("/etc/pacman.conf")
	if err != nil {
		return err
	}
	if err := i.writeFile("/etc/pacman.conf", []byte(pacman.PinPackages(string(conf), pins...)), 0o644); err != nil {
		return err
	}
	return i.writeFile("/usr/local/bin/kernel_updater", []byte(templates.KernelUpdater), 0o755)
}

func (i *Installer) zfsServices(ctx context.Context) error {
	i.step("enable zfs import services")
	root := "--root=" + i.root
	if err := i.run(ctx, "systemctl", "enable", "zfs-import-scan.service", "zfs-import.target", "zfs-zed", "zfs.target", root); err != nil {
		return err
	}
	return i.run(ctx, "systemctl", "disable", "zfs-mount", root)
}

func (i *Installer) generateLocale(ctx context.Context) error {
	i.step("generate locale %s", i.cfg.Locale)
	if err := i.appendFile("/etc/locale.gen", templates.LocaleGen(i.cfg.Locale)); err != nil {
		return err
	}
	return i.chroot(ctx, "locale-gen")
}

func (i *Installer) archzfsRepo(ctx context.Context) error {
	a := i.cfg.Archzfs
	i.step("trust archzfs key %s", a.KeyID)
	key, err := i.output(ctx, "curl", "-fsSL", a.KeyURL)
	if err != nil {
		return fmt.Errorf("fetch key: %w", err)
	}
	_, err = i.exec(ctx, shell.Command{
		Name:  "arch-chroot",
		Args:  []string{i.root, "pacman-key", "-a", "-"},
		Stdin: key + "\n",
	})
	if err != nil {
		return err
	}
	if err := i.chroot(ctx, "pacman-key", "--lsign-key", a.KeyID); err != nil {
		return err
	}
	if err := i.writeFile("/etc/pacman.d/mirrorlist-archzfs", []byte(templates.Mirrorlist(a.Servers)), 0o644); err != nil {
		return err
	}
	return i.appendFile("/etc/pacman.conf", "\n"+templates.ArchzfsRepo)
}
