package installer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sabitm/sail/internal/postinstall"
	"github.com/sabitm/sail/internal/templates"
	"github.com/sabitm/sail/internal/zfs"
)

// maintenanceActions are the periodic pool tasks installed for the target.
// Trim is only useful on solid state storage.
func (i *Installer) maintenanceActions() []string {
	if i.t.SSD() {
		return []string{"scrub", "trim"}
	}
	return []string{"scrub"}
}

func (i *Installer) finalize(ctx context.Context) error {
	actions := i.maintenanceActions()
	for _, action := range actions {
		units, err := templates.MaintenanceUnits(action)
		if err != nil {
			return err
		}
		for _, u := range units {
			i.step("write %s", u.Name)
			if err := i.writeFile(filepath.Join("/etc/systemd/system", u.Name), u.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", u.Name, err)
			}
		}
	}

	enable := []string{"NetworkManager"}
	for _, action := range actions {
		enable = append(enable, templates.TimerInstances(action, zfs.RootPool, zfs.BootPool)...)
	}
	for _, u := range enable {
		i.step("enable %s", u)
		if err := i.chroot(ctx, "systemctl", "enable", u); err != nil {
			return fmt.Errorf("enable %s: %w", u, err)
		}
	}

	i.step("allow wheel to use sudo")
	if err := i.appendFile("/etc/sudoers", templates.WheelSudoers); err != nil {
		return err
	}

	i.step("write post-install scripts to %s", i.cfg.PostScriptsDir)
	if err := postinstall.Install(i.env.Fs, i.path(i.cfg.PostScriptsDir)); err != nil {
		return fmt.Errorf("post-install scripts: %w", err)
	}

	if i.env.LogPath != "" {
		if err := i.copyFile(i.env.LogPath, i.path("/var/log/sail-install.log")); err != nil {
			i.env.Log.Warn().Err(err).Msg("copy install log")
		}
	}

	i.step("flush filesystem buffers")
	i.env.Sync()

	for _, snap := range zfs.InstallSnapshots {
		i.step("snapshot %s", snap)
		if err := i.run(ctx, "zfs", "snapshot", "-r", snap); err != nil {
			return fmt.Errorf("snapshot %s: %w", snap, err)
		}
	}

	return i.release(ctx)
}

// release unmounts the ESPs and exports both pools.
func (i *Installer) release(ctx context.Context) error {
	i.step("unmount /boot/efi")
	if err := i.run(ctx, "umount", i.path("/boot/efi")); err != nil {
		return fmt.Errorf("unmount /boot/efi: %w", err)
	}
	mounts, err := i.env.Mounts.MountsUnder(ctx, i.path("/boot/efis"))
	if err != nil {
		return fmt.Errorf("list esp mounts: %w", err)
	}
	for _, m := range mounts {
		i.step("unmount %s", m)
		if err := i.run(ctx, "umount", m); err != nil {
			return fmt.Errorf("unmount %s: %w", m, err)
		}
	}
	for _, pool := range []string{zfs.BootPool, zfs.RootPool} {
		i.step("export %s", pool)
		if err := i.run(ctx, "zpool", "export", pool); err != nil {
			return fmt.Errorf("export %s: %w", pool, err)
		}
	}
	return nil
}
