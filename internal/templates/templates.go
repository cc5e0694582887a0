// Package templates renders the files the installer writes into the target.
package templates

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed files/kernel_updater
var KernelUpdater string

//go:embed files/archzfs.conf
var ArchzfsRepo string

//go:embed files/zpool_vdev_name_path.sh
var VdevNamePath string

const (
	HooksLine     = "HOOKS=(base udev autodetect modconf block keyboard zfs filesystems)"
	NobodySudoers = "nobody ALL=(ALL) NOPASSWD: ALL\n"
	WheelSudoers  = "%wheel ALL=(ALL) ALL\n"
	EnvKeepVdev   = `Defaults env_keep += "ZPOOL_VDEV_NAME_PATH"` + "\n"

	// GrubPoolLookup replaces the rpool= assignment in /etc/grub.d/10_linux so
	// the pool name is read from the device label instead of zpool status.
	GrubPoolLookup = "rpool=`zdb -l ${GRUB_DEVICE} | grep -E '[[:blank:]]name' | cut -d\\' -f 2`"
)

// GrubDefaults is appended to /etc/default/grub.
func GrubDefaults(importDir string) string {
	return fmt.Sprintf("GRUB_DISABLE_OS_PROBER=false\nGRUB_CMDLINE_LINUX=\"zfs_import_dir=%s\"\n", importDir)
}

// Mkinitcpio returns stock with the zfs hook list appended. The last HOOKS
// assignment wins when mkinitcpio sources the file.
func Mkinitcpio(stock string) string {
	if stock != "" && !strings.HasSuffix(stock, "\n") {
		stock += "\n"
	}
	return stock + HooksLine + "\n"
}

// Mirrorlist renders a pacman mirrorlist from server URLs.
func Mirrorlist(servers []string) string {
	var b strings.Builder
	for _, s := range servers {
		fmt.Fprintf(&b, "Server = %s\n", s)
	}
	return b.String()
}

// LocaleGen is the locale.gen line enabling locale with its charset.
func LocaleGen(locale string) string {
	charset := "UTF-8"
	if _, cs, ok := strings.Cut(locale, "."); ok && cs != "" {
		charset = cs
	}
	return locale + " " + charset + "\n"
}
