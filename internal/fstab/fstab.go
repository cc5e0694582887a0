package fstab

import (
	"bufio"
	"fmt"
	"strings"
)

// ESPOptions mount an ESP on first access and release it after a minute idle.
const ESPOptions = "x-systemd.idle-timeout=1min,x-systemd.automount,noauto,umask=0022,fmask=0022,dmask=0022"

// FilterZFS keeps only the zfs entries of genfstab output and rewrites
// each to mount through zfsutil, e.g.
//
//	rpool/arch/DATA/default/home /home zfs zfsutil,rw,xattr,posixacl 0 0
//
// Everything else, comments included, is dropped.
func FilterZFS(genfstab string) string {
	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(genfstab))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 3 || f[2] != "zfs" {
			continue
		}
		opts := "defaults"
		if len(f) > 3 {
			opts = f[3]
		}
		rest := []string{"0", "0"}
		if len(f) > 5 {
			rest = f[4:6]
		}
		fmt.Fprintf(&b, "%s %s zfs zfsutil,%s %s %s\n", f[0], f[1], opts, rest[0], rest[1])
	}
	return b.String()
}

// ESPEntry is a vfat entry for an ESP keyed by filesystem UUID.
func ESPEntry(uuid, mountpoint string) string {
	return fmt.Sprintf("UUID=%s %s vfat %s 0 1\n", uuid, mountpoint, ESPOptions)
}
