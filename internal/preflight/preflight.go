package preflight

import (
	"errors"
	"fmt"
)

var (
	ErrNotRoot = errors.New("must be run as root")
	ErrNotUEFI = errors.New("live system was not booted in UEFI mode")
)

// MissingToolError names a required program that is not on PATH.
type MissingToolError struct {
	Tool string
	Err  error
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("required program %q not found in PATH", e.Tool)
}

func (e *MissingToolError) Unwrap() error { return e.Err }

// RequiredTools are resolved on PATH before anything is touched.
var RequiredTools = []string{
	"arch-chroot",
	"bash",
	"blkid",
	"curl",
	"genfstab",
	"hwclock",
	"lsblk",
	"mkfs.vfat",
	"mount",
	"pacman",
	"pacstrap",
	"sgdisk",
	"systemctl",
	"systemd-firstboot",
	"umount",
	"zfs",
	"zgenhostid",
	"zpool",
}

type Host interface {
	Geteuid() int
	LookPath(name string) (string, error)
	UEFI() bool
}

// Check verifies privilege, firmware mode and tools, in that order, and
// stops at the first failure.
func Check(h Host, tools []string) error {
	if h.Geteuid() != 0 {
		return ErrNotRoot
	}
	if !h.UEFI() {
		return ErrNotUEFI
	}
	for _, t := range tools {
		if _, err := h.LookPath(t); err != nil {
			return &MissingToolError{Tool: t, Err: err}
		}
	}
	return nil
}
