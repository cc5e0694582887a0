// Package sysenv is the only place that reads process and host globals.
// Everything else receives these values through explicit interfaces.
package sysenv

import (
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/unix"
)

const efiVarsDir = "/sys/firmware/efi"

// Host is the live installer environment.
type Host struct{}

func New() *Host { return &Host{} }

func (h *Host) Geteuid() int { return unix.Geteuid() }

func (h *Host) LookPath(name string) (string, error) { return exec.LookPath(name) }

// UEFI reports whether the running system was booted through UEFI firmware.
func (h *Host) UEFI() bool {
	st, err := os.Stat(efiVarsDir)
	return err == nil && st.IsDir()
}

// Sync flushes filesystem buffers to disk.
func (h *Host) Sync() { unix.Sync() }

// Info describes the live system for the install log.
type Info struct {
	Hostname string
	Platform string
	Kernel   string
	Arch     string
}

func (h *Host) Info(ctx context.Context) (Info, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Hostname: hi.Hostname,
		Platform: strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion),
		Kernel:   hi.KernelVersion,
		Arch:     hi.KernelArch,
	}, nil
}

// MountsUnder returns mountpoints below prefix, deepest first.
func (h *Host) MountsUnder(ctx context.Context, prefix string) ([]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range parts {
		if strings.HasPrefix(p.Mountpoint, strings.TrimSuffix(prefix, "/")+"/") {
			out = append(out, p.Mountpoint)
		}
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out, nil
}
