package pacman

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sabitm/sail/pkg/shell/shelltest"
)

const zfsLinuxSi = `Repository      : archzfs
Name            : zfs-linux
Version         : 2.2.2_6.6.8.arch1.1-1
Description     : Kernel modules for the Zettabyte File System.
Architecture    : x86_64
URL             : https://openzfs.org/
Licenses        : CDDL
Groups          : archzfs-linux
Provides        : zfs  spl
Depends On      : zfs-utils=2.2.2  kmod  linux=6.6.8.arch1-1
Optional Deps   : None
Conflicts With  : zfs-dkms  spl-dkms
Replaces        : spl-linux
Download Size   : 1.26 MiB
Installed Size  : 5.66 MiB
Packager        : ArchZFS Build Bot <buildbot@archzfs.com>
Build Date      : Sat 30 Dec 2023 12:00:00 AM UTC
Validated By    : MD5 Sum  SHA-256 Sum  Signature

`

const linuxSi = `Repository      : core
Name            : linux
Version         : 6.6.10.arch1-1
Description     : The Linux kernel and modules
Architecture    : x86_64
URL             : https://github.com/archlinux/linux
Licenses        : GPL2
Groups          : None
Provides        : VIRTUALBOX-GUEST-MODULES  WIREGUARD-MODULE  KSMBD-MODULE
Depends On      : coreutils  kmod  initramfs
Optional Deps   : wireless-regdb: to set the correct wireless channels of your country [installed]
                  linux-firmware: firmware images needed for some devices [installed]
Conflicts With  : None
`

const zfsDkmsSi = `Repository      : archzfs
Name            : zfs-dkms
Version         : 2.2.2-1
Depends On      : zfs-utils=2.2.2  lsb-release  dkms
`

func TestParseInfo(t *testing.T) {
	info, err := ParseInfo([]byte(zfsLinuxSi))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.Name != "zfs-linux" || info.Version != "2.2.2_6.6.8.arch1.1-1" {
		t.Fatalf("unexpected header %+v", info)
	}
	v, ok := info.PinnedVersion("linux")
	if !ok || v != "6.6.8.arch1-1" {
		t.Fatalf("pinned linux: %q %v", v, ok)
	}
	if _, ok := info.PinnedVersion("linux-lts"); ok {
		t.Fatalf("linux-lts must not match the linux pin")
	}
}

func TestParseInfoContinuationLines(t *testing.T) {
	info, err := ParseInfo([]byte(linuxSi))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.Version != "6.6.10.arch1-1" {
		t.Fatalf("unexpected version %q", info.Version)
	}
	if len(info.Depends) != 3 {
		t.Fatalf("unexpected depends %v", info.Depends)
	}
}

func TestParseInfoEmpty(t *testing.T) {
	if _, err := ParseInfo([]byte("\n")); !errors.Is(err, ErrNoPackage) {
		t.Fatalf("expected ErrNoPackage, got %v", err)
	}
}

func TestDKMSHasNoKernelPin(t *testing.T) {
	info, err := ParseInfo([]byte(zfsDkmsSi))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := info.PinnedVersion("linux"); ok {
		t.Fatalf("dkms should not pin a kernel")
	}
}

func TestIndexInfo(t *testing.T) {
	fake := &shelltest.Fake{}
	fake.Respond("pacman -Si zfs-linux", zfsLinuxSi)
	fake.Respond("pacman -Si linux", linuxSi)
	x := NewIndex(fake)
	if err := x.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	zi, err := x.Info(context.Background(), "zfs-linux")
	if err != nil {
		t.Fatal(err)
	}
	li, err := x.Info(context.Background(), "linux")
	if err != nil {
		t.Fatal(err)
	}
	req, _ := zi.PinnedVersion("linux")
	if req == li.Version {
		t.Fatalf("fixture versions should differ")
	}
	if got := fake.Lines(); got[0] != "pacman -Sy" {
		t.Fatalf("unexpected first call %v", got)
	}
}

func TestChooseKernel(t *testing.T) {
	same := ChooseKernel("linux", "6.6.8.arch1-1", "6.6.8.arch1-1")
	if same.Archive || same.URL != "" {
		t.Fatalf("equal versions must install from repo: %+v", same)
	}
	diff := ChooseKernel("linux", "6.6.8.arch1-1", "6.6.10.arch1-1")
	if !diff.Archive {
		t.Fatalf("different versions must use archive")
	}
	want := "https://archive.archlinux.org/packages/l/linux/linux-6.6.8.arch1-1-x86_64.pkg.tar.zst"
	if diff.URL != want {
		t.Fatalf("url: want %s got %s", want, diff.URL)
	}
	if !strings.Contains(diff.URL, diff.Required) {
		t.Fatalf("url must embed required version")
	}
	if nopin := ChooseKernel("linux-zen", "", "6.6.10.zen1-1"); nopin.Archive {
		t.Fatalf("no pin must install from repo")
	}
	lts := ChooseKernel("linux-lts", "6.1.70-1", "6.1.71-1")
	if lts.URL != "https://archive.archlinux.org/packages/l/linux-lts/linux-lts-6.1.70-1-x86_64.pkg.tar.zst" {
		t.Fatalf("unexpected lts url %s", lts.URL)
	}
}

func TestPinPackages(t *testing.T) {
	conf := "[options]\n#IgnorePkg   =\n#IgnoreGroup =\n"
	got := PinPackages(conf, "linux", "linux-headers", "zfs-linux", "zfs-utils")
	if !strings.Contains(got, "\nIgnorePkg   = linux linux-headers zfs-linux zfs-utils\n") {
		t.Fatalf("unexpected conf:\n%s", got)
	}
	if !strings.Contains(got, "#IgnoreGroup") {
		t.Fatalf("other directives must be untouched")
	}

	bare := PinPackages("[options]\n", "linux")
	if !strings.HasSuffix(bare, "IgnorePkg = linux\n") {
		t.Fatalf("unexpected conf:\n%q", bare)
	}
}
