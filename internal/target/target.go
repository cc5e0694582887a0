package target

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/sabitm/sail/internal/storage/blk"
	"github.com/sabitm/sail/pkg/validate"
)

var (
	ErrNotBlockDevice = errors.New("not a block device")
	ErrKernelVariant  = errors.New("unknown kernel variant")
	ErrZFSMode        = errors.New("unknown zfs packaging mode")
	ErrStorageClass   = errors.New("unknown storage class")
)

type KernelVariant string

const (
	KernelDefault  KernelVariant = "default"
	KernelLTS      KernelVariant = "lts"
	KernelZen      KernelVariant = "zen"
	KernelHardened KernelVariant = "hardened"
)

// Package is the pacman package name of the kernel.
func (k KernelVariant) Package() (string, error) {
	switch k {
	case KernelDefault:
		return "linux", nil
	case KernelLTS:
		return "linux-lts", nil
	case KernelZen:
		return "linux-zen", nil
	case KernelHardened:
		return "linux-hardened", nil
	}
	return "", fmt.Errorf("%w: %q", ErrKernelVariant, string(k))
}

type ZFSMode string

const (
	ZFSPrebuilt ZFSMode = "prebuilt"
	ZFSDKMS     ZFSMode = "dkms"
)

type StorageClass string

const (
	StorageSSD StorageClass = "ssd"
	StorageHDD StorageClass = "hdd"
)

// Params are the validated-on-construction inputs of a Descriptor.
type Params struct {
	Kernel       KernelVariant
	ZFS          ZFSMode
	Storage      StorageClass
	Disk         string
	ESPSize      string
	BootPoolSize string
}

// Probe is the block-device access a Descriptor needs.
type Probe interface {
	IsBlockDevice(path string) (bool, error)
	Partitions(ctx context.Context, disk string) ([]blk.Partition, error)
}

// Descriptor describes the install target. It is immutable after New.
type Descriptor struct {
	p        Params
	kernel   string
	zfs      string
	nextPart int
}

func New(ctx context.Context, probe Probe, p Params) (*Descriptor, error) {
	kernel, err := p.Kernel.Package()
	if err != nil {
		return nil, err
	}
	var zfs string
	switch p.ZFS {
	case ZFSPrebuilt:
		zfs = "zfs-" + kernel
	case ZFSDKMS:
		zfs = "zfs-dkms"
	default:
		return nil, fmt.Errorf("%w: %q", ErrZFSMode, string(p.ZFS))
	}
	if p.Storage != StorageSSD && p.Storage != StorageHDD {
		return nil, fmt.Errorf("%w: %q", ErrStorageClass, string(p.Storage))
	}
	for _, s := range []string{p.ESPSize, p.BootPoolSize} {
		if err := validate.Size(s); err != nil {
			return nil, fmt.Errorf("%w %q (want <n>K|M|G|T|P)", err, s)
		}
	}

	ok, err := probe.IsBlockDevice(p.Disk)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p.Disk, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBlockDevice, p.Disk)
	}
	parts, err := probe.Partitions(ctx, p.Disk)
	if err != nil {
		return nil, fmt.Errorf("read partition table of %s: %w", p.Disk, err)
	}

	return &Descriptor{
		p:        p,
		kernel:   kernel,
		zfs:      zfs,
		nextPart: blk.Disk{Partitions: parts}.NextPartition(),
	}, nil
}

func (d *Descriptor) Disk() string         { return d.p.Disk }
func (d *Descriptor) ESPSize() string      { return d.p.ESPSize }
func (d *Descriptor) BootPoolSize() string { return d.p.BootPoolSize }
func (d *Descriptor) Storage() StorageClass {
	return d.p.Storage
}
func (d *Descriptor) SSD() bool { return d.p.Storage == StorageSSD }

// Kernel is the kernel package name, e.g. linux-lts.
func (d *Descriptor) Kernel() string        { return d.kernel }
func (d *Descriptor) KernelHeaders() string { return d.kernel + "-headers" }

// ZFSPackage is zfs-<kernel> for prebuilt modules or zfs-dkms.
func (d *Descriptor) ZFSPackage() string { return d.zfs }

func (d *Descriptor) NextPartition() int   { return d.nextPart }
func (d *Descriptor) EFIPartNum() int      { return d.nextPart }
func (d *Descriptor) BootPoolPartNum() int { return d.nextPart + 1 }
func (d *Descriptor) RootPoolPartNum() int { return d.nextPart + 2 }

func (d *Descriptor) EFIPartition() string      { return d.partPath(d.EFIPartNum()) }
func (d *Descriptor) BootPoolPartition() string { return d.partPath(d.BootPoolPartNum()) }
func (d *Descriptor) RootPoolPartition() string { return d.partPath(d.RootPoolPartNum()) }

// EFIName is the last path element of the EFI partition, used as its
// directory name under /boot/efis.
func (d *Descriptor) EFIName() string { return filepath.Base(d.EFIPartition()) }

// DiskDir is the directory holding the disk node, e.g. /dev/disk/by-id.
func (d *Descriptor) DiskDir() string  { return filepath.Dir(d.p.Disk) }
func (d *Descriptor) DiskName() string { return filepath.Base(d.p.Disk) }

func (d *Descriptor) partPath(n int) string {
	return d.p.Disk + "-part" + strconv.Itoa(n)
}
