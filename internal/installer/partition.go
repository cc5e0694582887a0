package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/sabitm/sail/internal/storage/blk"
)

// minRootPool is the least space left for the root pool partition.
const minRootPool = 8 << 30

var ErrNoSpace = errors.New("not enough free space on disk")

type gptPart struct {
	num   int
	end   string
	code  string
	label string
}

func (i *Installer) partition(ctx context.Context) error {
	t := i.t
	disk, err := i.env.Devices.Describe(ctx, t.Disk())
	if err != nil {
		return fmt.Errorf("read %s: %w", t.Disk(), err)
	}
	i.step("%s: %s, %d existing partitions, first new partition is %d",
		t.Disk(), humanize.IBytes(disk.SizeBytes), len(disk.Partitions), t.NextPartition())
	if err := checkCapacity(disk, t.ESPSize(), t.BootPoolSize()); err != nil {
		return err
	}

	parts := []gptPart{
		{t.EFIPartNum(), "+" + t.ESPSize(), "EF00", "EFI system"},
		{t.BootPoolPartNum(), "+" + t.BootPoolSize(), "BE00", "boot pool"},
		{t.RootPoolPartNum(), "0", "BF00", "root pool"},
	}
	for _, p := range parts {
		i.step("create %s partition %d", p.label, p.num)
		err := i.run(ctx, "sgdisk",
			fmt.Sprintf("-n%d:0:%s", p.num, p.end),
			fmt.Sprintf("-t%d:%s", p.num, p.code),
			t.Disk())
		if err != nil {
			return fmt.Errorf("create %s partition: %w", p.label, err)
		}
		num := p.num
		i.undo.push(fmt.Sprintf("delete partition %d", num), func(ctx context.Context) error {
			return i.run(ctx, "sgdisk", fmt.Sprintf("-d%d", num), t.Disk())
		})
	}

	i.step("wait for partition device nodes")
	if err := blk.WaitForNodes(ctx, i.env.Fs, i.cfg.DeviceTimeout,
		t.EFIPartition(), t.BootPoolPartition(), t.RootPoolPartition()); err != nil {
		return fmt.Errorf("partition nodes: %w", err)
	}
	return nil
}

// checkCapacity fails when the unpartitioned space cannot hold the ESP, the
// boot pool and a minimal root pool. Disks of unknown size pass.
func checkCapacity(disk blk.Disk, espSize, bootSize string) error {
	if disk.SizeBytes == 0 {
		return nil
	}
	esp, err := humanize.ParseBytes(espSize + "iB")
	if err != nil {
		return fmt.Errorf("esp size %q: %w", espSize, err)
	}
	boot, err := humanize.ParseBytes(bootSize + "iB")
	if err != nil {
		return fmt.Errorf("boot pool size %q: %w", bootSize, err)
	}
	var used uint64
	for _, p := range disk.Partitions {
		used += p.SizeBytes
	}
	var free uint64
	if used < disk.SizeBytes {
		free = disk.SizeBytes - used
	}
	need := esp + boot + minRootPool
	if free < need {
		return fmt.Errorf("%w: %s free, %s needed", ErrNoSpace, humanize.IBytes(free), humanize.IBytes(need))
	}
	return nil
}
