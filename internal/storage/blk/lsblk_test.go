package blk

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/sabitm/sail/pkg/shell/shelltest"
)

const lsblkThreeParts = `{
   "blockdevices": [
      {"name":"sda", "path":"/dev/sda", "size":256060514304, "type":"disk", "rota":false, "partn":null,
         "children": [
            {"name":"sda1", "path":"/dev/sda1", "size":536870912, "type":"part", "rota":false, "partn":1},
            {"name":"sda2", "path":"/dev/sda2", "size":4294967296, "type":"part", "rota":false, "partn":2},
            {"name":"sda5", "path":"/dev/sda5", "size":1073741824, "type":"part", "rota":false, "partn":5}
         ]
      }
   ]
}`

// util-linux before PARTN existed.
const lsblkNoPartN = `{
   "blockdevices": [
      {"name":"nvme0n1", "path":"/dev/nvme0n1", "size":512110190592, "type":"disk", "rota":false,
         "children": [
            {"name":"nvme0n1p1", "path":"/dev/nvme0n1p1", "size":536870912, "type":"part", "rota":false},
            {"name":"nvme0n1p2", "path":"/dev/nvme0n1p2", "size":536870912, "type":"part", "rota":false}
         ]
      }
   ]
}`

func TestNormalizeSize(t *testing.T) {
	if got := normalizeSize(json.Number("8589934592")); got != 8589934592 {
		t.Fatalf("expected 8GiB, got %d", got)
	}
	if got := normalizeSize("1024"); got != 1024 {
		t.Fatalf("expected 1024, got %d", got)
	}
}

func TestDescribeUsesPartN(t *testing.T) {
	fake := &shelltest.Fake{}
	fake.Respond("lsblk", lsblkThreeParts)
	d, err := New(fake).Describe(context.Background(), "/dev/sda")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(d.Partitions) != 3 {
		t.Fatalf("expected 3 partitions, got %d", len(d.Partitions))
	}
	if d.NextPartition() != 6 {
		t.Fatalf("expected next partition 6 after a gap, got %d", d.NextPartition())
	}
	if d.SizeBytes != 256060514304 {
		t.Fatalf("unexpected size %d", d.SizeBytes)
	}
}

func TestDescribeFallsBackToName(t *testing.T) {
	fake := &shelltest.Fake{}
	fake.Respond("lsblk", lsblkNoPartN)
	parts, err := New(fake).Partitions(context.Background(), "/dev/nvme0n1")
	if err != nil {
		t.Fatalf("partitions: %v", err)
	}
	if len(parts) != 2 || parts[1].Number != 2 {
		t.Fatalf("unexpected partitions %+v", parts)
	}
}

func TestDescribeEmptyDisk(t *testing.T) {
	fake := &shelltest.Fake{}
	fake.Respond("lsblk", `{"blockdevices":[{"name":"sdb","path":"/dev/sdb","size":1000,"type":"disk"}]}`)
	d, err := New(fake).Describe(context.Background(), "/dev/sdb")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if d.NextPartition() != 1 {
		t.Fatalf("expected 1, got %d", d.NextPartition())
	}
}

func TestDescribeRejectsPartition(t *testing.T) {
	fake := &shelltest.Fake{}
	fake.Respond("lsblk", `{"blockdevices":[{"name":"sdb1","path":"/dev/sdb1","size":1000,"type":"part","partn":1}]}`)
	if _, err := New(fake).Describe(context.Background(), "/dev/sdb1"); !errors.Is(err, ErrNotDisk) {
		t.Fatalf("expected ErrNotDisk, got %v", err)
	}
}

func TestUUID(t *testing.T) {
	fake := &shelltest.Fake{}
	fake.Respond("blkid -s UUID -o value /dev/sda1", "ABCD-1234\n")
	fake.Respond("blkid", "")
	u, err := New(fake).UUID(context.Background(), "/dev/sda1")
	if err != nil || u != "ABCD-1234" {
		t.Fatalf("uuid=%q err=%v", u, err)
	}
	if _, err := New(fake).UUID(context.Background(), "/dev/sda9"); !errors.Is(err, ErrNoUUID) {
		t.Fatalf("expected ErrNoUUID, got %v", err)
	}
}

func TestWaitForNodes(t *testing.T) {
	fs := afero.NewMemMapFs()
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = afero.WriteFile(fs, "/dev/sdX-part1", nil, 0o600)
	}()
	if err := WaitForNodes(context.Background(), fs, 5*time.Second, "/dev/sdX-part1"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := WaitForNodes(context.Background(), fs, 200*time.Millisecond, "/dev/sdX-part9"); err == nil {
		t.Fatalf("expected timeout error")
	}
}
