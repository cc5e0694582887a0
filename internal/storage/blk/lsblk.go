package blk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sabitm/sail/pkg/shell"
)

var (
	ErrNotDisk  = errors.New("not a whole disk")
	ErrNoUUID   = errors.New("no filesystem uuid")
	reTrailingN = regexp.MustCompile(`([0-9]+)$`)
)

// Lsblk reads block device state through lsblk and blkid.
type Lsblk struct {
	Runner shell.Runner
}

func New(r shell.Runner) *Lsblk { return &Lsblk{Runner: r} }

// Describe returns the disk at path with its partition table.
func (l *Lsblk) Describe(ctx context.Context, path string) (Disk, error) {
	args := []string{"--bytes", "--json", "-o", "NAME,PATH,SIZE,TYPE,ROTA,PARTN", path}
	res, err := l.Runner.Run(ctx, shell.Command{Name: "lsblk", Args: args})
	if err != nil {
		return Disk{}, err
	}
	var tree rawTree
	if err := json.Unmarshal(res.Stdout, &tree); err != nil {
		return Disk{}, fmt.Errorf("lsblk json: %w", err)
	}
	return parseDisk(tree, path)
}

// Partitions returns the partition table of the disk at path.
func (l *Lsblk) Partitions(ctx context.Context, path string) ([]Partition, error) {
	d, err := l.Describe(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.Partitions, nil
}

// UUID returns the filesystem UUID of dev.
func (l *Lsblk) UUID(ctx context.Context, dev string) (string, error) {
	out, err := shell.Output(ctx, l.Runner, "blkid", "-s", "UUID", "-o", "value", dev)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("%w: %s", ErrNoUUID, dev)
	}
	return out, nil
}

// IsBlockDevice reports whether path exists and is a block device node.
// Symlinks such as /dev/disk/by-id entries are followed.
func (l *Lsblk) IsBlockDevice(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, nil
		}
		return false, err
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK, nil
}

func parseDisk(tree rawTree, path string) (Disk, error) {
	if len(tree.Blockdevices) == 0 {
		return Disk{}, fmt.Errorf("lsblk: no device for %s", path)
	}
	root := tree.Blockdevices[0]
	if root.Type != "disk" {
		return Disk{}, fmt.Errorf("%w: %s is %q", ErrNotDisk, path, root.Type)
	}
	d := Disk{
		Path:      firstNonEmpty(root.Path, path),
		SizeBytes: normalizeSize(root.Size),
		Rota:      root.Rota,
	}
	for _, c := range root.Children {
		if c.Type != "part" {
			continue
		}
		n := partNumber(c)
		if n <= 0 {
			continue
		}
		d.Partitions = append(d.Partitions, Partition{
			Number:    n,
			Path:      firstNonEmpty(c.Path, "/dev/"+c.Name),
			SizeBytes: normalizeSize(c.Size),
		})
	}
	return d, nil
}

// partNumber prefers lsblk's PARTN column and falls back to the kernel name
// suffix (sda3, nvme0n1p3) on util-linux releases without it.
func partNumber(d rawDevice) int {
	if d.PartN != nil {
		return *d.PartN
	}
	m := reTrailingN.FindStringSubmatch(d.Name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeSize(v any) uint64 {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case int64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case json.Number:
		n, _ := t.Int64()
		if n < 0 {
			return 0
		}
		return uint64(n)
	case string:
		n, _ := strconv.ParseUint(t, 10, 64)
		return n
	default:
		return 0
	}
}
