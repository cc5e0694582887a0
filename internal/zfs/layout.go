package zfs

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	BootPool = "bpool"
	RootPool = "rpool"
)

// Prop is a single -o/-O property assignment.
type Prop struct {
	Key   string
	Value string
}

func (p Prop) String() string { return p.Key + "=" + p.Value }

// Op is one step of the dataset layout: create a dataset with properties,
// or mount an existing one.
type Op struct {
	Mount   bool
	Dataset string
	Props   []Prop
}

var (
	container = []Prop{{"canmount", "off"}, {"mountpoint", "none"}}
	noauto    = []Prop{{"canmount", "off"}}
	leaf      = []Prop{{"canmount", "on"}}
)

const (
	bootNS = "bpool/arch/BOOT"
	rootNS = "rpool/arch/ROOT"
	dataNS = "rpool/arch/DATA"
	dataDS = dataNS + "/default"
)

// BootPoolArgs returns the `zpool create` arguments for the boot pool.
// The feature set is restricted to what GRUB can read.
func BootPoolArgs(altroot, dev string) []string {
	return []string{
		"create",
		"-o", "compatibility=grub2",
		"-o", "ashift=12",
		"-o", "autotrim=on",
		"-O", "acltype=posixacl",
		"-O", "canmount=off",
		"-O", "compression=lz4",
		"-O", "devices=off",
		"-O", "normalization=formD",
		"-O", "relatime=on",
		"-O", "xattr=sa",
		"-O", "mountpoint=/boot",
		"-R", altroot,
		BootPool, dev,
	}
}

// RootPoolArgs returns the `zpool create` arguments for the root pool.
func RootPoolArgs(altroot, dev string) []string {
	return []string{
		"create",
		"-o", "ashift=12",
		"-o", "autotrim=on",
		"-R", altroot,
		"-O", "acltype=posixacl",
		"-O", "canmount=off",
		"-O", "compression=zstd",
		"-O", "dnodesize=auto",
		"-O", "normalization=formD",
		"-O", "relatime=on",
		"-O", "xattr=sa",
		"-O", "mountpoint=/",
		RootPool, dev,
	}
}

// Layout is the fixed boot/root/data hierarchy in creation order. Containers
// precede children and ROOT/default is mounted before BOOT/default so the
// boot mountpoint resolves inside the new root.
func Layout() []Op {
	ops := []Op{
		{Dataset: "rpool/arch", Props: container},
		{Dataset: "bpool/arch", Props: container},
		{Dataset: bootNS, Props: container},
		{Dataset: rootNS, Props: container},
		{Dataset: dataNS, Props: container},
		{Dataset: bootNS + "/default", Props: []Prop{{"mountpoint", "/boot"}, {"canmount", "noauto"}}},
		{Dataset: dataDS, Props: []Prop{{"mountpoint", "/"}, {"canmount", "off"}}},
		{Dataset: rootNS + "/default", Props: []Prop{{"mountpoint", "/"}, {"canmount", "noauto"}}},
		{Mount: true, Dataset: rootNS + "/default"},
		{Mount: true, Dataset: bootNS + "/default"},
	}
	for _, d := range []string{"usr", "var", "var/lib"} {
		ops = append(ops, Op{Dataset: path.Join(dataDS, d), Props: noauto})
	}
	for _, d := range []string{"home", "root", "srv", "usr/local", "var/log", "var/spool"} {
		ops = append(ops, Op{Dataset: path.Join(dataDS, d), Props: leaf})
	}
	return ops
}

// DefaultOptional are application datasets created under DATA/default.
var DefaultOptional = []string{
	"var/games",
	"var/www",
	"var/lib/AccountsService",
	"var/lib/docker",
	"var/lib/nfs",
	"var/lib/lxc",
	"var/lib/libvirt",
}

var ErrBadDataset = errors.New("invalid dataset path")

// CheckRelative rejects dataset paths that are empty, absolute or carry "."
// or ".." components, so the result stays below DATA/default.
func CheckRelative(rel string) error {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("%w: %q", ErrBadDataset, rel)
	}
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrBadDataset, rel)
		}
	}
	return nil
}

// Optional returns create ops for application datasets relative to
// DATA/default, e.g. "var/lib/docker".
func Optional(rel []string) ([]Op, error) {
	ops := make([]Op, 0, len(rel))
	for _, r := range rel {
		if err := CheckRelative(r); err != nil {
			return nil, err
		}
		ops = append(ops, Op{Dataset: path.Join(dataDS, r), Props: leaf})
	}
	return ops, nil
}

// Args returns the `zfs` arguments for op.
func (op Op) Args() []string {
	if op.Mount {
		return []string{"mount", op.Dataset}
	}
	args := []string{"create"}
	for _, p := range op.Props {
		args = append(args, "-o", p.String())
	}
	return append(args, op.Dataset)
}

// InstallSnapshots are the recursive clean-install restore points.
var InstallSnapshots = []string{"rpool/arch@install", "bpool/arch@install"}
