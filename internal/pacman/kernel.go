package pacman

import "fmt"

const archiveBase = "https://archive.archlinux.org/packages"

// KernelSource says where the kernel package is installed from.
type KernelSource struct {
	Required string // version pinned by the zfs package, "" if unpinned
	Repo     string // version in the sync database
	Archive  bool
	URL      string
}

// ChooseKernel picks the repository kernel when it satisfies the zfs pin
// (or there is no pin) and the archived build of the pinned version otherwise.
func ChooseKernel(kernel, required, repo string) KernelSource {
	src := KernelSource{Required: required, Repo: repo}
	if required == "" || required == repo {
		return src
	}
	src.Archive = true
	src.URL = ArchiveURL(kernel, required)
	return src
}

// ArchiveURL is the Arch Linux Archive location of an x86_64 package build.
func ArchiveURL(pkg, version string) string {
	return fmt.Sprintf("%s/%c/%s/%s-%s-x86_64.pkg.tar.zst", archiveBase, pkg[0], pkg, pkg, version)
}
