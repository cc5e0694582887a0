package pacman

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var ErrNoPackage = errors.New("package not found in sync databases")

// Info is the subset of `pacman -Si` output the installer reads.
type Info struct {
	Name    string
	Version string
	Depends []string
}

// ParseInfo parses `pacman -Si` output. Only the first package block is
// read; continuation lines (indented values) extend the previous field.
func ParseInfo(out []byte) (Info, error) {
	fields := map[string]string{}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if len(fields) > 0 {
				break
			}
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && last != "" {
			fields[last] += " " + strings.TrimSpace(line)
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		last = strings.TrimSpace(k)
		fields[last] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return Info{}, err
	}
	info := Info{Name: fields["Name"], Version: fields["Version"]}
	if info.Name == "" {
		return Info{}, ErrNoPackage
	}
	if deps := fields["Depends On"]; deps != "" && deps != "None" {
		info.Depends = strings.Fields(deps)
	}
	return info, nil
}

// PinnedVersion returns the exact version pkg depends on through a
// `<dep>=<version>` entry, or false when the dependency is unversioned
// or absent.
func (i Info) PinnedVersion(dep string) (string, bool) {
	for _, d := range i.Depends {
		name, ver, ok := strings.Cut(d, "=")
		if !ok || name != dep || ver == "" {
			continue
		}
		return ver, true
	}
	return "", false
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s", i.Name, i.Version)
}
