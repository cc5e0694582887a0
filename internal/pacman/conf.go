package pacman

import (
	"regexp"
	"strings"
)

var reIgnorePkg = regexp.MustCompile(`(?m)^#\s*IgnorePkg`)

// PinPackages enables the IgnorePkg directive in pacman.conf and appends
// pkgs to it. A conf without any IgnorePkg line gets one appended.
func PinPackages(conf string, pkgs ...string) string {
	conf = reIgnorePkg.ReplaceAllString(conf, "IgnorePkg")
	lines := strings.Split(conf, "\n")
	found := false
	for i, l := range lines {
		if !strings.HasPrefix(l, "IgnorePkg") {
			continue
		}
		found = true
		lines[i] = strings.TrimRight(l, " \t") + " " + strings.Join(pkgs, " ")
	}
	if !found {
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		lines = append(lines, "IgnorePkg = "+strings.Join(pkgs, " "), "")
	}
	return strings.Join(lines, "\n")
}
