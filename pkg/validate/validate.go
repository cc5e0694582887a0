package validate

import (
	"errors"
	"regexp"
	"strconv"
)

var (
	reSize     = regexp.MustCompile(`^([0-9]+)([KMGTP])$`)
	reHostname = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
	reScript   = regexp.MustCompile(`^[a-z0-9_]+(\.sh)?$`)

	ErrBadSize     = errors.New("invalid partition size")
	ErrBadHostname = errors.New("invalid hostname")
	ErrBadScript   = errors.New("invalid script name")
)

// Size accepts a positive integer followed by one of K, M, G, T, P.
func Size(s string) error {
	m := reSize.FindStringSubmatch(s)
	if m == nil {
		return ErrBadSize
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || n == 0 {
		return ErrBadSize
	}
	return nil
}

func Hostname(s string) error {
	if !reHostname.MatchString(s) {
		return ErrBadHostname
	}
	return nil
}

func ScriptName(s string) error {
	if !reScript.MatchString(s) {
		return ErrBadScript
	}
	return nil
}
