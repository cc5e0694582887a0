package templates

import (
	"gopkg.in/yaml.v3"
)

type ZreplConfig struct {
	Jobs []ZreplJob `yaml:"jobs"`
}

type ZreplJob struct {
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	Filesystems  map[string]bool   `yaml:"filesystems"`
	Snapshotting ZreplSnapshotting `yaml:"snapshotting"`
	Pruning      ZreplPruning      `yaml:"pruning"`
}

type ZreplSnapshotting struct {
	Type     string `yaml:"type"`
	Interval string `yaml:"interval"`
	Prefix   string `yaml:"prefix"`
}

type ZreplPruning struct {
	Keep []ZreplKeep `yaml:"keep"`
}

type ZreplKeep struct {
	Type   string `yaml:"type"`
	Grid   string `yaml:"grid,omitempty"`
	Regex  string `yaml:"regex"`
	Negate bool   `yaml:"negate,omitempty"`
}

const zreplPrefix = "zrepl_"

// DefaultZrepl snapshots the boot and root datasets every 15 minutes and
// keeps everything for an hour, hourly for 12 hours and daily for a week.
// Snapshots not made by zrepl are never pruned.
func DefaultZrepl() ZreplConfig {
	return ZreplConfig{Jobs: []ZreplJob{{
		Name: "snapjob",
		Type: "snap",
		Filesystems: map[string]bool{
			"bpool/arch/BOOT":         true,
			"bpool/arch/BOOT/default": true,
			"rpool/arch/DATA<":        true,
			"rpool/arch/ROOT":         true,
			"rpool/arch/ROOT/default": true,
		},
		Snapshotting: ZreplSnapshotting{Type: "periodic", Interval: "15m", Prefix: zreplPrefix},
		Pruning: ZreplPruning{Keep: []ZreplKeep{
			{Type: "grid", Grid: "1x1h(keep=all) | 12x1h | 7x1d", Regex: "^" + zreplPrefix + ".*"},
			{Type: "regex", Negate: true, Regex: "^" + zreplPrefix + ".*"},
		}},
	}}}
}

func (c ZreplConfig) Render() ([]byte, error) {
	return yaml.Marshal(c)
}
