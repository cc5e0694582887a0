package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/sabitm/sail/internal/target"
	"github.com/sabitm/sail/internal/zfs"
)

// DefaultPath is where `sail start` looks for its configuration.
const DefaultPath = "sail.toml"

// ErrTemplateWritten is returned when no configuration existed and a
// template was written in its place. The operator must edit it first.
var ErrTemplateWritten = errors.New("configuration template written")

type Archzfs struct {
	KeyURL  string   `mapstructure:"key_url"`
	KeyID   string   `mapstructure:"key_id"`
	Servers []string `mapstructure:"servers"`
}

type Config struct {
	KernelVariant string `mapstructure:"kernel_variant"`
	ZFSMode       string `mapstructure:"zfs_mode"`
	StorageClass  string `mapstructure:"storage_class"`
	Disk          string `mapstructure:"disk"`
	ESPSize       string `mapstructure:"esp_size"`
	BootPoolSize  string `mapstructure:"bpool_size"`

	Hostname     string `mapstructure:"hostname"`
	Timezone     string `mapstructure:"timezone"`
	Locale       string `mapstructure:"locale"`
	Keymap       string `mapstructure:"keymap"`
	RootPassword string `mapstructure:"root_password"`

	MountRoot      string   `mapstructure:"mount_root"`
	PostScriptsDir string   `mapstructure:"post_scripts_dir"`
	AURPackages    []string `mapstructure:"aur_packages"`
	ExtraDatasets  []string `mapstructure:"extra_datasets"`

	Rollback      bool          `mapstructure:"rollback"`
	DeviceTimeout time.Duration `mapstructure:"device_timeout"`
	JournalDir    string        `mapstructure:"journal_dir"`
	MetricsFile   string        `mapstructure:"metrics_file"`
	LogLevel      string        `mapstructure:"log_level"`

	Archzfs Archzfs `mapstructure:"archzfs"`
}

var defaults = map[string]any{
	"kernel_variant":   string(target.KernelDefault),
	"zfs_mode":         string(target.ZFSPrebuilt),
	"storage_class":    string(target.StorageSSD),
	"disk":             "/dev/disk/by-id/CHANGE-ME",
	"esp_size":         "1G",
	"bpool_size":       "4G",
	"hostname":         "lbox",
	"timezone":         "UTC",
	"locale":           "en_US.UTF-8",
	"keymap":           "us",
	"root_password":    "changeme",
	"mount_root":       "/mnt",
	"post_scripts_dir": "/root/post_install_scripts",
	"aur_packages":     []string{"paru-bin", "bieaz", "rozb3-pac", "zrepl-bin"},
	"extra_datasets":   zfs.DefaultOptional,
	"rollback":         false,
	"device_timeout":   "10s",
	"journal_dir":      "/var/log/sail",
	"metrics_file":     "/var/log/sail/install.prom",
	"log_level":        "info",
	"archzfs.key_url":  "https://archzfs.com/archzfs.gpg",
	"archzfs.key_id":   "DDF7DB817396A49B2A2723F7403BD972F75D9D76",
	"archzfs.servers": []string{
		"https://archzfs.com/$repo/$arch",
		"https://mirror.sum7.eu/archlinux/archzfs/$repo/$arch",
		"https://mirror.biocrafting.net/archlinux/archzfs/$repo/$arch",
	},
}

func newViper(fs afero.Fs, path string) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("SAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration used when a key is absent.
func Default() Config {
	var c Config
	_ = newViper(afero.NewMemMapFs(), DefaultPath).Unmarshal(&c)
	return c
}

// Load reads path from the host filesystem.
func Load(path string) (Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads path from fs, applies SAIL_* environment overrides and
// validates the result. A missing file is replaced by a template and
// ErrTemplateWritten is returned.
func LoadFs(fs afero.Fs, path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	v := newViper(fs, path)

	ok, err := afero.Exists(fs, path)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		if err := v.SafeWriteConfigAs(path); err != nil {
			return Config{}, fmt.Errorf("write template %s: %w", path, err)
		}
		return Config{}, fmt.Errorf("%w to %s, edit it before running again", ErrTemplateWritten, path)
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := validateSettings(v.AllSettings()); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, nil
}

// Level is the parsed log level, info when unparsable.
func (c Config) Level() zerolog.Level {
	if l, err := zerolog.ParseLevel(c.LogLevel); err == nil && c.LogLevel != "" {
		return l
	}
	return zerolog.InfoLevel
}

// TargetParams converts the disk section into descriptor inputs.
func (c Config) TargetParams() target.Params {
	return target.Params{
		Kernel:       target.KernelVariant(c.KernelVariant),
		ZFS:          target.ZFSMode(c.ZFSMode),
		Storage:      target.StorageClass(c.StorageClass),
		Disk:         c.Disk,
		ESPSize:      c.ESPSize,
		BootPoolSize: c.BootPoolSize,
	}
}
