package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sabitm/sail/internal/zfs"
	"github.com/sabitm/sail/pkg/validate"
)

var ErrInvalid = errors.New("invalid configuration")

const schema = `{
  "type": "object",
  "required": ["kernel_variant", "zfs_mode", "storage_class", "disk", "esp_size", "bpool_size"],
  "properties": {
    "kernel_variant": {"enum": ["default", "lts", "zen", "hardened"]},
    "zfs_mode":       {"enum": ["prebuilt", "dkms"]},
    "storage_class":  {"enum": ["ssd", "hdd"]},
    "disk":           {"type": "string", "pattern": "^/"},
    "esp_size":       {"type": "string", "pattern": "^[0-9]*[1-9][0-9]*[KMGTP]$"},
    "bpool_size":     {"type": "string", "pattern": "^[0-9]*[1-9][0-9]*[KMGTP]$"},
    "hostname":       {"type": "string"},
    "timezone":       {"type": "string", "minLength": 1},
    "locale":         {"type": "string", "minLength": 1},
    "keymap":         {"type": "string", "minLength": 1},
    "root_password":  {"type": "string", "minLength": 1},
    "mount_root":     {"type": "string", "pattern": "^/."},
    "post_scripts_dir": {"type": "string", "pattern": "^/"},
    "aur_packages":   {"type": ["array", "string"], "items": {"type": "string", "pattern": "^[a-z0-9@._+-]+$"}},
    "extra_datasets": {"type": ["array", "string"], "items": {"type": "string", "pattern": "^[A-Za-z0-9._-]+(/[A-Za-z0-9._-]+)*$"}},
    "rollback":       {"type": ["boolean", "string"]},
    "device_timeout": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"},
    "log_level":      {"enum": ["trace", "debug", "info", "warn", "error"]},
    "archzfs": {
      "type": "object",
      "properties": {
        "key_url": {"type": "string", "pattern": "^https?://"},
        "key_id":  {"type": "string", "pattern": "^[0-9A-Fa-f]{8,40}$"},
        "servers": {"type": ["array", "string"], "minItems": 1, "items": {"type": "string"}}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schema)

// validateSettings checks the merged settings and reports every violation.
func validateSettings(settings map[string]any) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	var msgs []string
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	msgs = append(msgs, checkValues(settings)...)
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// checkValues applies the checks shared with the installer that a schema
// pattern would only duplicate.
func checkValues(settings map[string]any) []string {
	var msgs []string
	if h, ok := settings["hostname"].(string); ok {
		if err := validate.Hostname(h); err != nil {
			msgs = append(msgs, fmt.Sprintf("hostname: %v: %q", err, h))
		}
	}
	for _, rel := range stringList(settings["extra_datasets"]) {
		if err := zfs.CheckRelative(rel); err != nil {
			msgs = append(msgs, fmt.Sprintf("extra_datasets: %v", err))
		}
	}
	return msgs
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Fields(l)
	}
	return nil
}
