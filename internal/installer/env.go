package installer

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sabitm/sail/internal/metrics"
	"github.com/sabitm/sail/internal/storage/blk"
	"github.com/sabitm/sail/internal/zfs"
	"github.com/sabitm/sail/pkg/shell"
)

// Devices is the block-device access the pipeline needs after the target
// has been described.
type Devices interface {
	Describe(ctx context.Context, disk string) (blk.Disk, error)
	UUID(ctx context.Context, dev string) (string, error)
}

// Mounts lists active mountpoints.
type Mounts interface {
	MountsUnder(ctx context.Context, prefix string) ([]string, error)
}

// Env carries every external capability a stage touches. Stages never
// read process globals directly. Sync flushes filesystem buffers before
// the install snapshot, Out receives stage announcements (normally
// stderr) and LogPath, when set, is the host install log copied into the
// target.
type Env struct {
	Runner  shell.Runner
	Fs      afero.Fs
	Devices Devices
	Modules zfs.ModuleLoader
	Mounts  Mounts
	Sync    func()
	Metrics *metrics.Metrics
	Log     zerolog.Logger
	Out     io.Writer
	LogPath string
}
