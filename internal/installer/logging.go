package installer

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const logName = "install.log"

// OpenLog creates the install log under dir, falling back to the working
// directory when dir is not writable. The file receives every record at
// level; console only sees warnings and errors since stage progress is
// printed separately.
func OpenLog(dir string, level zerolog.Level, console io.Writer) (zerolog.Logger, *os.File, error) {
	f, err := openAppend(filepath.Join(dir, logName))
	if err != nil {
		f, err = openAppend("sail-install.log")
		if err != nil {
			return zerolog.Nop(), nil, err
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}
	w := zerolog.MultiLevelWriter(
		&zerolog.FilteredLevelWriter{Writer: zerolog.LevelWriterAdapter{Writer: cw}, Level: zerolog.WarnLevel},
		f,
	)
	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, f, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
