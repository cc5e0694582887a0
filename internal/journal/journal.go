package journal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sabitm/sail/internal/fsatomic"
)

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusError   = "error"
)

type Step struct {
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Status     string     `json:"status"` // pending|running|ok|error
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Err        string     `json:"err,omitempty"`
}

type Run struct {
	ID         string     `json:"id"`
	Disk       string     `json:"disk"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Steps      []Step     `json:"steps"`
	OK         bool       `json:"ok"`
	Error      string     `json:"error,omitempty"`
}

// Journal persists a Run to <dir>/<id>.json after every transition.
// An empty dir keeps the run in memory only.
type Journal struct {
	mu  sync.Mutex
	dir string
	run Run
	now func() time.Time
}

func New(dir, disk string, steps []Step) *Journal {
	j := &Journal{dir: dir, now: time.Now}
	j.run = Run{
		ID:        uuid.NewString(),
		Disk:      disk,
		StartedAt: j.now().UTC(),
		Steps:     make([]Step, len(steps)),
	}
	for i, s := range steps {
		s.Status = StatusPending
		j.run.Steps[i] = s
	}
	return j
}

func (j *Journal) ID() string { return j.run.ID }

// Path is where the journal is written, or "" when in memory only.
func (j *Journal) Path() string {
	if j.dir == "" {
		return ""
	}
	return filepath.Join(j.dir, j.run.ID+".json")
}

func (j *Journal) Start(ctx context.Context, name string) error {
	return j.update(ctx, name, func(s *Step, now time.Time) {
		s.Status = StatusRunning
		s.StartedAt = &now
	})
}

func (j *Journal) Finish(ctx context.Context, name string, err error) error {
	return j.update(ctx, name, func(s *Step, now time.Time) {
		s.FinishedAt = &now
		if err != nil {
			s.Status = StatusError
			s.Err = err.Error()
			return
		}
		s.Status = StatusOK
	})
}

// Close records the overall outcome.
func (j *Journal) Close(ctx context.Context, err error) error {
	j.mu.Lock()
	now := j.now().UTC()
	j.run.FinishedAt = &now
	j.run.OK = err == nil
	if err != nil {
		j.run.Error = err.Error()
	}
	j.mu.Unlock()
	return j.save(ctx)
}

// Snapshot returns a copy of the current run state.
func (j *Journal) Snapshot() Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	r := j.run
	r.Steps = append([]Step(nil), j.run.Steps...)
	return r
}

func (j *Journal) update(ctx context.Context, name string, fn func(*Step, time.Time)) error {
	j.mu.Lock()
	now := j.now().UTC()
	for i := range j.run.Steps {
		if j.run.Steps[i].Name == name {
			fn(&j.run.Steps[i], now)
			break
		}
	}
	j.mu.Unlock()
	return j.save(ctx)
}

func (j *Journal) save(ctx context.Context) error {
	if j.dir == "" {
		return nil
	}
	path := j.Path()
	return fsatomic.WithLock(path, func() error {
		return fsatomic.SaveJSON(ctx, path, j.Snapshot(), 0o600)
	})
}

// Load reads a previously written run. It takes the journal lock, so a
// reader never sees or removes a half-written save.
func Load(path string) (Run, bool, error) {
	var r Run
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return r, false, nil
	}
	var ok bool
	err := fsatomic.WithLock(path, func() error {
		var err error
		ok, err = fsatomic.LoadJSON(path, &r)
		return err
	})
	return r, ok, err
}
