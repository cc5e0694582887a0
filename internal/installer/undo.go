package installer

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

type compensation struct {
	desc string
	fn   func(ctx context.Context) error
}

// undoStack records how to reverse each completed destructive action.
// Nothing is recorded when rollback is disabled.
type undoStack struct {
	enabled bool
	items   []compensation
}

func newUndoStack(enabled bool) *undoStack {
	return &undoStack{enabled: enabled}
}

func (u *undoStack) push(desc string, fn func(ctx context.Context) error) {
	if !u.enabled {
		return
	}
	u.items = append(u.items, compensation{desc: desc, fn: fn})
}

func (u *undoStack) len() int { return len(u.items) }

// unwind runs the compensations newest first. Every one is attempted; the
// failures are returned together.
func (u *undoStack) unwind(ctx context.Context, log zerolog.Logger) error {
	var result *multierror.Error
	for n := len(u.items) - 1; n >= 0; n-- {
		c := u.items[n]
		log.Info().Str("action", c.desc).Msg("rollback")
		if err := c.fn(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("action", c.desc).Msg("rollback step failed")
			result = multierror.Append(result, err)
		}
	}
	u.items = nil
	return result.ErrorOrNil()
}
