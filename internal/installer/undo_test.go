package installer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestUndoDisabledRecordsNothing(t *testing.T) {
	u := newUndoStack(false)
	u.push("noop", func(context.Context) error { return nil })
	if u.len() != 0 {
		t.Fatalf("disabled stack recorded %d items", u.len())
	}
}

func TestUndoUnwindsNewestFirstAndAggregates(t *testing.T) {
	u := newUndoStack(true)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		u.push(name, func(context.Context) error {
			order = append(order, name)
			if name != "b" {
				return errors.New(name + " failed")
			}
			return nil
		})
	}
	err := u.unwind(context.Background(), zerolog.Nop())
	if strings.Join(order, "") != "cba" {
		t.Fatalf("unexpected order %v", order)
	}
	if err == nil || !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "c failed") {
		t.Fatalf("errors not aggregated: %v", err)
	}
	if u.len() != 0 {
		t.Fatalf("stack not cleared")
	}
	if err := u.unwind(context.Background(), zerolog.Nop()); err != nil {
		t.Fatalf("empty unwind: %v", err)
	}
}

func TestUndoRunsAfterCancellation(t *testing.T) {
	u := newUndoStack(true)
	ran := false
	u.push("x", func(ctx context.Context) error {
		ran = ctx.Err() == nil
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := u.unwind(ctx, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatalf("compensation saw a cancelled context")
	}
}
