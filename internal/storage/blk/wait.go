package blk

import (
	"context"
	"fmt"
	"time"

	"github.com/siderolabs/go-retry/retry"
	"github.com/spf13/afero"
)

// WaitForNodes polls until every path exists on fs or timeout elapses.
func WaitForNodes(ctx context.Context, fs afero.Fs, timeout time.Duration, paths ...string) error {
	interval := 100 * time.Millisecond
	if timeout < interval {
		interval = timeout
	}
	return retry.Constant(timeout, retry.WithUnits(interval)).RetryWithContext(ctx, func(ctx context.Context) error {
		for _, p := range paths {
			ok, err := afero.Exists(fs, p)
			if err != nil {
				return retry.UnexpectedError(err)
			}
			if !ok {
				return retry.ExpectedError(fmt.Errorf("device node %s not present", p))
			}
		}
		return nil
	})
}
