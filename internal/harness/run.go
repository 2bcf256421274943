package harness

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core"

	"github.com/vkngwrapper/swapchain-harness/internal/config"
)

// Run sets up a Context for the window, drives the frame loop until it stops
// and tears the Context down again. A teardown failure is reported alongside
// any loop error.
func Run(ctx context.Context, loader core.Loader, window Window, events EventSource, cfg config.Config) (stats FrameStats, err error) {
	c, err := Setup(loader, window, cfg)
	if err != nil {
		return stats, errors.Wrap(err, "setup")
	}
	defer func() {
		destroyErr := c.Destroy()
		if destroyErr != nil {
			err = errors.CombineErrors(err, errors.Wrap(destroyErr, "teardown"))
		}
	}()

	seq, err := NewSequencer(NewFrameStages(c), events, cfg)
	if err != nil {
		return stats, err
	}

	err = seq.Run(ctx)
	return seq.Stats(), err
}
