package harness

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"

	"github.com/vkngwrapper/swapchain-harness/internal/config"
)

type PresentStatus int

const (
	PresentOptimal PresentStatus = iota
	// PresentSuboptimal means the image was shown but the swapchain no
	// longer matches the surface exactly. The loop keeps going.
	PresentSuboptimal
)

// FrameStages are the GPU-facing steps of one frame, called by the
// Sequencer in declaration order. EndFrame is called once for every
// successful BeginFrame, including on the error path. signalPending is set
// when an image was acquired but no submission waited on its semaphore.
type FrameStages interface {
	BeginFrame() error
	AcquireImage() (int, error)
	Record(imageIndex int, clear mgl32.Vec4) error
	Submit() error
	Present(imageIndex int) (PresentStatus, error)
	WaitIdle() error
	EndFrame(signalPending bool) error
}

// EventSource drains pending platform events and reports whether a quit
// was among them.
type EventSource interface {
	PollQuit() bool
}

type FrameStats struct {
	Frames     int
	Suboptimal int
	Elapsed    time.Duration
}

// Sequencer drives the frame loop one frame at a time: every frame ends
// with a full queue drain before the next one is acquired.
type Sequencer struct {
	stages    FrameStages
	events    EventSource
	step      float32
	maxFrames int

	t     float32
	stats FrameStats
	now   func() time.Duration
}

func NewSequencer(stages FrameStages, events EventSource, cfg config.Config) (*Sequencer, error) {
	if cfg.Strategy != config.SingleBlocking {
		return nil, errors.Wrapf(config.ErrUnsupportedStrategy, "sequencer strategy %s", cfg.Strategy)
	}

	return &Sequencer{
		stages:    stages,
		events:    events,
		step:      cfg.TimeStep,
		maxFrames: cfg.MaxFrames,
		now:       hrtime.Now,
	}, nil
}

// ClearColor is the background for animation time t. Only red moves.
func ClearColor(t float32) mgl32.Vec4 {
	return mgl32.Vec4{t * 0.01, 0.2, 0.2, 0.2}
}

// Time is the current animation parameter.
func (s *Sequencer) Time() float32 {
	return s.t
}

func (s *Sequencer) Stats() FrameStats {
	return s.stats
}

// Run loops until a quit event, context cancellation or the frame limit is
// observed at the top of an iteration. A frame already started always
// finishes. Any stage error ends the loop and is returned.
func (s *Sequencer) Run(ctx context.Context) error {
	start := s.now()
	defer func() {
		s.stats.Elapsed = s.now() - start
		s.logStats()
	}()

	for {
		if s.shouldStop(ctx) {
			return nil
		}

		err := s.frame()
		if err != nil {
			return errors.Wrapf(err, "frame %d", s.stats.Frames)
		}

		s.stats.Frames++
		s.t += s.step
	}
}

func (s *Sequencer) shouldStop(ctx context.Context) bool {
	if s.events.PollQuit() {
		Logger().Info("quit requested", "frames", s.stats.Frames)
		return true
	}

	if ctx.Err() != nil {
		Logger().Info("context done", "frames", s.stats.Frames, "cause", ctx.Err())
		return true
	}

	return s.maxFrames > 0 && s.stats.Frames >= s.maxFrames
}

func (s *Sequencer) frame() (err error) {
	err = s.stages.BeginFrame()
	if err != nil {
		return err
	}

	acquired, submitted, drained := false, false, false
	defer func() {
		// Don't release the semaphore under a submission that may still
		// be waiting on it.
		if err != nil && submitted && !drained {
			waitErr := s.stages.WaitIdle()
			if waitErr != nil {
				err = errors.CombineErrors(err, waitErr)
			}
		}

		endErr := s.stages.EndFrame(acquired && !submitted)
		if endErr != nil {
			err = errors.CombineErrors(err, endErr)
		}
	}()

	imageIndex, err := s.stages.AcquireImage()
	if err != nil {
		return err
	}
	acquired = true

	err = s.stages.Record(imageIndex, ClearColor(s.t))
	if err != nil {
		return err
	}

	err = s.stages.Submit()
	if err != nil {
		return err
	}
	submitted = true

	status, err := s.stages.Present(imageIndex)
	if err != nil {
		return err
	}
	if status == PresentSuboptimal {
		s.stats.Suboptimal++
		Logger().Warn("suboptimal present", "image", imageIndex, "frame", s.stats.Frames)
	}

	drained = true
	return s.stages.WaitIdle()
}

func (s *Sequencer) logStats() {
	var avg time.Duration
	if s.stats.Frames > 0 {
		avg = s.stats.Elapsed / time.Duration(s.stats.Frames)
	}

	Logger().Info("frame loop finished",
		"frames", s.stats.Frames,
		"suboptimal", s.stats.Suboptimal,
		"elapsed", s.stats.Elapsed,
		"avg_frame", avg)
}
