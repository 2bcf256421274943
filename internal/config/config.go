package config

import (
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrUnsupportedStrategy = errors.New("unsupported frame strategy")

// FrameStrategy selects how many frames may be in flight at once.
type FrameStrategy int

const (
	// SingleBlocking drains the queue at the end of every frame, so at most
	// one frame is ever in flight.
	SingleBlocking FrameStrategy = iota
	// Pipelined keeps several frames in flight with per-frame semaphores
	// and fences.
	Pipelined
)

var strategyNames = map[FrameStrategy]string{
	SingleBlocking: "single-blocking",
	Pipelined:      "pipelined",
}

func (s FrameStrategy) String() string {
	name, ok := strategyNames[s]
	if !ok {
		return "unknown"
	}
	return name
}

func ParseFrameStrategy(s string) (FrameStrategy, error) {
	for strategy, name := range strategyNames {
		if strings.EqualFold(s, name) {
			return strategy, nil
		}
	}
	return 0, errors.Newf("unknown frame strategy %q", s)
}

type Config struct {
	Title  string
	Width  int
	Height int

	// Validation enables the Khronos validation layer and routes its
	// messages to the logger.
	Validation bool

	Strategy FrameStrategy

	// TimeStep is added to the animation parameter after every frame.
	TimeStep float32
	// MaxFrames stops the loop after that many presented frames. Zero means
	// run until a quit event arrives.
	MaxFrames int

	LogLevel slog.Level
}

func Default() Config {
	return Config{
		Title:    "Project",
		Width:    800,
		Height:   600,
		Strategy: SingleBlocking,
		TimeStep: 0.1,
		LogLevel: slog.LevelInfo,
	}
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Width, c.Height)
	}

	if c.MaxFrames < 0 {
		return errors.Newf("frame limit must not be negative, got %d", c.MaxFrames)
	}

	if c.Strategy != SingleBlocking {
		return errors.Wrapf(ErrUnsupportedStrategy, "strategy %s", c.Strategy)
	}

	return nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	if err != nil {
		return level, errors.Wrapf(err, "parse log level %q", s)
	}
	return level, nil
}
