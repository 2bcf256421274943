package config

import (
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, SingleBlocking, cfg.Strategy)
	require.Equal(t, float32(0.1), cfg.TimeStep)
	require.Zero(t, cfg.MaxFrames)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{name: "zero width", mutate: func(c *Config) { c.Width = 0 }},
		{name: "negative height", mutate: func(c *Config) { c.Height = -4 }},
		{name: "negative frame limit", mutate: func(c *Config) { c.MaxFrames = -1 }},
		{name: "pipelined", mutate: func(c *Config) { c.Strategy = Pipelined }, target: ErrUnsupportedStrategy},
		{name: "unknown strategy", mutate: func(c *Config) { c.Strategy = FrameStrategy(7) }, target: ErrUnsupportedStrategy},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			if tc.target != nil {
				require.True(t, errors.Is(err, tc.target))
			}
		})
	}
}

func TestParseFrameStrategy(t *testing.T) {
	s, err := ParseFrameStrategy("single-blocking")
	require.NoError(t, err)
	require.Equal(t, SingleBlocking, s)

	s, err = ParseFrameStrategy("Pipelined")
	require.NoError(t, err)
	require.Equal(t, Pipelined, s)

	_, err = ParseFrameStrategy("triple")
	require.Error(t, err)

	require.Equal(t, "unknown", FrameStrategy(42).String())
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = ParseLogLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	_, err = ParseLogLevel("loud")
	require.Error(t, err)
}
