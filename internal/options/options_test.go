package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type decoderConfig struct {
	concurrency int
	strict      bool
}

func withConcurrency(n int) Option[*decoderConfig] {
	return New(func(c *decoderConfig) error {
		if n < 1 {
			return errors.New("concurrency must be positive")
		}
		c.concurrency = n

		return nil
	})
}

func withStrict(enabled bool) Option[*decoderConfig] {
	return NoError(func(c *decoderConfig) {
		c.strict = enabled
	})
}

func TestApply_InOrder(t *testing.T) {
	cfg := &decoderConfig{}
	err := Apply(cfg, withConcurrency(4), withStrict(true))
	require.NoError(t, err)
	require.Equal(t, 4, cfg.concurrency)
	require.True(t, cfg.strict)
}

func TestApply_StopsAtFirstError(t *testing.T) {
	cfg := &decoderConfig{}
	err := Apply(cfg,
		withConcurrency(2),
		withConcurrency(0), // fails
		withStrict(true),   // must not run
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "concurrency must be positive")
	require.Equal(t, 2, cfg.concurrency)
	require.False(t, cfg.strict)
}

func TestApply_NoOptions(t *testing.T) {
	cfg := &decoderConfig{}
	require.NoError(t, Apply(cfg))
	require.Zero(t, cfg.concurrency)
}
