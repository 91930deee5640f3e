package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsBadBudgets(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative overlap", func(c *Config) { c.OverlapTokens = -1 }},
		{"overlap equals min", func(c *Config) { c.OverlapTokens = c.MinTokens }},
		{"overlap above min", func(c *Config) { c.OverlapTokens = c.MinTokens + 10 }},
		{"min above max", func(c *Config) { c.MinTokens = c.MaxTokens + 1 }},
		{"thresholds out of order", func(c *Config) { c.LargeThreshold = c.SmallThreshold - 1 }},
		{"ceilings out of order", func(c *Config) { c.LargeMax = c.SmallMax - 1 }},
		{"zero small ceiling", func(c *Config) { c.SmallMax = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAllowsZeroOverlap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OverlapTokens = 0
	assert.NoError(t, cfg.Validate())
}
