package chunk

import (
	"errors"
	"fmt"
)

// Config holds the chunking size budget. All values are estimated
// tokens. Invalid combinations are rejected at construction; nothing in
// the pipeline revalidates per call.
type Config struct {
	MaxTokens     int `yaml:"max_tokens"`
	MinTokens     int `yaml:"min_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`

	// Adaptive sizing thresholds and ceilings, applied to MaxTokens by
	// EffectiveConfig based on total document size.
	SmallThreshold int `yaml:"small_threshold"`
	LargeThreshold int `yaml:"large_threshold"`
	SmallMax       int `yaml:"small_max"`
	LargeMax       int `yaml:"large_max"`
}

// DefaultConfig returns the stock budget.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      500,
		MinTokens:      100,
		OverlapTokens:  50,
		SmallThreshold: 2000,
		LargeThreshold: 10000,
		SmallMax:       300,
		LargeMax:       1000,
	}
}

// Validate enforces 0 <= overlap < min <= max plus sane adaptive bounds.
func (c Config) Validate() error {
	if c.OverlapTokens < 0 {
		return errors.New("overlap_tokens must not be negative")
	}
	if c.MinTokens <= c.OverlapTokens {
		return fmt.Errorf("overlap_tokens (%d) must be smaller than min_tokens (%d)", c.OverlapTokens, c.MinTokens)
	}
	if c.MaxTokens < c.MinTokens {
		return fmt.Errorf("min_tokens (%d) must not exceed max_tokens (%d)", c.MinTokens, c.MaxTokens)
	}
	if c.SmallThreshold < 0 || c.LargeThreshold < c.SmallThreshold {
		return fmt.Errorf("size-class thresholds out of order: small %d, large %d", c.SmallThreshold, c.LargeThreshold)
	}
	if c.SmallMax <= 0 || c.LargeMax < c.SmallMax {
		return fmt.Errorf("size-class ceilings out of order: small %d, large %d", c.SmallMax, c.LargeMax)
	}
	return nil
}
