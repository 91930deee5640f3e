package chunk

// EffectiveConfig adapts the chunk size budget to the document. Small
// documents get smaller chunks so a short file still yields several
// retrievable segments; large documents get bigger chunks to bound the
// total count. MinTokens and OverlapTokens pass through unchanged.
func EffectiveConfig(totalTokens int, base Config) Config {
	cfg := base
	switch {
	case totalTokens < base.SmallThreshold:
		if cfg.MaxTokens > base.SmallMax {
			cfg.MaxTokens = base.SmallMax
		}
	case totalTokens > base.LargeThreshold:
		if cfg.MaxTokens < base.LargeMax {
			cfg.MaxTokens = base.LargeMax
		}
	}
	// A custom MinTokens above the small ceiling must not invalidate the
	// budget; the validated base invariant min <= max is preserved.
	if cfg.MaxTokens < cfg.MinTokens {
		cfg.MaxTokens = cfg.MinTokens
	}
	return cfg
}
