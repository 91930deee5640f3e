// Package chunk splits document structure into bounded-size, overlapping
// segments for embedding. Sizes are measured in estimated tokens; the
// estimator, adaptive sizing, and splitting are all deterministic so the
// same input always yields the same chunks.
package chunk

// StructuralUnit is one fragment of a document (paragraph, section,
// fenced block) supplied by a structure extractor. Non-splittable units
// are atomic: they are never cut, only emitted whole.
type StructuralUnit struct {
	Text       string
	Splittable bool
}

// Chunk is one output segment. Text begins with Overlap, the trailing
// content carried over from the previous chunk for context continuity;
// Body returns the rest. Concatenating bodies in order reproduces the
// concatenated unit texts exactly.
type Chunk struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Overlap    string `json:"overlap,omitempty"`
	TokenCount int    `json:"token_count"`
	StartUnit  int    `json:"start_unit"`
	EndUnit    int    `json:"end_unit"`

	// Oversized marks the sole allowed over-limit case: a chunk that is
	// exactly one non-splittable unit larger than MaxTokens.
	Oversized bool `json:"oversized,omitempty"`
	// Degraded marks a unit that failed structural processing and was
	// emitted opaque.
	Degraded bool `json:"degraded,omitempty"`
}

// Body returns the chunk text without the leading overlap.
func (c Chunk) Body() string {
	return c.Text[len(c.Overlap):]
}
