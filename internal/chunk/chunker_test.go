package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paragraph builds a splittable unit of exactly n estimated tokens,
// terminated like a real paragraph.
func paragraph(n int) StructuralUnit {
	return StructuralUnit{
		Text:       strings.Repeat("tok ", n-1) + "tok\n\n",
		Splittable: true,
	}
}

func joinUnits(units []StructuralUnit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.Text)
	}
	return b.String()
}

func joinBodies(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Body())
	}
	return b.String()
}

func TestSplitGreedyAccumulation(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	// Ten paragraphs of 60 tokens against a 500-token budget: eight fit
	// the first chunk, the remaining two land in a second one behind a
	// 50-token overlap.
	var units []StructuralUnit
	for i := 0; i < 10; i++ {
		units = append(units, paragraph(60))
	}

	chunks, truncated := c.Split(context.Background(), units)
	require.False(t, truncated)
	require.Len(t, chunks, 2)

	est := NewEstimator()

	assert.Equal(t, 480, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].StartUnit)
	assert.Equal(t, 7, chunks[0].EndUnit)
	assert.Empty(t, chunks[0].Overlap)

	assert.Equal(t, 50, est.Count(chunks[1].Overlap))
	assert.Equal(t, 170, chunks[1].TokenCount)
	assert.Equal(t, 8, chunks[1].StartUnit)
	assert.Equal(t, 9, chunks[1].EndUnit)

	// Overlap is a suffix of the previous chunk and a prefix of this one.
	assert.True(t, strings.HasSuffix(chunks[0].Text, chunks[1].Overlap))
	assert.True(t, strings.HasPrefix(chunks[1].Text, chunks[1].Overlap))

	// Bodies concatenate back to the input byte for byte.
	assert.Equal(t, joinUnits(units), joinBodies(chunks))
}

func TestSplitIndicesAreSequential(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	var units []StructuralUnit
	for i := 0; i < 20; i++ {
		units = append(units, paragraph(200))
	}

	chunks, _ := c.Split(context.Background(), units)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplitOversizedAtomicUnit(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	units := []StructuralUnit{
		paragraph(120),
		{Text: strings.Repeat("line\n", 900), Splittable: false},
		paragraph(120),
	}

	chunks, truncated := c.Split(context.Background(), units)
	require.False(t, truncated)
	require.Len(t, chunks, 3)

	// The atomic unit becomes exactly one flagged chunk, with no overlap
	// prefix, so the chunk is exactly the unit.
	assert.True(t, chunks[1].Oversized)
	assert.Empty(t, chunks[1].Overlap)
	assert.Equal(t, units[1].Text, chunks[1].Text)
	assert.Equal(t, 900, chunks[1].TokenCount)
	assert.Equal(t, 1, chunks[1].StartUnit)
	assert.Equal(t, 1, chunks[1].EndUnit)

	assert.Equal(t, joinUnits(units), joinBodies(chunks))
}

func TestSplitOversizedSplittableUnit(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	units := []StructuralUnit{{
		Text:       strings.Repeat("tok ", 1199) + "tok",
		Splittable: true,
	}}

	chunks, truncated := c.Split(context.Background(), units)
	require.False(t, truncated)
	require.Len(t, chunks, 3)

	for _, ch := range chunks {
		assert.False(t, ch.Oversized)
		assert.LessOrEqual(t, ch.TokenCount, 500)
	}

	assert.Equal(t, joinUnits(units), joinBodies(chunks))
}

func TestSplitSmallDocumentStaysWhole(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	units := []StructuralUnit{paragraph(30)}
	chunks, truncated := c.Split(context.Background(), units)
	require.False(t, truncated)

	// A lone undersized chunk at the document boundary is kept as is.
	require.Len(t, chunks, 1)
	assert.Equal(t, 30, chunks[0].TokenCount)
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	chunks, truncated := c.Split(context.Background(), nil)
	assert.False(t, truncated)
	assert.Empty(t, chunks)
}

func TestSplitCancelledContext(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks, truncated := c.Split(ctx, []StructuralUnit{paragraph(60), paragraph(60)})
	assert.True(t, truncated)
	assert.Empty(t, chunks)
}

func TestSplitDeterministic(t *testing.T) {
	c, err := NewChunker(DefaultConfig(), nil)
	require.NoError(t, err)

	var units []StructuralUnit
	for i := 0; i < 12; i++ {
		units = append(units, paragraph(90))
	}

	first, _ := c.Split(context.Background(), units)
	second, _ := c.Split(context.Background(), units)
	assert.Equal(t, first, second)
}

// faultyEstimator panics when asked to count one specific unit text,
// standing in for an estimator tripping over pathological content.
type faultyEstimator struct {
	Estimator
	poison string
}

func (f *faultyEstimator) Count(text string) int {
	if text == f.poison {
		panic("token estimate failed")
	}
	return f.Estimator.Count(text)
}

func TestSplitDegradedUnitContinues(t *testing.T) {
	poison := "BOOM BOOM BOOM\n\n"
	c, err := NewChunker(DefaultConfig(), &faultyEstimator{poison: poison})
	require.NoError(t, err)

	units := []StructuralUnit{
		paragraph(40),
		{Text: poison, Splittable: true},
		paragraph(40),
	}

	chunks, truncated := c.Split(context.Background(), units)
	require.False(t, truncated)
	require.Len(t, chunks, 3)

	// The broken unit becomes one opaque chunk; the units around it are
	// processed normally.
	assert.True(t, chunks[1].Degraded)
	assert.Equal(t, poison, chunks[1].Text)
	assert.Empty(t, chunks[1].Overlap)
	assert.Equal(t, 1, chunks[1].StartUnit)
	assert.Equal(t, 1, chunks[1].EndUnit)

	assert.False(t, chunks[0].Degraded)
	assert.False(t, chunks[2].Degraded)
	assert.Equal(t, 40, chunks[0].TokenCount)
	assert.Equal(t, 40, chunks[2].TokenCount)

	assert.Equal(t, joinUnits(units), joinBodies(chunks))
}

func TestNewChunkerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinTokens = cfg.MaxTokens + 1

	_, err := NewChunker(cfg, nil)
	assert.Error(t, err)
}

func TestMergeUndersizedForward(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 10
	cfg.MinTokens = 3
	cfg.OverlapTokens = 0
	c, err := NewChunker(cfg, nil)
	require.NoError(t, err)

	chunks := c.mergeUndersized([]Chunk{
		{Text: "alpha beta\n", TokenCount: 2, StartUnit: 0, EndUnit: 0},
		{Text: "gamma delta epsilon\n", TokenCount: 3, StartUnit: 1, EndUnit: 1},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta\ngamma delta epsilon\n", chunks[0].Text)
	assert.Equal(t, 5, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].StartUnit)
	assert.Equal(t, 1, chunks[0].EndUnit)
}

func TestMergeUndersizedBackward(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 12
	cfg.MinTokens = 3
	cfg.OverlapTokens = 0
	c, err := NewChunker(cfg, nil)
	require.NoError(t, err)

	chunks := c.mergeUndersized([]Chunk{
		{Text: "one two three four five six seven eight nine\n", TokenCount: 9, StartUnit: 0, EndUnit: 2},
		{Text: "ten eleven\n", TokenCount: 2, StartUnit: 3, EndUnit: 3},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "one two three four five six seven eight nine\nten eleven\n", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartUnit)
	assert.Equal(t, 3, chunks[0].EndUnit)
}

func TestMergeSkipsFlaggedNeighbors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 10
	cfg.MinTokens = 3
	cfg.OverlapTokens = 0
	c, err := NewChunker(cfg, nil)
	require.NoError(t, err)

	oversized := Chunk{Text: strings.Repeat("x ", 40), TokenCount: 40, Oversized: true}
	small := Chunk{Text: "tiny\n", TokenCount: 1}

	chunks := c.mergeUndersized([]Chunk{oversized, small})
	require.Len(t, chunks, 2)
	assert.Equal(t, "tiny\n", chunks[1].Text)
}

func TestMergeLeavesSandwichedUndersized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 10
	cfg.MinTokens = 3
	cfg.OverlapTokens = 0
	c, err := NewChunker(cfg, nil)
	require.NoError(t, err)

	big := strings.Repeat("x ", 40)
	chunks := c.mergeUndersized([]Chunk{
		{Text: big, TokenCount: 40, Oversized: true},
		{Text: "tiny\n", TokenCount: 1},
		{Text: big, TokenCount: 40, Oversized: true},
	})

	// No mergeable neighbor on either side: the chunk stays undersized
	// in place rather than absorbing a flagged one.
	require.Len(t, chunks, 3)
	assert.Equal(t, "tiny\n", chunks[1].Text)
	assert.False(t, chunks[1].Oversized)
}

func TestMergeDropsOverlapDuplication(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 10
	cfg.MinTokens = 3
	cfg.OverlapTokens = 2
	c, err := NewChunker(cfg, nil)
	require.NoError(t, err)

	// The second chunk repeats the first chunk's tail as overlap. Merging
	// uses Body so the shared text is not duplicated.
	chunks := c.mergeUndersized([]Chunk{
		{Text: "alpha beta\n", TokenCount: 2, StartUnit: 0, EndUnit: 0},
		{Text: "alpha beta\ngamma delta\n", Overlap: "alpha beta\n", TokenCount: 4, StartUnit: 1, EndUnit: 1},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta\ngamma delta\n", chunks[0].Text)
}
