package chunk

import (
	"context"
	"strings"
)

// Chunker performs greedy, boundary-respecting splitting of structural
// units into chunks under a validated Config.
type Chunker struct {
	cfg Config
	est TokenEstimator
}

// NewChunker validates the config and returns a chunker. A nil estimator
// selects the built-in one. An invalid config is fatal to the caller.
func NewChunker(cfg Config, est TokenEstimator) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		est = NewEstimator()
	}
	return &Chunker{cfg: cfg, est: est}, nil
}

// Split chunks the units in order. The second return value is true when
// ctx was cancelled: splitting stops before the next unit, never inside
// one, and the chunks produced so far are returned as a partial result.
func (c *Chunker) Split(ctx context.Context, units []StructuralUnit) ([]Chunk, bool) {
	st := &splitState{c: c}
	truncated := false

	for i, u := range units {
		if ctx.Err() != nil {
			truncated = true
			break
		}
		st.addUnit(i, u)
	}
	st.flush()

	chunks := c.mergeUndersized(st.chunks)
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, truncated
}

type splitState struct {
	c      *Chunker
	chunks []Chunk

	// running chunk
	active    bool
	overlap   string
	parts     []string
	tokens    int
	startUnit int
	endUnit   int
	prevText  string // text of the last emitted chunk, source of overlap
	havePrev  bool
}

func (st *splitState) addUnit(i int, u StructuralUnit) {
	defer func() {
		if r := recover(); r != nil {
			// A unit that breaks structural processing degrades to one
			// opaque chunk; the document continues. The token count stays
			// zero: the estimator already failed on this text.
			st.flush()
			st.emit(Chunk{
				Text:      u.Text,
				StartUnit: i,
				EndUnit:   i,
				Degraded:  true,
			})
			// Opaque text is no overlap source for the next chunk.
			st.havePrev = false
		}
	}()

	t := st.c.est.Count(u.Text)
	max := st.c.cfg.MaxTokens

	switch {
	case st.active && st.tokens+t <= max:
		st.append(i, u.Text, t)

	case t <= max:
		st.flush()
		st.open(i, u.Text, t)

	case !u.Splittable:
		// Sole over-limit exception: the unit is emitted alone, without
		// an overlap prefix, so the chunk is exactly the unit.
		st.flush()
		st.emit(Chunk{
			Text:       u.Text,
			TokenCount: t,
			StartUnit:  i,
			EndUnit:    i,
			Oversized:  true,
		})

	default:
		for _, piece := range st.c.splitText(u.Text) {
			pt := st.c.est.Count(piece)
			if st.active && st.tokens+pt <= max {
				st.append(i, piece, pt)
			} else {
				st.flush()
				st.open(i, piece, pt)
			}
		}
	}
}

// open starts a new running chunk with the unit text, prepending the
// trailing overlap of the previous chunk when one exists. The overlap is
// shortened if the full amount would push the chunk over budget.
func (st *splitState) open(i int, text string, t int) {
	st.active = true
	st.overlap = ""
	st.parts = st.parts[:0]
	st.tokens = 0
	st.startUnit = i
	st.endUnit = i

	if st.havePrev && st.c.cfg.OverlapTokens > 0 {
		want := st.c.cfg.OverlapTokens
		if room := st.c.cfg.MaxTokens - t; want > room {
			want = room
		}
		if want > 0 {
			off := st.c.est.TailStart(st.prevText, want)
			st.overlap = st.prevText[off:]
			st.tokens = st.c.est.Count(st.overlap)
		}
	}

	st.parts = append(st.parts, text)
	st.tokens += t
}

func (st *splitState) append(i int, text string, t int) {
	st.parts = append(st.parts, text)
	st.tokens += t
	st.endUnit = i
}

func (st *splitState) flush() {
	if !st.active {
		return
	}
	text := st.overlap + strings.Join(st.parts, "")
	st.emit(Chunk{
		Text:       text,
		Overlap:    st.overlap,
		TokenCount: st.c.est.Count(text),
		StartUnit:  st.startUnit,
		EndUnit:    st.endUnit,
	})
	st.active = false
}

func (st *splitState) emit(ch Chunk) {
	st.chunks = append(st.chunks, ch)
	st.prevText = ch.Text
	st.havePrev = true
}

// splitText cuts an oversized splittable text into pieces that each fit
// the budget, preferring sentence and line boundaries near the limit.
func (c *Chunker) splitText(text string) []string {
	var pieces []string
	rest := text
	for c.est.Count(rest) > c.cfg.MaxTokens {
		cut := c.est.SplitPoint(rest, c.cfg.MaxTokens)
		if cut <= 0 || cut >= len(rest) {
			break
		}
		pieces = append(pieces, rest[:cut])
		rest = rest[cut:]
	}
	if rest != "" {
		pieces = append(pieces, rest)
	}
	return pieces
}

// mergeUndersized folds chunks below MinTokens into a neighbor: the
// following chunk when the result stays within budget, else the
// preceding one, else the chunk stays undersized, which only happens at
// a document boundary in practice. Overlap duplication is dropped when
// merging so body concatenation stays exact.
func (c *Chunker) mergeUndersized(chunks []Chunk) []Chunk {
	for i := 0; i < len(chunks); {
		ch := chunks[i]
		if ch.TokenCount >= c.cfg.MinTokens || ch.Oversized || ch.Degraded {
			i++
			continue
		}

		if i+1 < len(chunks) && chunks[i+1].mergeable() {
			next := chunks[i+1]
			text := ch.Text + next.Body()
			if t := c.est.Count(text); t <= c.cfg.MaxTokens {
				chunks[i] = Chunk{
					Text:       text,
					Overlap:    ch.Overlap,
					TokenCount: t,
					StartUnit:  ch.StartUnit,
					EndUnit:    next.EndUnit,
				}
				chunks = append(chunks[:i+1], chunks[i+2:]...)
				continue
			}
		}

		if i > 0 && chunks[i-1].mergeable() {
			prev := chunks[i-1]
			text := prev.Text + ch.Body()
			if t := c.est.Count(text); t <= c.cfg.MaxTokens {
				chunks[i-1] = Chunk{
					Text:       text,
					Overlap:    prev.Overlap,
					TokenCount: t,
					StartUnit:  prev.StartUnit,
					EndUnit:    ch.EndUnit,
				}
				chunks = append(chunks[:i], chunks[i+1:]...)
				continue
			}
		}

		i++
	}
	return chunks
}

func (c Chunk) mergeable() bool {
	return !c.Oversized && !c.Degraded
}
