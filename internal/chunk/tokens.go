package chunk

// TokenEstimator is the counting strategy the chunker budgets against.
// Implementations must be deterministic and monotonic under append.
type TokenEstimator interface {
	Count(text string) int
	TailStart(text string, n int) int
	SplitPoint(text string, maxTokens int) int
}

// Estimator counts approximate embedding tokens without a model
// tokenizer. A token is a maximal run of word bytes (letters, digits,
// underscore, any non-ASCII byte) or a single other non-space byte.
// Counting is deterministic, needs one linear pass, and appending text
// never decreases the count, which the binary-search splitter relies on.
type Estimator struct{}

// NewEstimator returns the shared token estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		b >= 0x80
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// Count returns the estimated token count of text.
func (e *Estimator) Count(text string) int {
	n := 0
	inWord := false
	for i := 0; i < len(text); i++ {
		b := text[i]
		switch {
		case isWordByte(b):
			if !inWord {
				n++
				inWord = true
			}
		case isSpaceByte(b):
			inWord = false
		default:
			n++
			inWord = false
		}
	}
	return n
}

// TailStart returns the byte offset where the last n tokens of text
// begin, always on a token boundary. It returns 0 when text holds n
// tokens or fewer.
func (e *Estimator) TailStart(text string, n int) int {
	if n <= 0 {
		return len(text)
	}

	// Ring buffer of the most recent n token start offsets.
	starts := make([]int, n)
	count := 0
	inWord := false
	for i := 0; i < len(text); i++ {
		b := text[i]
		switch {
		case isWordByte(b):
			if !inWord {
				starts[count%n] = i
				count++
				inWord = true
			}
		case isSpaceByte(b):
			inWord = false
		default:
			starts[count%n] = i
			count++
			inWord = false
		}
	}

	if count <= n {
		return 0
	}
	return starts[count%n]
}

// SplitPoint returns a cut offset such that text[:offset] estimates at
// most maxTokens. The offset is found by binary search over the prefix
// count, snapped back so no word run is cut in half, then moved to the
// nearest sentence or line boundary when one exists close to the limit.
// The result is always in (0, len(text)) for text over the budget.
func (e *Estimator) SplitPoint(text string, maxTokens int) int {
	if maxTokens < 1 {
		maxTokens = 1
	}

	lo, hi := 1, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if e.Count(text[:mid]) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	cut := lo

	// Do not split inside a word run.
	for cut > 1 && cut < len(text) && isWordByte(text[cut]) && isWordByte(text[cut-1]) {
		cut--
	}

	if b := lastBoundary(text, cut); b > 0 {
		return b
	}
	return cut
}

// lastBoundary searches backward from cut for a line break or sentence
// end, refusing to give up more than half the prefix.
func lastBoundary(text string, cut int) int {
	floor := cut / 2
	for i := cut - 1; i > floor; i-- {
		if text[i] == '\n' {
			return i + 1
		}
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && i+1 < cut && text[i+1] == ' ' {
			return i + 2
		}
	}
	return 0
}
