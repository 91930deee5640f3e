// Package parser extracts structural symbols from source files. Each
// language resolves to an ordered list of backends: a tree-sitter backend
// when a grammar is available, always terminated by a regex pattern
// backend that cannot fail.
package parser

// SymbolKind classifies an extracted symbol.
type SymbolKind string

const (
	SymbolModule    SymbolKind = "module"
	SymbolClass     SymbolKind = "class"
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolVariable  SymbolKind = "variable"
	SymbolConstant  SymbolKind = "constant"
	SymbolInterface SymbolKind = "interface"
	SymbolType      SymbolKind = "type"
)

// Symbol is one extracted symbol record. Lines are 1-based and satisfy
// 1 <= StartLine <= EndLine <= file line count.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Signature string     `json:"signature,omitempty"`
	Parent    string     `json:"parent,omitempty"`
}

// clampLines forces the line invariant against the real line count.
func clampLines(start, end, lineCount int) (int, int) {
	if start < 1 {
		start = 1
	}
	if start > lineCount {
		start = lineCount
	}
	if end < start {
		end = start
	}
	if end > lineCount {
		end = lineCount
	}
	return start, end
}

func lineCount(content []byte) int {
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}
