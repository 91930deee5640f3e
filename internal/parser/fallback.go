package parser

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/telliott/codeatlas/internal/language"
)

// PatternRule is one declarative extraction rule: a construct kind, a
// pattern, and the capture group holding the symbol name. Rules are
// ordered; when two rules match overlapping character spans the earlier
// accepted match wins and the later one is dropped.
type PatternRule struct {
	Kind      SymbolKind
	Pattern   *regexp.Regexp
	NameGroup int
}

func rule(kind SymbolKind, pattern string) PatternRule {
	return PatternRule{Kind: kind, Pattern: regexp.MustCompile(pattern), NameGroup: 1}
}

var patternTables = map[language.Language][]PatternRule{
	language.Python: {
		rule(SymbolClass, `(?m)^class[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolFunction, `(?m)^(?:async[ \t]+)?def[ \t]+([A-Za-z_]\w*)[ \t]*\(`),
		rule(SymbolMethod, `(?m)^[ \t]+(?:async[ \t]+)?def[ \t]+([A-Za-z_]\w*)[ \t]*\(`),
		rule(SymbolConstant, `(?m)^([A-Z][A-Z0-9_]*)[ \t]*=`),
		rule(SymbolVariable, `(?m)^([a-z_]\w*)[ \t]*=[^=]`),
	},
	language.JavaScript: {
		rule(SymbolClass, `(?m)^[ \t]*(?:export[ \t]+)?(?:default[ \t]+)?class[ \t]+([A-Za-z_$][\w$]*)`),
		rule(SymbolFunction, `(?m)^[ \t]*(?:export[ \t]+)?(?:default[ \t]+)?(?:async[ \t]+)?function[ \t*]+([A-Za-z_$][\w$]*)`),
		rule(SymbolFunction, `(?m)^[ \t]*(?:export[ \t]+)?(?:const|let|var)[ \t]+([A-Za-z_$][\w$]*)[ \t]*=[ \t]*(?:async[ \t]*)?(?:\([^)\n]*\)|[A-Za-z_$][\w$]*)[ \t]*=>`),
		rule(SymbolVariable, `(?m)^[ \t]*(?:export[ \t]+)?(?:const|let|var)[ \t]+([A-Za-z_$][\w$]*)`),
	},
	language.Go: {
		rule(SymbolMethod, `(?m)^func[ \t]*\([^)\n]*\)[ \t]*([A-Za-z_]\w*)[ \t]*[(\[]`),
		rule(SymbolFunction, `(?m)^func[ \t]+([A-Za-z_]\w*)[ \t]*[(\[]`),
		rule(SymbolInterface, `(?m)^type[ \t]+([A-Za-z_]\w*)(?:\[[^\]\n]*\])?[ \t]+interface\b`),
		rule(SymbolType, `(?m)^type[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolConstant, `(?m)^const[ \t]+\(?[ \t]*([A-Za-z_]\w*)`),
		rule(SymbolVariable, `(?m)^var[ \t]+\(?[ \t]*([A-Za-z_]\w*)`),
	},
	language.Ruby: {
		rule(SymbolClass, `(?m)^[ \t]*class[ \t]+([A-Z]\w*)`),
		rule(SymbolModule, `(?m)^[ \t]*module[ \t]+([A-Z]\w*)`),
		rule(SymbolFunction, `(?m)^def[ \t]+(?:self\.)?([a-z_]\w*[?!]?)`),
		rule(SymbolMethod, `(?m)^[ \t]+def[ \t]+(?:self\.)?([a-z_]\w*[?!]?)`),
	},
	language.Java: {
		rule(SymbolClass, `(?m)^[ \t]*(?:(?:public|private|protected|abstract|final|static)[ \t]+)*class[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolInterface, `(?m)^[ \t]*(?:(?:public|private|protected)[ \t]+)?interface[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolType, `(?m)^[ \t]*(?:(?:public|private|protected)[ \t]+)?enum[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolMethod, `(?m)^[ \t]+(?:(?:public|private|protected|static|final|synchronized|abstract)[ \t]+)+[\w<>\[\],. \t]+[ \t]([a-zA-Z_]\w*)[ \t]*\(`),
	},
	language.Rust: {
		rule(SymbolFunction, `(?m)^[ \t]*(?:pub(?:\([^)\n]*\))?[ \t]+)?(?:async[ \t]+)?fn[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolType, `(?m)^[ \t]*(?:pub(?:\([^)\n]*\))?[ \t]+)?(?:struct|enum)[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolInterface, `(?m)^[ \t]*(?:pub(?:\([^)\n]*\))?[ \t]+)?trait[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolConstant, `(?m)^[ \t]*(?:pub[ \t]+)?(?:const|static)[ \t]+([A-Z_][A-Z0-9_]*)`),
	},
	language.Bash: {
		rule(SymbolFunction, `(?m)^[ \t]*function[ \t]+([A-Za-z_]\w*)`),
		rule(SymbolFunction, `(?m)^[ \t]*([A-Za-z_]\w*)[ \t]*\(\)[ \t]*\{`),
		rule(SymbolVariable, `(?m)^([A-Za-z_]\w*)=`),
	},
}

// genericRules is the last-resort table for languages without a
// dedicated pattern set.
var genericRules = []PatternRule{
	rule(SymbolClass, `(?m)^[ \t]*(?:class|struct)[ \t]+([A-Za-z_]\w*)`),
	rule(SymbolFunction, `(?m)^[ \t]*(?:def|func|fn|function)[ \t]+([A-Za-z_]\w*)`),
	rule(SymbolVariable, `(?m)^[ \t]*(?:var|let|const)[ \t]+([A-Za-z_]\w*)`),
}

// PatternBackend extracts symbols with an ordered regex rule table. It
// is total: Parse never returns an error, at worst an empty symbol list.
type PatternBackend struct {
	lang  language.Language
	rules []PatternRule
}

// NewPatternBackend creates the fallback backend for a language, using
// the generic table when no dedicated one exists.
func NewPatternBackend(lang language.Language) *PatternBackend {
	rules, ok := patternTables[lang]
	if !ok {
		rules = genericRules
	}
	return &PatternBackend{lang: lang, rules: rules}
}

// ID identifies this backend in registry tables and results.
func (b *PatternBackend) ID() string { return language.BackendPatterns }

type patternMatch struct {
	start, end int
	ruleIndex  int
	name       string
}

// Parse applies the rule table. Matches are accepted in file order of
// match start; a span overlapping an earlier accepted match is skipped,
// so a construct hit by several patterns yields exactly one symbol.
func (b *PatternBackend) Parse(_ context.Context, content []byte) ([]Symbol, error) {
	var candidates []patternMatch
	for ri, r := range b.rules {
		for _, loc := range r.Pattern.FindAllSubmatchIndex(content, -1) {
			gs, ge := loc[2*r.NameGroup], loc[2*r.NameGroup+1]
			if gs < 0 || ge <= gs {
				continue
			}
			name := strings.TrimSpace(string(content[gs:ge]))
			if name == "" {
				continue
			}
			candidates = append(candidates, patternMatch{
				start:     loc[0],
				end:       loc[1],
				ruleIndex: ri,
				name:      name,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return candidates[i].ruleIndex < candidates[j].ruleIndex
	})

	total := lineCount(content)
	var claimed []patternMatch
	var symbols []Symbol
	for _, m := range candidates {
		if overlapsAny(claimed, m) {
			continue
		}
		claimed = append(claimed, m)

		startLine := 1 + bytes.Count(content[:m.start], []byte{'\n'})
		endLine := startLine + bytes.Count(content[m.start:m.end], []byte{'\n'})
		start, end := clampLines(startLine, endLine, total)

		symbols = append(symbols, Symbol{
			Name:      m.name,
			Kind:      b.rules[m.ruleIndex].Kind,
			StartLine: start,
			EndLine:   end,
			Signature: firstLine(content[m.start:m.end]),
		})
	}

	return symbols, nil
}

func overlapsAny(claimed []patternMatch, m patternMatch) bool {
	for _, c := range claimed {
		if m.start < c.end && c.start < m.end {
			return true
		}
	}
	return false
}

func firstLine(match []byte) string {
	if i := bytes.IndexByte(match, '\n'); i >= 0 {
		match = match[:i]
	}
	return strings.TrimSpace(string(match))
}
