package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/telliott/codeatlas/internal/language"
)

// nodeRule maps one tree-sitter node type to a symbol kind. The tables
// below are the only per-language knowledge the precise backend carries;
// the walk itself is generic.
type nodeRule struct {
	Kind      SymbolKind
	NameKinds []string // node types that may hold the symbol name
	Recurse   bool     // descend into the node for nested symbols
	TopLevel  bool     // match only direct children of the root
}

var grammars = map[language.Language]func() *sitter.Language{
	language.Python:     python.GetLanguage,
	language.JavaScript: javascript.GetLanguage,
	language.TypeScript: typescript.GetLanguage,
	language.Go:         golang.GetLanguage,
	language.Ruby:       ruby.GetLanguage,
	language.Java:       java.GetLanguage,
}

var nodeTables = map[language.Language]map[string]nodeRule{
	language.Python: {
		"function_definition": {Kind: SymbolFunction, NameKinds: []string{"identifier"}, Recurse: true},
		"class_definition":    {Kind: SymbolClass, NameKinds: []string{"identifier"}, Recurse: true},
	},
	language.JavaScript: {
		"function_declaration":           {Kind: SymbolFunction, NameKinds: []string{"identifier"}},
		"generator_function_declaration": {Kind: SymbolFunction, NameKinds: []string{"identifier"}},
		"class_declaration":              {Kind: SymbolClass, NameKinds: []string{"identifier"}, Recurse: true},
		"method_definition":              {Kind: SymbolMethod, NameKinds: []string{"property_identifier"}},
		"lexical_declaration":            {Kind: SymbolVariable, NameKinds: []string{"identifier"}, TopLevel: true},
		"variable_declaration":           {Kind: SymbolVariable, NameKinds: []string{"identifier"}, TopLevel: true},
	},
	language.TypeScript: {
		"function_declaration":   {Kind: SymbolFunction, NameKinds: []string{"identifier"}},
		"class_declaration":      {Kind: SymbolClass, NameKinds: []string{"type_identifier", "identifier"}, Recurse: true},
		"method_definition":      {Kind: SymbolMethod, NameKinds: []string{"property_identifier"}},
		"interface_declaration":  {Kind: SymbolInterface, NameKinds: []string{"type_identifier"}},
		"type_alias_declaration": {Kind: SymbolType, NameKinds: []string{"type_identifier"}},
		"enum_declaration":       {Kind: SymbolType, NameKinds: []string{"identifier"}},
		"lexical_declaration":    {Kind: SymbolVariable, NameKinds: []string{"identifier"}, TopLevel: true},
	},
	language.Go: {
		"function_declaration": {Kind: SymbolFunction, NameKinds: []string{"identifier"}},
		"method_declaration":   {Kind: SymbolMethod, NameKinds: []string{"field_identifier"}},
		"type_declaration":     {Kind: SymbolType, NameKinds: []string{"type_identifier"}},
		"const_declaration":    {Kind: SymbolConstant, NameKinds: []string{"identifier"}, TopLevel: true},
		"var_declaration":      {Kind: SymbolVariable, NameKinds: []string{"identifier"}, TopLevel: true},
	},
	language.Ruby: {
		"method":           {Kind: SymbolFunction, NameKinds: []string{"identifier"}},
		"singleton_method": {Kind: SymbolFunction, NameKinds: []string{"identifier"}},
		"class":            {Kind: SymbolClass, NameKinds: []string{"constant"}, Recurse: true},
		"module":           {Kind: SymbolModule, NameKinds: []string{"constant"}, Recurse: true},
	},
	language.Java: {
		"class_declaration":     {Kind: SymbolClass, NameKinds: []string{"identifier"}, Recurse: true},
		"interface_declaration": {Kind: SymbolInterface, NameKinds: []string{"identifier"}, Recurse: true},
		"enum_declaration":      {Kind: SymbolType, NameKinds: []string{"identifier"}},
		"method_declaration":    {Kind: SymbolMethod, NameKinds: []string{"identifier"}},
		"field_declaration":     {Kind: SymbolVariable, NameKinds: []string{"identifier"}},
	},
}

// TreeSitterBackend parses with a tree-sitter grammar and extracts
// symbols by walking the tree against a node-kind table.
type TreeSitterBackend struct {
	lang    language.Language
	grammar *sitter.Language
	table   map[string]nodeRule
}

// NewTreeSitterBackend creates the precise backend for a language. It
// fails when no grammar is registered, which is a configuration error
// surfaced at selector construction, not per file.
func NewTreeSitterBackend(lang language.Language) (*TreeSitterBackend, error) {
	get, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("no tree-sitter grammar for language %q", lang)
	}
	table, ok := nodeTables[lang]
	if !ok {
		return nil, fmt.Errorf("no node-kind table for language %q", lang)
	}

	return &TreeSitterBackend{lang: lang, grammar: get(), table: table}, nil
}

// ID identifies this backend in registry tables and results.
func (b *TreeSitterBackend) ID() string { return language.BackendTreeSitter }

// Parse builds a syntax tree and extracts symbols. A fresh parser is
// created per call; sitter.Parser is not safe for concurrent use.
func (b *TreeSitterBackend) Parse(ctx context.Context, content []byte) ([]Symbol, error) {
	p := sitter.NewParser()
	p.SetLanguage(b.grammar)

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &treeWalker{source: content, table: b.table, lines: lineCount(content)}
	w.walk(root, "", SymbolKind(""), 0)

	// A tree that is all error nodes means the grammar could not make
	// sense of the input; hand the file to the next backend instead of
	// returning nothing.
	if len(w.symbols) == 0 && root.HasError() {
		return nil, fmt.Errorf("tree-sitter produced no symbols from malformed %s input", b.lang)
	}

	return w.symbols, nil
}

type treeWalker struct {
	source  []byte
	table   map[string]nodeRule
	lines   int
	symbols []Symbol
}

func (w *treeWalker) walk(node *sitter.Node, parent string, parentKind SymbolKind, depth int) {
	rule, matched := w.table[node.Type()]
	if matched && rule.TopLevel && depth != 1 {
		matched = false
	}

	if matched {
		sym, ok := w.makeSymbol(node, rule, parent, parentKind)
		if ok {
			w.symbols = append(w.symbols, sym)
			if rule.Recurse {
				for i := 0; i < int(node.ChildCount()); i++ {
					w.walk(node.Child(i), sym.Name, sym.Kind, depth+1)
				}
			}
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(node.Child(i), parent, parentKind, depth+1)
	}
}

func (w *treeWalker) makeSymbol(node *sitter.Node, rule nodeRule, parent string, parentKind SymbolKind) (Symbol, bool) {
	name := findName(node, rule.NameKinds, w.source)
	if name == "" {
		return Symbol{}, false
	}

	kind := rule.Kind
	// A function declared inside a class or module body is a method.
	if kind == SymbolFunction && (parentKind == SymbolClass || parentKind == SymbolModule) {
		kind = SymbolMethod
	}

	start, end := clampLines(int(node.StartPoint().Row)+1, int(node.EndPoint().Row)+1, w.lines)

	sym := Symbol{
		Name:      name,
		Kind:      kind,
		StartLine: start,
		EndLine:   end,
		Signature: signatureOf(node, w.source),
	}
	if kind == SymbolMethod && parent != "" {
		sym.Parent = parent
	}
	return sym, true
}

// findName looks for the first descendant of an accepted name kind,
// breadth-first, a few levels deep. Declarations keep their name close
// to the top of the subtree in every grammar we use.
func findName(node *sitter.Node, kinds []string, source []byte) string {
	const maxDepth = 3

	frontier := []*sitter.Node{node}
	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []*sitter.Node
		for _, n := range frontier {
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				for _, k := range kinds {
					if child.Type() == k {
						return string(source[child.StartByte():child.EndByte()])
					}
				}
				next = append(next, child)
			}
		}
		frontier = next
	}
	return ""
}

// signatureOf returns the node's source text trimmed to one line.
func signatureOf(node *sitter.Node, source []byte) string {
	text := string(source[node.StartByte():node.EndByte()])
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
