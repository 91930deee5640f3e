package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telliott/codeatlas/internal/language"
)

func TestPatternGoSymbols(t *testing.T) {
	src := []byte(`package main

const maxRetries = 3

func Add(a, b int) int {
	return a + b
}

type Counter struct {
	n int
}

func (c *Counter) Inc() {
	c.n++
}
`)

	b := NewPatternBackend(language.Go)
	symbols, err := b.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, symbols, 4)

	assert.Equal(t, "maxRetries", symbols[0].Name)
	assert.Equal(t, SymbolConstant, symbols[0].Kind)
	assert.Equal(t, 3, symbols[0].StartLine)

	assert.Equal(t, "Add", symbols[1].Name)
	assert.Equal(t, SymbolFunction, symbols[1].Kind)
	assert.Equal(t, 5, symbols[1].StartLine)

	assert.Equal(t, "Counter", symbols[2].Name)
	assert.Equal(t, SymbolType, symbols[2].Kind)

	assert.Equal(t, "Inc", symbols[3].Name)
	assert.Equal(t, SymbolMethod, symbols[3].Kind)
}

func TestPatternGoInterfaceBeatsType(t *testing.T) {
	src := []byte("type Store interface {\n\tGet(key string) string\n}\n")

	b := NewPatternBackend(language.Go)
	symbols, err := b.Parse(context.Background(), src)
	require.NoError(t, err)

	// The interface rule and the generic type rule both hit the same
	// span; the earlier rule claims it and exactly one symbol remains.
	require.Len(t, symbols, 1)
	assert.Equal(t, "Store", symbols[0].Name)
	assert.Equal(t, SymbolInterface, symbols[0].Kind)
}

func TestPatternArrowFunctionSingleSymbol(t *testing.T) {
	src := []byte("const handler = async () => {\n  return 1;\n};\n")

	b := NewPatternBackend(language.JavaScript)
	symbols, err := b.Parse(context.Background(), src)
	require.NoError(t, err)

	// Matched by both the arrow-function rule and the variable rule;
	// overlap dedup keeps only the higher-priority function reading.
	require.Len(t, symbols, 1)
	assert.Equal(t, "handler", symbols[0].Name)
	assert.Equal(t, SymbolFunction, symbols[0].Kind)
}

func TestPatternPythonSymbols(t *testing.T) {
	src := []byte(`class User:
    def __init__(self, name):
        self.name = name

def helper():
    return 1

MAX_SIZE = 10
`)

	b := NewPatternBackend(language.Python)
	symbols, err := b.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, symbols, 4)

	assert.Equal(t, "User", symbols[0].Name)
	assert.Equal(t, SymbolClass, symbols[0].Kind)
	assert.Equal(t, 1, symbols[0].StartLine)

	assert.Equal(t, "__init__", symbols[1].Name)
	assert.Equal(t, SymbolMethod, symbols[1].Kind)

	assert.Equal(t, "helper", symbols[2].Name)
	assert.Equal(t, SymbolFunction, symbols[2].Kind)

	assert.Equal(t, "MAX_SIZE", symbols[3].Name)
	assert.Equal(t, SymbolConstant, symbols[3].Kind)
}

func TestPatternBackendIsTotal(t *testing.T) {
	b := NewPatternBackend(language.Go)

	symbols, err := b.Parse(context.Background(), []byte{})
	require.NoError(t, err)
	assert.Empty(t, symbols)

	symbols, err = b.Parse(context.Background(), []byte("\x00\xff$$$ !!! ???\nnot code at all\n"))
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestPatternGenericTableForUnlistedLanguage(t *testing.T) {
	b := NewPatternBackend(language.Language("scala"))

	symbols, err := b.Parse(context.Background(), []byte("def compute(x: Int): Int = x * 2\n"))
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "compute", symbols[0].Name)
	assert.Equal(t, SymbolFunction, symbols[0].Kind)
}

func TestPatternSignatureIsFirstLine(t *testing.T) {
	src := []byte("func Run(\n\tctx context.Context,\n) error {\n}\n")

	b := NewPatternBackend(language.Go)
	symbols, err := b.Parse(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, symbols)
	assert.Equal(t, "func Run(", symbols[0].Signature)
}
