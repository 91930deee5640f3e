package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat(e *Extractor, content string) string {
	var b strings.Builder
	for _, u := range e.Units(content) {
		b.WriteString(u.Text)
	}
	return b.String()
}

func TestUnitsParagraphs(t *testing.T) {
	e := NewExtractor()
	content := "first paragraph\nstill first\n\nsecond paragraph\n"

	units := e.Units(content)
	require.Len(t, units, 2)

	assert.Equal(t, "first paragraph\nstill first\n\n", units[0].Text)
	assert.True(t, units[0].Splittable)
	assert.Equal(t, "second paragraph\n", units[1].Text)
}

func TestUnitsFencedCodeBlockIsAtomic(t *testing.T) {
	e := NewExtractor()
	content := "intro text\n\n```go\nfunc main() {}\n```\n\nclosing text\n"

	units := e.Units(content)
	require.Len(t, units, 3)

	assert.True(t, units[0].Splittable)
	assert.False(t, units[1].Splittable)
	assert.True(t, strings.HasPrefix(units[1].Text, "```go\n"))
	assert.True(t, strings.Contains(units[1].Text, "func main()"))
	assert.True(t, units[2].Splittable)
	assert.Equal(t, "closing text\n", units[2].Text)
}

func TestUnitsTildeFence(t *testing.T) {
	e := NewExtractor()
	content := "~~~\nraw block\n~~~\n"

	units := e.Units(content)
	require.Len(t, units, 1)
	assert.False(t, units[0].Splittable)
}

func TestUnitsUnclosedFenceRunsToEnd(t *testing.T) {
	e := NewExtractor()
	content := "before\n\n```\nnever closed\nstill code\n"

	units := e.Units(content)
	require.Len(t, units, 2)
	assert.False(t, units[1].Splittable)
	assert.Equal(t, "```\nnever closed\nstill code\n", units[1].Text)
}

func TestUnitsConcatenationIsExact(t *testing.T) {
	e := NewExtractor()
	cases := []string{
		"",
		"no trailing newline",
		"a\n\n\nb\n",
		"para\n\n```\ncode\n```\ntail",
		"\n\nleading blanks\n",
		"  \t \nwhitespace only line\n",
	}
	for _, content := range cases {
		assert.Equal(t, content, concat(e, content), "input %q", content)
	}
}

func TestUnitsEmptyInput(t *testing.T) {
	e := NewExtractor()
	assert.Empty(t, e.Units(""))
}
