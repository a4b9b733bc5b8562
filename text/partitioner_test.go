package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPlainTextLines_ShortTextUntouched(t *testing.T) {
	assert.Equal(t, []string{"This is a test of the emergency broadcast system."},
		SplitPlainTextLines("  This is a test of the emergency broadcast system.  ", 15))
}

func TestSplitPlainTextLines_PrefersSentences(t *testing.T) {
	input := "This is a test of the emergency broadcast system. This is only a test."
	lines := SplitPlainTextLines(input, 15)

	assert.Equal(t, []string{
		"This is a test of the emergency broadcast system.",
		"This is only a test.",
	}, lines)
}

func TestSplitPlainTextLines_RespectsBudget(t *testing.T) {
	input := strings.Repeat("lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 20)
	for _, line := range SplitPlainTextLines(input, 10) {
		assert.LessOrEqual(t, TokenCount(len(line)), 10, line)
		assert.Equal(t, strings.TrimSpace(line), line)
	}
}

func TestSplitPlainTextLines_NoSeparators(t *testing.T) {
	input := strings.Repeat("x", 100)
	lines := SplitPlainTextLines(input, 5)

	require.NotEmpty(t, lines)
	assert.Equal(t, input, strings.Join(lines, ""))
	for _, line := range lines {
		assert.LessOrEqual(t, TokenCount(len(line)), 5)
	}
}

func TestSplitPlainTextLines_TrailingSeparatorOnly(t *testing.T) {
	input := strings.Repeat("y", 40) + "."
	lines := SplitPlainTextLines(input, 3)
	assert.Equal(t, input, strings.Join(lines, ""))
}

func TestSplitMarkDownLines(t *testing.T) {
	input := "This is a test of the emergency broadcast system. This is only a test."
	lines := SplitMarkDownLines(input, 15)
	assert.Equal(t, []string{
		"This is a test of the emergency broadcast system.",
		"This is only a test.",
	}, lines)
}

func TestSplitPlainTextParagraphs(t *testing.T) {
	lines := []string{
		"This is a test of the emergency broadcast system. This is only a test.",
		"We repeat, this is only a test. A unit test.",
	}

	paragraphs := SplitPlainTextParagraphs(lines, 13)

	require.Len(t, paragraphs, 3)
	assert.Equal(t, "This is a test of the emergency broadcast system.", paragraphs[0])
	assert.Equal(t, "This is only a test.", paragraphs[1])
	assert.Equal(t, "We repeat, this is only a test. A unit test.", paragraphs[2])
}

func TestSplitParagraphs_MergesShortTail(t *testing.T) {
	lines := []string{
		strings.Repeat("word ", 30),
		"tail",
	}
	paragraphs := SplitMarkdownParagraphs(lines, 38)
	require.Len(t, paragraphs, 1)
	assert.True(t, strings.HasSuffix(paragraphs[0], "word tail"))
}

func TestSplitParagraphs_Empty(t *testing.T) {
	assert.Empty(t, SplitPlainTextParagraphs(nil, 10))
}
