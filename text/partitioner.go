// Package text splits long text into chunks that fit a token budget while
// keeping sentences and paragraphs together where possible.
//
// Token counts are estimated as one token per four characters.
package text

import (
	"strings"
)

// TokenCount estimates the number of tokens in a string of n bytes.
func TokenCount(n int) int { return n / 4 }

// Separator sets tried in order. A nil entry means "cut in the middle".
var (
	plainTextSeparators = [][]byte{
		[]byte("\n\r"), []byte("."), []byte("?!"), []byte(";"), []byte(":"),
		[]byte(","), []byte(")]}"), []byte(" "), []byte("-"), nil,
	}
	markdownSeparators = [][]byte{
		[]byte("."), []byte("?!"), []byte(";"), []byte(":"), []byte(","),
		[]byte(")]}"), []byte(" "), []byte("-"), []byte("\n\r"), nil,
	}
)

// SplitPlainTextLines splits plain text into lines of at most
// maxTokensPerLine tokens, preferring line breaks, then sentence ends, then
// weaker punctuation.
func SplitPlainTextLines(text string, maxTokensPerLine int) []string {
	return splitLines(text, maxTokensPerLine, true, plainTextSeparators)
}

// SplitMarkDownLines splits markdown into lines of at most maxTokensPerLine
// tokens, preferring sentence punctuation over line breaks.
func SplitMarkDownLines(text string, maxTokensPerLine int) []string {
	return splitLines(text, maxTokensPerLine, true, markdownSeparators)
}

// SplitPlainTextParagraphs groups plain text lines into paragraphs of at
// most maxTokensPerParagraph tokens.
func SplitPlainTextParagraphs(lines []string, maxTokensPerParagraph int) []string {
	return splitParagraphs(lines, maxTokensPerParagraph, func(s string, max int) []string {
		return splitLines(s, max, false, plainTextSeparators)
	})
}

// SplitMarkdownParagraphs groups markdown lines into paragraphs of at most
// maxTokensPerParagraph tokens.
func SplitMarkdownParagraphs(lines []string, maxTokensPerParagraph int) []string {
	return splitParagraphs(lines, maxTokensPerParagraph, func(s string, max int) []string {
		return splitLines(s, max, false, markdownSeparators)
	})
}

func splitParagraphs(lines []string, maxTokens int, splitLong func(string, int) []string) []string {
	if len(lines) == 0 {
		return []string{}
	}

	var paragraphs []string
	var current strings.Builder

	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	for _, line := range lines {
		for _, piece := range splitLong(line, maxTokens) {
			if current.Len() > 0 && TokenCount(current.Len())+TokenCount(len(piece))+1 >= maxTokens {
				flush()
			}
			current.WriteString(piece)
			current.WriteByte('\n')
		}
	}
	flush()

	// A short trailing paragraph is folded into its predecessor when the
	// two fit together.
	if n := len(paragraphs); n > 1 {
		last, prev := paragraphs[n-1], paragraphs[n-2]
		if TokenCount(len(last)) < maxTokens/4 {
			lastWords, prevWords := strings.Fields(last), strings.Fields(prev)
			if len(lastWords)+len(prevWords) <= maxTokens {
				merged := strings.Join(append(prevWords, lastWords...), " ")
				paragraphs = append(paragraphs[:n-2], merged)
			}
		}
	}

	return paragraphs
}

func splitLines(text string, maxTokens int, trim bool, separators [][]byte) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines, wasSplit := split([]string{text}, maxTokens, separators[0], trim)
	for i := 1; i < len(separators) && wasSplit; i++ {
		lines, wasSplit = split(lines, maxTokens, separators[i], trim)
	}
	return lines
}

// split cuts every input longer than the budget at the separator closest to
// its middle, recursively. It reports whether any input was oversized.
func split(inputs []string, maxTokens int, separators []byte, trim bool) ([]string, bool) {
	var out []string
	oversized := false
	for _, in := range inputs {
		parts, over := splitOne(in, maxTokens, separators, trim)
		out = append(out, parts...)
		oversized = oversized || over
	}
	return out, oversized
}

func splitOne(input string, maxTokens int, separators []byte, trim bool) ([]string, bool) {
	if trim {
		input = strings.TrimSpace(input)
	}
	if TokenCount(len(input)) <= maxTokens || len(input) < 2 {
		return []string{input}, false
	}

	half := len(input) / 2
	cut := -1
	if separators == nil {
		cut = half
	} else {
		for offset := 0; offset < half; offset++ {
			// A separator in the last position would not shorten anything.
			if half+offset < len(input)-1 && isSeparator(input[half+offset], separators) {
				cut = half + offset
				break
			}
			if isSeparator(input[half-offset], separators) {
				cut = half - offset
				break
			}
		}
	}

	if cut < 0 {
		// No separator of this kind; leave the line for the next set.
		return []string{input}, true
	}

	first, second := input[:cut+1], input[cut+1:]
	if separators == nil {
		first, second = input[:cut], input[cut:]
	}

	var out []string
	for _, part := range []string{first, second} {
		if trim {
			part = strings.TrimSpace(part)
		}
		if part == "" {
			continue
		}
		sub, _ := splitOne(part, maxTokens, separators, trim)
		out = append(out, sub...)
	}
	return out, true
}

func isSeparator(c byte, separators []byte) bool {
	for _, s := range separators {
		if c == s {
			return true
		}
	}
	return false
}
