package template

import (
	"regexp"
	"strings"
)

const (
	starter   = '{'
	ender     = '}'
	varPrefix = '$'

	// "{{x}}" is the shortest template that can contain a block.
	minCodeBlockLength = 5
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ExtractBlocks splits a template into text, variable and code blocks.
//
// "{{" opens a block and the next "}}" closes it. A later "{{" before the
// close moves the opening, so in "{{{{$a}}" the innermost pair wins and the
// leading braces stay literal text. Content starting with '$' is a variable
// reference, anything else is a function call. A "{{ }}" block with no
// content is kept as literal text.
//
// Without validation the function never fails: degenerate input degrades to
// text. With validate set, unterminated and empty blocks, invalid variable
// names and unparsable calls are reported as *SyntaxError.
func ExtractBlocks(template string, validate bool) ([]Block, error) {
	if len(template) == 0 {
		return []Block{textBlock("")}, nil
	}
	if !validate && len(template) < minCodeBlockLength {
		return []Block{textBlock(template)}, nil
	}

	var (
		blocks     []Block
		endOfLast  int
		start      int
		startFound bool
	)

	for cursor := 0; cursor < len(template)-1; cursor++ {
		c, next := template[cursor], template[cursor+1]

		switch {
		case c == starter && next == starter:
			start = cursor
			startFound = true
		case c == ender && next == ender && startFound:
			if start > endOfLast {
				blocks = append(blocks, textBlock(template[endOfLast:start]))
			}

			cursor++
			source := template[start : cursor+1]
			block, err := classify(source, start, validate)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)

			endOfLast = cursor + 1
			startFound = false
		}
	}

	if validate && startFound {
		return nil, &SyntaxError{Kind: UnterminatedCode, Message: "code block opened with '{{' is never closed", Position: start}
	}

	if endOfLast < len(template) {
		blocks = append(blocks, textBlock(template[endOfLast:]))
	}

	return blocks, nil
}

func classify(source string, pos int, validate bool) (Block, error) {
	content := strings.TrimSpace(source[2 : len(source)-2])

	if content == "" {
		if validate {
			return Block{}, &SyntaxError{Kind: EmptyCode, Message: "code block is empty", Position: pos}
		}
		return textBlock(source), nil
	}

	if content[0] == varPrefix && !strings.ContainsAny(content, " \t\r\n") {
		if validate && !validName.MatchString(content[1:]) {
			return Block{}, &SyntaxError{Kind: InvalidVariableName, Message: "invalid variable name " + quote(content), Position: pos}
		}
		return Block{Type: VariableBlock, Content: content, Source: source}, nil
	}

	if validate {
		if _, err := parseCall(content); err != nil {
			return Block{}, &SyntaxError{Kind: InvalidCodeSyntax, Message: err.Error(), Position: pos}
		}
	}

	return Block{Type: CodeBlock, Content: content, Source: source}, nil
}

func quote(s string) string { return "'" + s + "'" }
