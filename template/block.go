package template

import "strings"

// BlockType classifies a template span.
type BlockType int

const (
	// TextBlock is literal text copied to the output.
	TextBlock BlockType = iota
	// VariableBlock is a {{$name}} reference.
	VariableBlock
	// CodeBlock is a {{function args}} call.
	CodeBlock
)

func (t BlockType) String() string {
	switch t {
	case TextBlock:
		return "text"
	case VariableBlock:
		return "variable"
	case CodeBlock:
		return "code"
	default:
		return "unknown"
	}
}

// Block is an immutable classified span of a template.
//
// Content is the meaningful payload: the literal text for text blocks, the
// trimmed "$name" for variables and the trimmed call expression for code.
// Source is the exact span of the template the block was read from,
// delimiters and whitespace included, so joining the Source of every block
// reproduces the template.
type Block struct {
	Type    BlockType
	Content string
	Source  string
}

// VariableName returns the variable name of a variable block without the
// leading '$'.
func (b Block) VariableName() string {
	return strings.TrimPrefix(b.Content, string(varPrefix))
}

// Join concatenates the Source of every block.
func Join(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Source)
	}
	return sb.String()
}

func textBlock(s string) Block {
	return Block{Type: TextBlock, Content: s, Source: s}
}
