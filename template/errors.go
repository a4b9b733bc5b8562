package template

import "fmt"

// SyntaxErrorKind tells which rule a template violated.
type SyntaxErrorKind string

const (
	UnterminatedCode    SyntaxErrorKind = "UNTERMINATED_CODE"
	EmptyCode           SyntaxErrorKind = "EMPTY_CODE"
	InvalidVariableName SyntaxErrorKind = "INVALID_VARIABLE_NAME"
	InvalidCodeSyntax   SyntaxErrorKind = "INVALID_CODE_SYNTAX"
)

// SyntaxError is returned by ExtractBlocks in validating mode and by the
// renderer when a code block cannot be parsed.
type SyntaxError struct {
	Kind     SyntaxErrorKind
	Message  string
	Position int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error (%s) at %d: %s", e.Kind, e.Position, e.Message)
}
