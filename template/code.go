package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var functionRef = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)?$`)

// argument is a literal or a $variable reference.
type argument struct {
	value    string
	variable bool
}

type namedArgument struct {
	name  string
	value argument
}

// call is the parsed form of a code block:
//
//	[skill.]function [positional] [name=value ...]
//
// where positional and value are a $variable, a quoted literal or a bare word.
type call struct {
	skill    string
	function string
	input    *argument
	named    []namedArgument
}

func (c *call) qualifiedName() string {
	if c.skill == "" {
		return c.function
	}
	return c.skill + "." + c.function
}

type codeToken struct {
	name   string
	value  string
	quoted bool
}

func parseCall(content string) (*call, error) {
	tokens, err := lexCode(content)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty code block")
	}

	head := tokens[0]
	if head.name != "" || head.quoted || !functionRef.MatchString(head.value) {
		return nil, fmt.Errorf("invalid function name %s", quote(head.value))
	}

	c := &call{function: head.value}
	if skill, fn, ok := strings.Cut(head.value, "."); ok {
		c.skill, c.function = skill, fn
	}

	for _, tok := range tokens[1:] {
		arg, err := toArgument(tok)
		if err != nil {
			return nil, err
		}

		if tok.name == "" {
			if c.input != nil {
				return nil, fmt.Errorf("function %s accepts a single positional argument", c.qualifiedName())
			}
			c.input = &arg
			continue
		}

		if !validName.MatchString(tok.name) {
			return nil, fmt.Errorf("invalid argument name %s", quote(tok.name))
		}
		c.named = append(c.named, namedArgument{name: tok.name, value: arg})
	}

	return c, nil
}

func toArgument(tok codeToken) (argument, error) {
	if tok.quoted || tok.value == "" || tok.value[0] != varPrefix {
		return argument{value: tok.value}, nil
	}
	name := tok.value[1:]
	if !validName.MatchString(name) {
		return argument{}, fmt.Errorf("invalid variable name %s", quote(tok.value))
	}
	return argument{value: name, variable: true}, nil
}

func lexCode(s string) ([]codeToken, error) {
	var tokens []codeToken

	i := 0
	for i < len(s) {
		if isSpace(s[i]) {
			i++
			continue
		}

		var tok codeToken

		j := i
		for j < len(s) && !isSpace(s[j]) && s[j] != '=' && !isQuote(s[j]) {
			j++
		}
		if j < len(s) && s[j] == '=' {
			tok.name = s[i:j]
			if tok.name == "" {
				return nil, errors.New("argument without name")
			}
			i = j + 1
			if i >= len(s) || isSpace(s[i]) {
				return nil, fmt.Errorf("argument %s has no value", quote(tok.name))
			}
		}

		if isQuote(s[i]) {
			value, n, err := readQuoted(s[i:])
			if err != nil {
				return nil, err
			}
			tok.value, tok.quoted = value, true
			i += n
			if i < len(s) && !isSpace(s[i]) {
				return nil, fmt.Errorf("unexpected %q after quoted value", s[i])
			}
		} else {
			j = i
			for j < len(s) && !isSpace(s[j]) {
				j++
			}
			tok.value = s[i:j]
			i = j
		}

		tokens = append(tokens, tok)
	}

	return tokens, nil
}

// readQuoted reads a '...' or "..." literal at the start of s. A backslash
// escapes the quote character and itself; other escapes are kept verbatim.
func readQuoted(s string) (string, int, error) {
	q := s[0]

	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && (s[i+1] == q || s[i+1] == '\\'):
			sb.WriteByte(s[i+1])
			i++
		case c == q:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
		}
	}

	return "", 0, fmt.Errorf("unterminated string starting with %c", q)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isQuote(c byte) bool { return c == '\'' || c == '"' }
