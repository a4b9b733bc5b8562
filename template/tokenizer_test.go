package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBlocks_EdgeCases1(t *testing.T) {
	blocks, err := ExtractBlocks("}}{{{ {$a}}}} {{b}}x}}", false)
	require.NoError(t, err)
	require.Len(t, blocks, 5)

	assert.Equal(t, Block{Type: TextBlock, Content: "}}{", Source: "}}{"}, blocks[0])
	assert.Equal(t, CodeBlock, blocks[1].Type)
	assert.Equal(t, "{$a", blocks[1].Content)
	assert.Equal(t, TextBlock, blocks[2].Type)
	assert.Equal(t, "}} ", blocks[2].Content)
	assert.Equal(t, CodeBlock, blocks[3].Type)
	assert.Equal(t, "b", blocks[3].Content)
	assert.Equal(t, TextBlock, blocks[4].Type)
	assert.Equal(t, "x}}", blocks[4].Content)
}

func TestExtractBlocks_EdgeCases2(t *testing.T) {
	blocks, err := ExtractBlocks("}}{{{{$a}}}} {{b}}$x}}", false)
	require.NoError(t, err)
	require.Len(t, blocks, 5)

	assert.Equal(t, "}}{{", blocks[0].Content)
	assert.Equal(t, VariableBlock, blocks[1].Type)
	assert.Equal(t, "$a", blocks[1].Content)
	assert.Equal(t, "a", blocks[1].VariableName())
	assert.Equal(t, "}} ", blocks[2].Content)
	assert.Equal(t, CodeBlock, blocks[3].Type)
	assert.Equal(t, "b", blocks[3].Content)
	assert.Equal(t, TextBlock, blocks[4].Type)
	assert.Equal(t, "$x}}", blocks[4].Content)
}

func TestExtractBlocks_ShortAndEmpty(t *testing.T) {
	blocks, err := ExtractBlocks("", false)
	require.NoError(t, err)
	assert.Equal(t, []Block{{Type: TextBlock}}, blocks)

	blocks, err = ExtractBlocks("{{a}", false)
	require.NoError(t, err)
	assert.Equal(t, []Block{{Type: TextBlock, Content: "{{a}", Source: "{{a}"}}, blocks)

	blocks, err = ExtractBlocks("ab", true)
	require.NoError(t, err)
	assert.Equal(t, []Block{{Type: TextBlock, Content: "ab", Source: "ab"}}, blocks)
}

func TestExtractBlocks_ShortTemplatesValidated(t *testing.T) {
	tests := []struct {
		template string
		kind     SyntaxErrorKind
	}{
		{"{{}}", EmptyCode},
		{"x{{", UnterminatedCode},
		{"{{a}", UnterminatedCode},
		{"{{", UnterminatedCode},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			_, err := ExtractBlocks(tt.template, true)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.kind, se.Kind)
		})
	}
}

func TestExtractBlocks_Classification(t *testing.T) {
	blocks, err := ExtractBlocks("Hi {{ $name }}, today is {{time.Today}}. {single} $a", false)
	require.NoError(t, err)
	require.Len(t, blocks, 5)

	assert.Equal(t, TextBlock, blocks[0].Type)
	assert.Equal(t, VariableBlock, blocks[1].Type)
	assert.Equal(t, "name", blocks[1].VariableName())
	assert.Equal(t, CodeBlock, blocks[3].Type)
	assert.Equal(t, "time.Today", blocks[3].Content)
	assert.Equal(t, ". {single} $a", blocks[4].Content)
}

func TestExtractBlocks_EmptyBlockIsText(t *testing.T) {
	blocks, err := ExtractBlocks("a {{  }} b", false)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, TextBlock, blocks[1].Type)
	assert.Equal(t, "{{  }}", blocks[1].Content)
}

func TestExtractBlocks_Lossless(t *testing.T) {
	templates := []string{
		"",
		"abc",
		"}}{{{ {$a}}}} {{b}}x}}",
		"}}{{{{$a}}}} {{b}}$x}}",
		"{{ $a }}{{b c='d'}}{{",
		"{{{{{{}}}}}}",
		"text {{ unterminated",
		"{{x}}}}}}{{y}}",
		"multi\nline {{ $v }}\n{{ f \"q\" }}",
	}

	for _, tpl := range templates {
		blocks, err := ExtractBlocks(tpl, false)
		require.NoError(t, err, tpl)
		assert.Equal(t, tpl, Join(blocks), tpl)
	}
}

func TestExtractBlocks_Validation(t *testing.T) {
	cases := map[string]SyntaxErrorKind{
		"hello {{ world":         UnterminatedCode,
		"hello {{   }} world":    EmptyCode,
		"{{$a-b}}":               InvalidVariableName,
		"{{$}} x":                InvalidVariableName,
		"{{ fn 'unterminated }}": InvalidCodeSyntax,
		"{{ fn a b }}":           InvalidCodeSyntax,
		"{{ a.b.c }}":            InvalidCodeSyntax,
	}

	for tpl, kind := range cases {
		_, err := ExtractBlocks(tpl, true)
		var syntaxErr *SyntaxError
		require.ErrorAs(t, err, &syntaxErr, tpl)
		assert.Equal(t, kind, syntaxErr.Kind, tpl)
	}

	_, err := ExtractBlocks("{{ skill.fn $input lang='fr' }} {{$ok}}", true)
	assert.NoError(t, err)
}

func TestParseCall(t *testing.T) {
	c, err := parseCall(`writer.Translate $text lang="Japanese" tone=$mood style=plain`)
	require.NoError(t, err)
	assert.Equal(t, "writer", c.skill)
	assert.Equal(t, "Translate", c.function)
	require.NotNil(t, c.input)
	assert.Equal(t, argument{value: "text", variable: true}, *c.input)
	assert.Equal(t, []namedArgument{
		{name: "lang", value: argument{value: "Japanese"}},
		{name: "tone", value: argument{value: "mood", variable: true}},
		{name: "style", value: argument{value: "plain"}},
	}, c.named)

	c, err = parseCall(`echo 'it\'s "fine"'`)
	require.NoError(t, err)
	assert.Equal(t, "", c.skill)
	assert.Equal(t, `it's "fine"`, c.input.value)

	_, err = parseCall(`fn name=`)
	assert.Error(t, err)
	_, err = parseCall(`fn =x`)
	assert.Error(t, err)
	_, err = parseCall(`"fn"`)
	assert.Error(t, err)
}
