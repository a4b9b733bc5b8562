// Package template implements the prompt template language.
//
// A template is plain text with two kinds of blocks:
//
//	{{$name}}                       variable reference
//	{{skill.function}}              function call with the current input
//	{{function $var}}               function call with $var as input
//	{{function 'text' lang="fr"}}   positional literal plus named arguments
//
// ExtractBlocks tokenizes a template into Text, Variable and Code blocks in
// a single left to right pass. Engine renders blocks against a core.Context:
// variables are substituted first, then code blocks are evaluated against a
// frozen snapshot of the variables and replaced with the function output.
package template
