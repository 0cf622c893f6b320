/*
Package script reads and writes the line-oriented experiment definition
language.

A definition is a sequence of global "set <name> <value>" lines and
"define <type> <name>" blocks whose bodies are indented by one tab:

	set start experiment

	define sequence experiment
		run welcome always
		run trials "[practice] = no"

	define sketchpad welcome
		set duration 1000
		draw textline text="Hello [subject_nr]"

The parser is type-agnostic for leaf items: their bodies are split into
"set" assignments, multi-line "__name__" ... "__end__" blocks and opaque
commands. Only sequence and loop bodies are interpreted structurally,
because the engine needs child references ahead of time.
*/
package script
