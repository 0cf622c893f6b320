/*
Package dsl provides a Go DSL for programmatically constructing experiments.

It writes the same definition text a researcher would, through a fluent
builder, and hands it to the script parser. This is useful for tests,
generated experiments and embedding.

Example usage:

	b := dsl.New()
	b.Set("title", "Stroop")

	b.Sequence("experiment").
		Run("welcome").
		Run("trials")

	b.Loop("trials").
		Repeat(2).
		Cycle(0, "color", "red").
		Cycle(1, "color", "blue").
		Item("trial")

	b.Item("sketchpad", "welcome").
		Set("duration", 0).
		Command(`draw textline text="Welcome"`)

	def, tr, err := b.Build(items.NewRegistry())
*/
package dsl
