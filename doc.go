/*
Package sesame is a runtime for experiment definitions written in the
OpenSesame script language.

It parses a line-oriented definition into a tree of named items
(sequences, loops, sketchpads, responses, inline scripts), validates the
tree, and runs it with explicit prepare and run phases while tracking the
experiment variables. Experiments are saved as plain scripts or as
.opensesame.tar.gz archives that bundle the file pool.

# Concept

An Experiment owns three things: the global variable store, the item tree
(an arena of items referencing each other by name) and the file pool. The
execution engine walks the tree from the item named by the "start"
variable. Display, sound, responses and the data log are collaborators
injected by the host, so the same experiment runs headless in tests, in a
terminal, or behind a real presentation backend.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/sesame"
	)

	func main() {
		exp, err := sesame.New("stroop.opensesame.tar.gz", sesame.WithSubject(3))
		if err != nil {
			log.Fatal(err)
		}
		defer exp.Close()

		// Validation runs again inside Run; calling it first gives a
		// chance to report problems before any resource is touched.
		if err := exp.Validate(); err != nil {
			log.Fatal(err)
		}

		rec, err := exp.Run(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		log.Println("run", rec.ID, rec.Status)
	}
*/
package sesame
