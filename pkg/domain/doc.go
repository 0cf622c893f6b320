/*
Package domain contains the core domain model of the sesame runtime.

It defines the capability set every item implements, the context the engine
hands to items while they prepare and run, the lifecycle hooks used for
observability, and the error taxonomy shared by parsing, validation,
execution and persistence. The package is free of I/O.

# Key Entities

  - Item: a named, typed node of the experiment tree that can be prepared and run.
  - Parent: an item that references other items by name (sequence, loop).
  - RunContext: the explicit per-run context threaded through Prepare and Run.
  - RunRecord: the auditable "last known good" record persisted before a run.
*/
package domain
