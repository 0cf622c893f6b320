/*
Package ports defines the driven ports (interfaces) of the sesame runtime.

These interfaces decouple the execution engine from the collaborators that
actually draw stimuli, play sound, collect responses, write the data log and
persist run records, so the core stays usable headlessly.

# Key Interfaces

  - Display, Sound, Responder: stimulus and response backends.
  - LogSink: the per-run data log (append-row, flush, close).
  - RecordStore: persistence for "last known good" run records.
  - DistributedLocker: exclusive ownership of log files and pool folders across processes.
*/
package ports
