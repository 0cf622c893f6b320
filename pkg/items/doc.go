/*
Package items implements the built-in item kinds and run-condition
evaluation.

Structural kinds (sequence, loop) execute other items through
domain.RunContext.Exec and implement domain.Parent so the tree can validate
their references. Leaf kinds talk to the display, sound, responder and log
collaborators exclusively through the RunContext, which keeps them usable
headlessly.

Conditions and inline scripts are evaluated with Starlark. Variable
references in the classic [name] syntax are rewritten before evaluation.
*/
package items
