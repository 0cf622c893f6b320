/*
Package vars implements the typed, ordered variable stores used by experiments
and items.

A Store maps case-sensitive names to scalar Values (integers, floats, yes/no
booleans and strings) and remembers insertion order, so that serializing a
store and parsing it back yields the same sequence of variables.

A Scope chains stores together for one executing item. Lookups go to the
item's own store first, then (when transparent variables are enabled) to the
stores of its ancestors, nearest first, and finally to the global store.
*/
package vars
