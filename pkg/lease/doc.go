/*
Package lease grants exclusive ownership of shared resources, such as a data
log path or a pool folder, to one live experiment at a time.

Leases are held in-process and, when a ports.DistributedLocker is configured,
mirrored across processes. Acquisition never waits: a held resource is
reported as domain.ErrResourceBusy.
*/
package lease
