/*
Package observability provides tools for monitoring experiment runs.

It binds Prometheus metrics and structured log records to the engine's
lifecycle hooks, so any run can be measured without the items knowing.
*/
package observability
