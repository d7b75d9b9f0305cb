// Package sinks implements concrete progress consumers: the live stream
// broadcaster, Prometheus, repository-backed storage, and structured logging.
// Each sink satisfies progress.Sink and is safe for repeated Consume/Close cycles.
package sinks
