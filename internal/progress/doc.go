// Package progress carries audit progress from the pipeline to listeners. A
// non-blocking Hub batches events on a background goroutine and fans them out
// to sinks: the stream broadcaster, structured logs, Prometheus, or Postgres.
package progress
