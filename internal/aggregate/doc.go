// Package aggregate merges the stage outputs and the link probes of one audit
// into its final report. Every merge here is deterministic: duplicates are
// keyed on normalized values, source pages accumulate, and results are
// independent of input order.
package aggregate
