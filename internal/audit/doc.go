// Package audit is the orchestration boundary of SmartQA. It validates a
// request, crawls the site, runs the oracle stages alongside the link probes,
// and hands the merged report back to the caller.
package audit
