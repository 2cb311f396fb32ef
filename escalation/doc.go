// Package escalation records tickets handed off to human agents.
//
// A Record captures everything a support agent needs to pick up a ticket the
// automated pipeline could not resolve: the ticket itself, every draft, every
// review verdict and the knowledge-base sources consulted.
//
// Sinks:
//   - CSVSink: append-only audit log, one row per escalation
//   - NATSSink: publishes the record as JSON on a subject
//   - GitHubIssueSink / GitLabIssueSink: opens an issue for the handoff
//   - MultiSink: writes to several sinks
//   - NopSink: discards records
//
// All sinks are safe for concurrent use by independent runs.
package escalation
