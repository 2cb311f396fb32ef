// Package supportflow automates first-line customer support.
//
// A ticket moves through a fixed pipeline: it is classified into one of four
// categories, matched against a categorised knowledge base, answered with a
// drafted response, and reviewed. A rejected draft is refined with the
// reviewer's feedback up to twice before the ticket is escalated to a human
// agent. Every stage is checkpointed so an interrupted run can be resumed.
//
// The module is organized into subpackages by concern:
//
//   - workflow: ticket state, pipeline stages and the orchestrator
//   - retrieval: knowledge base loading, search and hot reload
//   - assistant: language model classifier, generator and reviewer
//   - escalation: sinks for escalation records (CSV, NATS, GitHub, GitLab)
//   - checkpoint: run checkpoint stores (memory, file, SQLite)
//   - notify: outcome notifications (Slack, webhook, log)
//   - server: HTTP API for submitting tickets and inspecting runs
//   - config: layered configuration and validated settings
//   - auth: bearer tokens for the HTTP API
//   - metrics: Prometheus collectors
//   - prompt: prompt templates
//   - task: per-task model selection
//   - httpclient: JSON delivery with retries
//   - errors: user-facing CLI errors and exit codes
//   - testutil: fakes and fixtures for tests
//
// # Quick Start
//
//	kb, _ := retrieval.New(ctx, retrieval.Options{Dir: "data"})
//	orch := workflow.New(workflow.Dependencies{
//	    Retriever: kb,
//	    Sink:      escalation.NewCSVSink("escalations.csv"),
//	}, workflow.DefaultConfig())
//
//	out, err := orch.Run(ctx, workflow.Ticket{
//	    Subject:     "Refund request",
//	    Description: "I was charged twice",
//	})
//
// Capabilities left nil fall back to deterministic local behaviour: keyword
// classification, a template draft and automatic approval.
//
// The supportflow command in cmd/supportflow wires everything from
// configuration.
package supportflow
