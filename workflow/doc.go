// Package workflow runs support tickets through the resolution pipeline.
//
// Pipeline:
//
//	classify_ticket -> retrieve_context -> generate_response -> review_response
//	review_response -> finalize_response             (approved)
//	review_response -> refine_context                (rejected, retries left)
//	review_response -> escalate_ticket               (rejected, retries spent)
//	refine_context  -> generate_response
//
// Core types:
//   - Ticket: the customer's subject and description
//   - State: the record threaded through every stage of one run
//   - Nodes: the seven stage handlers, one NodeFunc per Stage
//   - Route: the pure review router; its Decision carries the retry increment
//   - Orchestrator: the driver that executes stages, checkpoints after each
//     transition and returns an Outcome
//
// External capabilities (Classifier, Retriever, Generator, Reviewer) are
// injected through Dependencies. Each one may be nil or may fail; the stage
// that uses it falls back to local behaviour and the run always ends resolved
// or escalated.
//
// Example usage:
//
//	orch := workflow.New(workflow.Dependencies{
//	    Classifier: classifier,
//	    Retriever:  kb,
//	    Generator:  generator,
//	    Reviewer:   reviewer,
//	    Sink:       escalation.NewCSVSink("escalations.csv"),
//	}, workflow.DefaultConfig())
//	outcome, err := orch.Run(ctx, workflow.Ticket{Subject: "Refund request", Description: "I was charged twice"})
package workflow
