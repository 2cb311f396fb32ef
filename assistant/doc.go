// Package assistant implements the pipeline's Classifier, Generator and
// Reviewer on top of a language model.
//
// Each capability sends one prompt (see package prompt) through a Completer.
// The Completer interface is the Complete half of flowgraph's llm.Client, so
// llm.NewClaudeCLI and llm.MockClient plug in directly. An OpenAI-compatible
// backend built on langchaingo is also provided.
//
// Example usage:
//
//	a := assistant.New(assistant.Options{
//	    Classifier: assistant.NewClaudeCLI("claude-haiku-3-5-20241022"),
//	    Generator:  assistant.NewClaudeCLI("claude-sonnet-4-20250514"),
//	    Reviewer:   assistant.NewClaudeCLI("claude-sonnet-4-20250514"),
//	})
//	orch := workflow.New(workflow.Dependencies{
//	    Classifier: a,
//	    Generator:  a,
//	    Reviewer:   a,
//	}, workflow.DefaultConfig())
//
// Errors from the model are returned unchanged; the pipeline stages turn
// them into their fallback behaviour.
package assistant
