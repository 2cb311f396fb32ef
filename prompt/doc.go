// Package prompt loads the prompt templates sent to the language model.
//
// Templates are Go text/template files named <name>.txt. A project can
// override any built-in prompt by placing a file of the same name in
// .supportflow/prompts/ or prompts/; otherwise the embedded default is used.
//
// Built-in prompts:
//   - classify: asks for one category name
//   - generate: drafts a customer response from ticket, context and feedback
//   - review: asks for APPROVED or "REJECTED: <feedback>"
//
// Example usage:
//
//	loader := prompt.NewLoader(".")
//	text, err := loader.Render(prompt.Review, map[string]any{
//	    "Subject":     ticket.Subject,
//	    "Description": ticket.Description,
//	    "Draft":       draft,
//	})
package prompt
