// Package task maps pipeline capabilities to language model choices.
//
// Task types:
//   - Classify: one-word category answer, fast tier
//   - Generate: customer-facing draft, default tier
//   - Review: approve or reject a draft, default tier
//
// Example usage:
//
//	models := task.Models(map[task.Type]string{task.Review: "claude-opus-4-20250514"})
//	classifierModel := models[task.Classify]
package task
