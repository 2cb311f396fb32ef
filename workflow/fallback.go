package workflow

import (
	"fmt"
	"strings"
)

// Fixed texts produced when an external capability is missing or fails.
const (
	// EscalationMessage is the final output of every escalated run.
	EscalationMessage = "This ticket has been escalated to our human support team for personalized assistance. " +
		"A support specialist will review your case and provide a detailed response within our standard response time. " +
		"Thank you for your patience."

	// ForwardedMessage replaces EscalationMessage if the escalation record
	// cannot be assembled.
	ForwardedMessage = "Your ticket has been forwarded to our support team."

	// CompletedMessage is the last-resort final output of finalization.
	CompletedMessage = "Response processing completed."

	// ReviewUnavailableFeedback accompanies the default approval when the
	// reviewer fails.
	ReviewUnavailableFeedback = "Review system unavailable, proceeding with response"

	// AutomatedReviewFeedback accompanies the default approval when no
	// reviewer is configured.
	AutomatedReviewFeedback = "Automated review completed"
)

// keywordRules is evaluated in order; the first rule with a matching keyword
// wins.
var keywordRules = []struct {
	category Category
	keywords []string
}{
	{CategoryBilling, []string{"bill", "payment", "charge", "refund", "price"}},
	{CategoryTechnical, []string{"api", "error", "bug", "technical", "integration"}},
	{CategorySecurity, []string{"security", "password", "login", "access", "authentication"}},
}

// ClassifyByKeywords is the deterministic local classifier used when the
// external classifier is unavailable. Matching is case-insensitive substring
// search over subject and description.
func ClassifyByKeywords(subject, description string) Category {
	text := strings.ToLower(subject + " " + description)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// ApologyDraft is the draft used when the generator fails.
func ApologyDraft(category Category) string {
	return fmt.Sprintf(
		"I apologize, but I'm experiencing technical difficulties. "+
			"Please contact our support team directly for assistance with your %s inquiry.",
		strings.ToLower(category.String()))
}

// TemplateDraft is the draft used when no generator is configured.
func TemplateDraft(t Ticket, category Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for contacting our %s support team.\n\n", strings.ToLower(category.String()))
	fmt.Fprintf(&b, "We have received your inquiry regarding: %s\n\n", t.Subject)
	b.WriteString("Our team is currently reviewing your request and will provide a detailed response within our standard response time.\n\n")
	b.WriteString("If this is an urgent matter, please contact our priority support line.\n\n")
	b.WriteString("Best regards,\nSupport Team")
	return b.String()
}

// EnhanceQuery builds the retrieval query for a ticket. The subject is
// repeated so it carries more weight than the description.
func EnhanceQuery(t Ticket) string {
	return strings.TrimSpace(strings.ToLower(t.Subject + " " + t.Subject + " " + t.Description))
}

// RefineQuery builds the retrieval query after a rejection.
func RefineQuery(t Ticket, feedback string) string {
	return strings.TrimSpace(t.Subject + " " + t.Description + " " + feedback)
}
