package notify

import (
	"context"
	"fmt"

	"github.com/randalmurphal/supportflow/httpclient"
)

// =============================================================================
// WebhookNotifier
// =============================================================================

// WebhookNotifier posts events as JSON to a generic HTTP webhook.
type WebhookNotifier struct {
	URL    string
	Client *httpclient.Client
}

// NewWebhookNotifier creates a webhook notifier. headers are sent with every
// request.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: httpclient.New(httpclient.Config{Service: "webhook", Headers: headers}),
	}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if err := n.Client.PostJSON(ctx, n.URL, event); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	return nil
}
