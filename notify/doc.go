// Package notify delivers ticket outcome notifications.
//
// Notifiers:
//   - SlackNotifier: posts to a Slack incoming webhook
//   - WebhookNotifier: POSTs the event as JSON to any URL
//
// Slack and webhook delivery retry 429 and 5xx responses through httpclient.
//   - LogNotifier: writes the event to slog
//   - MultiNotifier: fans out to several notifiers
//   - NopNotifier: discards everything
//
// Example usage:
//
//	n := notify.NewMultiNotifier(
//	    notify.NewLogNotifier(nil),
//	    notify.NewSlackNotifier(webhookURL, notify.WithSlackChannel("#support")),
//	)
//	orch := workflow.New(deps, cfg, workflow.WithNotifier(n))
package notify
