// Package notify publishes planning-run lifecycle events: run started,
// suspended for clarification, resumed, completed, failed.
//
// Core types:
//   - Notifier: interface for sending notifications
//   - Event: the run event with type, message, and metadata
//
// Implementations:
//   - LogNotifier: logs events via slog
//   - WebhookNotifier: POSTs events to a generic webhook
//   - SlackNotifier: posts to a Slack incoming webhook
//   - MultiNotifier: fans out to several notifiers
//   - NopNotifier: discards everything
//
// Example usage:
//
//	notifier := notify.NewSlackNotifier(webhookURL,
//	    notify.WithSlackChannel("#planning"),
//	)
//	_ = notifier.Notify(ctx, notify.Event{
//	    Type:    notify.EventRunSuspended,
//	    RunID:   runID,
//	    Message: "2 clarification questions await answers",
//	})
package notify
