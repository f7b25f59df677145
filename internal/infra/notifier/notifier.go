// Package notifier provides abstraction for sending notifications about ingested items.
// It defines the Notifier interface which allows different notification mechanisms
// (Discord, Slack, push, etc.) to be used interchangeably through dependency injection.
//
// The package includes implementations for Discord webhooks, Slack webhooks, and a
// no-op notifier for when notifications are disabled.
package notifier

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// Notifier is an interface for sending item notifications.
// Implementations should handle rate limiting, retries, and error logging internally.
type Notifier interface {
	// NotifyItem sends a notification about a newly ingested item.
	// The notification should include item metadata (title, link, description) and
	// the channel it was ingested from.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - item: The item to notify about (must not be nil)
	//   - channel: The feed channel the item came from (must not be nil)
	//
	// Returns:
	//   - error: Non-nil if the notification failed after all retry attempts
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Apply rate limiting to prevent API abuse
	//   - Retry transient failures with exponential backoff
	//   - Log all attempts with the request ID for debugging
	//   - Respect context cancellation
	NotifyItem(ctx context.Context, item *entity.Item, channel *entity.Channel) error
}
