// Package notify provides use cases for dispatching notifications across multiple channels.
// It implements business logic for notifying subscribers about newly ingested items via
// delivery channels (Discord, Slack, push) with circuit breakers, rate limiting, and
// observability.
package notify

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// Channel represents a notification delivery channel (Discord, Slack, push, etc.).
// Each channel implementation handles its own rate limiting, retries, and
// error handling.
//
// Retry Policy Contract:
//   - Transient failures (5xx, network errors): One retry after 5 seconds (max 2 attempts)
//   - Rate limits (429): Sleep for retry_after duration, then retry (same 2-attempt limit)
//   - Client errors (4xx except 429): No retry
//   - Context timeout: No retry
//
// Thread Safety:
//   - All methods must be safe for concurrent use by multiple goroutines
//
// Context Handling:
//   - Implementations must respect context cancellation and timeout
//   - request_id should be extracted from context for logging
type Channel interface {
	// Name returns the human-readable name of the channel (e.g., "discord", "slack", "push").
	// This is used for logging, metrics, and health check endpoints.
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	// Disabled channels will be skipped during notification dispatching.
	IsEnabled() bool

	// Send sends a notification about a newly ingested item to this channel.
	//
	// Implementations must:
	//   - Respect context cancellation/timeout
	//   - Apply rate limiting
	//   - Retry transient failures according to retry policy
	//   - Log all attempts with request_id from context
	//   - Sanitize sensitive data (webhook URLs, API keys, service account tokens) in error messages
	//
	// Parameters:
	//   - ctx: Context with timeout and request_id (stored under this package's unexported requestIDKey)
	//   - item: The item to notify about (must not be nil)
	//   - channel: The feed channel the item was ingested from (must not be nil)
	//
	// Returns:
	//   - error: Non-nil if notification failed after all retries
	Send(ctx context.Context, item *entity.Item, channel *entity.Channel) error
}
