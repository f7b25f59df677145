package repository

import (
	"context"

	"omninews-ingest/internal/domain/entity"
)

// SubscriptionRepository is the C1 façade over subscriptions and the
// users they reference.
type SubscriptionRepository interface {
	// SubscribersWithPush returns users subscribed to channelID with a
	// non-empty push token and NotificationPush = true.
	SubscribersWithPush(ctx context.Context, channelID int64) ([]entity.Subscriber, error)
}
