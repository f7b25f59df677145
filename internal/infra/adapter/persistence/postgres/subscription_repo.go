package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/repository"
)

// SubscriptionRepo implements repository.SubscriptionRepository.
type SubscriptionRepo struct{ db *sql.DB }

func NewSubscriptionRepo(db *sql.DB) repository.SubscriptionRepository {
	return &SubscriptionRepo{db: db}
}

func (r *SubscriptionRepo) SubscribersWithPush(ctx context.Context, channelID int64) ([]entity.Subscriber, error) {
	const query = `
SELECT u.email, u.push_token
FROM subscriptions s
JOIN users u ON u.id = s.user_id
WHERE s.channel_id = $1
  AND s.notification_push = TRUE
  AND u.push_token IS NOT NULL
  AND u.push_token != ''`

	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("SubscribersWithPush: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := make([]entity.Subscriber, 0, 16)
	for rows.Next() {
		var s entity.Subscriber
		if err := rows.Scan(&s.Email, &s.PushToken); err != nil {
			return nil, fmt.Errorf("SubscribersWithPush: scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
