package notify

import (
	"context"
	"log/slog"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/infra/notifier"
	"omninews-ingest/internal/repository"
)

// PushChannel implements the Channel interface for FCM push
// notifications. Unlike Discord/Slack, a single Send fans out to every
// push-enabled subscriber of the item's channel rather than one fixed
// destination, so its retry contract diverges from the rest of
// Channel's documented policy: per §4.6 sends are independent and
// failures are logged without retry at this layer.
type PushChannel struct {
	sender      notifier.PushSender
	subscribers repository.SubscriptionRepository
	enabled     bool
}

// NewPushChannel creates a push channel backed by sender. If enabled is
// false (FCM disabled or its service account failed to load), Send is a
// no-op returning ErrChannelDisabled, matching the other channels'
// always-satisfied-interface convention.
func NewPushChannel(sender notifier.PushSender, subscribers repository.SubscriptionRepository, enabled bool) *PushChannel {
	return &PushChannel{sender: sender, subscribers: subscribers, enabled: enabled}
}

func (c *PushChannel) Name() string {
	return "push"
}

func (c *PushChannel) IsEnabled() bool {
	return c.enabled
}

// Send looks up every push-enabled subscriber of channel and sends each
// one its own FCM message. A subscriber's failure is logged and does
// not stop the others; Send only returns an error when every send in
// the batch failed (or the subscriber lookup itself failed).
func (c *PushChannel) Send(ctx context.Context, item *entity.Item, channel *entity.Channel) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if item == nil {
		return ErrInvalidItem
	}
	if channel == nil {
		return ErrInvalidChannel
	}

	subscribers, err := c.subscribers.SubscribersWithPush(ctx, channel.ID)
	if err != nil {
		return err
	}
	if len(subscribers) == 0 {
		return nil
	}

	title := channel.Title + "의 새로운 RSS"
	body := item.Title + "."

	failures := 0
	for _, subscriber := range subscribers {
		if subscriber.PushToken == "" {
			continue
		}
		if err := c.sender.SendPush(ctx, subscriber.PushToken, title, body); err != nil {
			failures++
			slog.Warn("push send failed, continuing batch",
				slog.Int64("channel_id", channel.ID),
				slog.String("subscriber_email", subscriber.Email),
				slog.Any("error", err))
			continue
		}
	}

	if failures == len(subscribers) {
		return ErrAllPushSendsFailed
	}
	return nil
}
