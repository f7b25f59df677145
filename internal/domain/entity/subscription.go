package entity

// Subscription is the many-to-many relation between a User and a
// Channel.
type Subscription struct {
	UserID           int64
	ChannelID        int64
	NotificationPush bool
}

// User carries only the fields read by this core: the push token and
// email used for notification fan-out.
type User struct {
	ID        int64
	Email     string
	PushToken string
}

// Subscriber is the narrow projection of a User returned by
// SubscribersWithPush: only subscribers with a non-empty push token and
// NotificationPush = true are notifiable.
type Subscriber struct {
	Email     string
	PushToken string
}
