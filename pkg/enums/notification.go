package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeAuctionWon       NotificationType = "auction_won"
	NotificationTypeAuctionCompleted NotificationType = "auction_completed"
	NotificationTypeAuctionNoBids    NotificationType = "auction_no_bids"
	NotificationTypeOutbid           NotificationType = "outbid"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeAuctionWon,
	NotificationTypeAuctionCompleted,
	NotificationTypeAuctionNoBids,
	NotificationTypeOutbid,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationChannel selects the delivery strategy for a dispatched intent.
type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "in_app"
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelPush  NotificationChannel = "push"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelInApp,
	NotificationChannelEmail,
	NotificationChannelPush,
}

// IsValid reports whether the channel is known.
func (c NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == c {
			return true
		}
	}
	return false
}
