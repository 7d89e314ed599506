package enums

import "fmt"

// NotificationKind maps to the notification_kind enum in Postgres.
type NotificationKind string

const (
	NotificationPairRequest    NotificationKind = "pair_request"
	NotificationPairAccepted   NotificationKind = "pair_accepted"
	NotificationPairRejected   NotificationKind = "pair_rejected"
	NotificationAdminMessage   NotificationKind = "admin_message"
	NotificationListingBlocked NotificationKind = "listing_blocked"
	NotificationListingDeleted NotificationKind = "listing_deleted"
	NotificationAccountBlocked NotificationKind = "account_blocked"
)

var validNotificationKinds = []NotificationKind{
	NotificationPairRequest,
	NotificationPairAccepted,
	NotificationPairRejected,
	NotificationAdminMessage,
	NotificationListingBlocked,
	NotificationListingDeleted,
	NotificationAccountBlocked,
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
