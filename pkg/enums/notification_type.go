package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderStatusChanged       NotificationType = "order_status_changed"
	NotificationTypeOrderSentBack            NotificationType = "order_sent_back"
	NotificationTypeOrderAssigned            NotificationType = "order_assigned"
	NotificationTypeOrderReturnedToQueue     NotificationType = "order_returned_to_queue"
	NotificationTypeExternalJobStatusChanged NotificationType = "external_job_status_changed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderStatusChanged,
	NotificationTypeOrderSentBack,
	NotificationTypeOrderAssigned,
	NotificationTypeOrderReturnedToQueue,
	NotificationTypeExternalJobStatusChanged,
}

func (n NotificationType) String() string {
	return string(n)
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
