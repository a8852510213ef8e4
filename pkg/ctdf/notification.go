package ctdf

// Notification is a message for a person rather than a sensor, eg. a new situation at a stop
type Notification struct {
	Type   NotificationType
	StopID string

	Title   string
	Message string
}

type NotificationType string

const (
	NotificationTypeSituation NotificationType = "Situation"
	NotificationTypeReauth    NotificationType = "Reauth"
)

// NewNotificationFromEvent returns nil for events nobody needs to be told about
func NewNotificationFromEvent(e *Event) *Notification {
	var notificationType NotificationType

	switch e.Type {
	case EventTypeSituationCreated:
		notificationType = NotificationTypeSituation
	case EventTypeStopReauthRequired:
		notificationType = NotificationTypeReauth
	default:
		return nil
	}

	notificationData := e.GetNotificationData()

	return &Notification{
		Type:    notificationType,
		StopID:  e.StopID(),
		Title:   notificationData.Title,
		Message: notificationData.Message,
	}
}
