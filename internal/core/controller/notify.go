package controller

import "github.com/neilberkman/cfchat/internal/core/models"

type NotificationKind int

const (
	SessionLoaded NotificationKind = iota
	SessionDeleted
	NewChatStarted
)

func (k NotificationKind) String() string {
	switch k {
	case SessionLoaded:
		return "session loaded"
	case SessionDeleted:
		return "session deleted"
	case NewChatStarted:
		return "new chat started"
	default:
		return "unknown"
	}
}

// Notification reports one successful transition. Failures never notify.
type Notification struct {
	Kind      NotificationKind
	SessionID models.SessionID
	Title     string
}

// Message is the user-facing text for the notification.
func (n Notification) Message() string {
	switch n.Kind {
	case SessionLoaded:
		if n.Title != "" {
			return "Loaded: " + n.Title
		}
		return "Session loaded"
	case SessionDeleted:
		return "Session deleted"
	case NewChatStarted:
		return "New chat started"
	}
	return n.Kind.String()
}

// Notifier displays notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}
