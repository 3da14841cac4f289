package services

import "log"

// Notifier receives user-visible notifications. The gateway reports each
// request failure exactly once through this; callers must not re-report
// the same error.
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

type NotifyLevel string

const (
	NotifyInfo    NotifyLevel = "info"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
)

// LogNotifier writes notifications to the process log. The headless daemon
// uses it in place of a toast surface.
type LogNotifier struct{}

func (LogNotifier) Notify(level NotifyLevel, message string) {
	switch level {
	case NotifyError:
		log.Printf("❌ %s", message)
	case NotifyWarning:
		log.Printf("⚠️  %s", message)
	default:
		log.Printf("🔔 %s", message)
	}
}
