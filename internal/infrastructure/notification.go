package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
)

// commandRunner executes an external notifier
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService sends desktop notifications when transfers end.
// It is a session observer: Notify only schedules the notification.
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Notify implements domain.Observer
func (n *NotificationService) Notify(event domain.Event) {
	if !n.config.Enabled {
		return
	}

	switch event.Kind {
	case domain.EventCompleted:
		go n.NotifyDownloadCompleted(event.Transfer)
	case domain.EventFailed:
		go n.NotifyDownloadFailed(event.Transfer)
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyDownloadCompleted sends notification when a preview lands in the library
func (n *NotificationService) NotifyDownloadCompleted(t domain.Transfer) {
	n.Send("Download Completed", truncateString(displayName(t), 60))
}

// NotifyDownloadFailed sends notification when a transfer fails
func (n *NotificationService) NotifyDownloadFailed(t domain.Transfer) {
	message := fmt.Sprintf("%s (%s)", truncateString(displayName(t), 40), t.ErrorKind)
	n.Send("Download Failed", message)
}

func displayName(t domain.Transfer) string {
	return domain.Track{Name: t.TrackName, Artist: t.Artist, SourceURL: t.SourceURL}.DisplayName()
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
