package notice

import (
	"embed"
	"log/slog"

	"github.com/tendant/simple-registration/pkg/notification"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// Option configures templates and notifiers on a NotificationManager.
type Option func(*notification.NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration.
func WithSMTP(config notification.SMTPConfig) Option {
	return func(nm *notification.NotificationManager) error {
		emailNotifier, err := notification.NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(notification.EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary email notifier, used by tests.
func WithNotifier(notifier notification.Notifier) Option {
	return func(nm *notification.NotificationManager) error {
		nm.RegisterNotifier(notification.EmailSystem, notifier)
		return nil
	}
}

// WithEmailConfirmationTemplate registers the confirmation email template.
func WithEmailConfirmationTemplate() Option {
	return func(nm *notification.NotificationManager) error {
		return nm.RegisterNotification(notification.EmailConfirmationNotice, notification.EmailSystem, notification.NoticeTemplate{
			Subject: "Confirm Your Email",
			Html:    loadTemplate("templates/email/email_confirmation.html"),
		})
	}
}

// WithPasswordResetTemplate registers the password reset email template.
func WithPasswordResetTemplate() Option {
	return func(nm *notification.NotificationManager) error {
		return nm.RegisterNotification(notification.PasswordResetNotice, notification.EmailSystem, notification.NoticeTemplate{
			Subject: "Reset Your Password",
			Html:    loadTemplate("templates/email/password_reset.html"),
		})
	}
}

// WithEmailChangeTemplate registers the email change confirmation template.
func WithEmailChangeTemplate() Option {
	return func(nm *notification.NotificationManager) error {
		return nm.RegisterNotification(notification.EmailChangeNotice, notification.EmailSystem, notification.NoticeTemplate{
			Subject: "Confirm Your New Email",
			Html:    loadTemplate("templates/email/email_change.html"),
		})
	}
}

// WithDefaultTemplates registers every registration notice template.
func WithDefaultTemplates() Option {
	return func(nm *notification.NotificationManager) error {
		options := []Option{
			WithEmailConfirmationTemplate(),
			WithPasswordResetTemplate(),
			WithEmailChangeTemplate(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManager creates a notification manager with the provided
// options applied.
func NewNotificationManager(opts ...Option) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
