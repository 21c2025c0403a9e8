package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-registration/pkg/notification"
)

func TestTemplatesAreEmbedded(t *testing.T) {
	for _, filename := range []string{
		"templates/email/email_confirmation.html",
		"templates/email/password_reset.html",
		"templates/email/email_change.html",
	} {
		content := loadTemplate(filename)
		assert.NotEmpty(t, content, "template %s missing", filename)
		assert.Contains(t, content, "{{.Link}}", "template %s must interpolate the code link", filename)
	}
}

func TestNewNotificationManagerWithDefaults(t *testing.T) {
	mock := &notification.MockNotifier{}
	nm, err := NewNotificationManager(WithNotifier(mock), WithDefaultTemplates())
	require.NoError(t, err)

	err = nm.SendEmail(notification.EmailConfirmationNotice, notification.NotificationData{
		To:   "a@x.com",
		Data: map[string]string{"Name": "A", "Link": "http://localhost/confirm?code=abc", "ExpiryHours": "1"},
	})
	require.NoError(t, err)

	err = nm.SendEmail(notification.PasswordResetNotice, notification.NotificationData{
		To:   "a@x.com",
		Data: map[string]string{"Name": "A", "Link": "http://localhost/reset?code=abc", "ExpiryHours": "1"},
	})
	require.NoError(t, err)

	err = nm.SendEmail(notification.EmailChangeNotice, notification.NotificationData{
		To:   "new@x.com",
		Data: map[string]string{"Name": "A", "Link": "http://localhost/update?code=abc", "ExpiryHours": "1"},
	})
	require.NoError(t, err)

	assert.Len(t, mock.Sent(), 3)
}
