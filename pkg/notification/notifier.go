package notification

// NotificationSystem represents a delivery channel (email for now).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g. "email_confirmation").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	EmailConfirmationNotice NoticeType = "email_confirmation"
	PasswordResetNotice     NoticeType = "password_reset"
	EmailChangeNotice       NoticeType = "email_change"
)

// NotificationData carries the recipient and the values interpolated into
// the notice template.
type NotificationData struct {
	To   string            // recipient address
	Data map[string]string // template values (e.g. Name, Link)
}

// NoticeTemplate holds the subject and body templates for one notice type
// on one system.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier sends a notice over one delivery channel.
type Notifier interface {
	Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error
}
