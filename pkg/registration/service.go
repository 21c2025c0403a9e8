package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/simple-registration/pkg/actioncode"
	"github.com/tendant/simple-registration/pkg/directory"
	"github.com/tendant/simple-registration/pkg/notification"
	"github.com/tendant/simple-registration/pkg/replay"
)

// NewEmailSeparator joins the subject id and the new email inside the
// fast-path cache value of an email-change code.
const NewEmailSeparator = "NEW_EMAIL"

// Default client callback paths appended to the client origin when
// building emailed code links.
const (
	DefaultConfirmPath     = "/confirm-email"
	DefaultResetPath       = "/reset-password"
	DefaultEmailChangePath = "/update-email"
)

// Directory is the users api surface the flows need.
type Directory interface {
	GetUser(ctx context.Context, id string) (*directory.User, error)
	FindUserByEmail(ctx context.Context, email string) (*directory.User, error)
	CreateUser(ctx context.Context, params directory.CreateUserParams) (*directory.User, error)
	UpdateUser(ctx context.Context, id string, params directory.UpdateUserParams) (*directory.User, error)
}

// Sender dispatches a notice email. *notification.NotificationManager
// satisfies it.
type Sender interface {
	SendEmail(noticeType notification.NoticeType, data notification.NotificationData) error
}

// Service orchestrates the registration flows.
type Service struct {
	directory Directory
	sender    Sender

	confirmCodec     *actioncode.Codec
	resetCodec       *actioncode.Codec
	emailChangeCodec *actioncode.Codec

	confirmCache     *replay.Cache
	resetCache       *replay.Cache
	emailChangeCache *replay.Cache

	clientOrigin    string
	confirmPath     string
	resetPath       string
	emailChangePath string

	now func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDirectory sets the users api client.
func WithDirectory(d Directory) ServiceOption {
	return func(s *Service) {
		s.directory = d
	}
}

// WithSender sets the email dispatcher.
func WithSender(sender Sender) ServiceOption {
	return func(s *Service) {
		s.sender = sender
	}
}

// WithConfirmation sets the codec and replay cache for the email
// confirmation flow.
func WithConfirmation(codec *actioncode.Codec, cache *replay.Cache) ServiceOption {
	return func(s *Service) {
		s.confirmCodec = codec
		s.confirmCache = cache
	}
}

// WithPasswordReset sets the codec and replay cache for the password reset
// flow.
func WithPasswordReset(codec *actioncode.Codec, cache *replay.Cache) ServiceOption {
	return func(s *Service) {
		s.resetCodec = codec
		s.resetCache = cache
	}
}

// WithEmailChange sets the codec and replay cache for the email change
// flow.
func WithEmailChange(codec *actioncode.Codec, cache *replay.Cache) ServiceOption {
	return func(s *Service) {
		s.emailChangeCodec = codec
		s.emailChangeCache = cache
	}
}

// WithClientOrigin sets the origin the emailed code links point at.
func WithClientOrigin(origin string) ServiceOption {
	return func(s *Service) {
		s.clientOrigin = origin
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a registration service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		clientOrigin:    "http://localhost:3000",
		confirmPath:     DefaultConfirmPath,
		resetPath:       DefaultResetPath,
		emailChangePath: DefaultEmailChangePath,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SignUp creates the user in the directory and sends the confirmation
// email. Directory validation failures pass through as
// *directory.ValidationError for verbatim forwarding.
func (s *Service) SignUp(ctx context.Context, params directory.CreateUserParams) (*directory.User, error) {
	user, err := s.directory.CreateUser(ctx, params)
	if err != nil {
		slog.Error("Failed to create user", "err", err, "email", params.Email)
		return nil, err
	}

	if err := s.sendConfirmation(ctx, user, user.Email); err != nil {
		return nil, err
	}

	slog.Info("User signed up", "user_id", user.ID)
	return user, nil
}

// ResendConfirmation re-sends the confirmation email for an unconfirmed
// account.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	throttled, err := s.confirmCache.CheckThrottle(ctx, email)
	if err != nil {
		return fmt.Errorf("check confirmation throttle: %w", err)
	}
	if throttled {
		return ErrSendCooldown
	}

	user, err := s.directory.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailConfirmed {
		return ErrAlreadyConfirmed
	}

	return s.sendConfirmation(ctx, user, user.Email)
}

// ConfirmEmail completes the confirmation flow for a code.
func (s *Service) ConfirmEmail(ctx context.Context, code string) (*directory.User, error) {
	resolved, err := s.resolveCode(ctx, s.confirmCache, s.confirmCodec, code, false)
	if err != nil {
		return nil, err
	}

	user, err := s.lookupSubject(ctx, s.confirmCache, code, resolved.subjectID)
	if err != nil {
		return nil, err
	}

	if user.EmailConfirmed {
		s.recordFailure(ctx, s.confirmCache, code, http.StatusConflict)
		return nil, ErrAlreadyConfirmed
	}

	confirmed := true
	updated, err := s.directory.UpdateUser(ctx, user.ID, directory.UpdateUserParams{EmailConfirmed: &confirmed})
	if err != nil {
		slog.Error("Failed to confirm user email", "err", err, "user_id", user.ID)
		return nil, err
	}

	s.consumeCode(ctx, s.confirmCache, code, resolved, s.confirmCodec.TTL())
	s.clearThrottle(ctx, s.confirmCache, user.Email)

	slog.Info("Email confirmed", "user_id", user.ID)
	return updated, nil
}

// SendPasswordReset sends a password reset email.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	throttled, err := s.resetCache.CheckThrottle(ctx, email)
	if err != nil {
		return fmt.Errorf("check reset throttle: %w", err)
	}
	if throttled {
		return ErrSendCooldown
	}

	user, err := s.directory.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.resetCodec.Generate(user.ID, "")
	if err != nil {
		return err
	}

	err = s.sender.SendEmail(notification.PasswordResetNotice, notification.NotificationData{
		To:   user.Email,
		Data: s.linkData(user.FirstName, s.resetPath, code, s.resetCodec.TTL()),
	})
	if err != nil {
		slog.Error("Failed to send password reset email", "err", err, "user_id", user.ID)
		return err
	}

	s.recordIssued(ctx, s.resetCache, code, user.ID, user.Email)
	return nil
}

// ResetPassword completes the password reset flow for a code.
func (s *Service) ResetPassword(ctx context.Context, code, password string) (*directory.User, error) {
	resolved, err := s.resolveCode(ctx, s.resetCache, s.resetCodec, code, false)
	if err != nil {
		return nil, err
	}

	user, err := s.lookupSubject(ctx, s.resetCache, code, resolved.subjectID)
	if err != nil {
		return nil, err
	}

	updated, err := s.directory.UpdateUser(ctx, user.ID, directory.UpdateUserParams{Password: &password})
	if err != nil {
		slog.Error("Failed to reset password", "err", err, "user_id", user.ID)
		return nil, err
	}

	s.consumeCode(ctx, s.resetCache, code, resolved, s.resetCodec.TTL())
	s.clearThrottle(ctx, s.resetCache, user.Email)

	slog.Info("Password reset", "user_id", user.ID)
	return updated, nil
}

// TestPasswordResetCode reports whether a reset code is currently valid.
// It never mutates anything: no directory call, no cache write.
func (s *Service) TestPasswordResetCode(ctx context.Context, code string) error {
	result, err := s.resetCache.CheckCode(ctx, code)
	if err != nil {
		return fmt.Errorf("check reset code: %w", err)
	}

	switch {
	case result.Terminal != 0:
		return terminalError(result.Terminal)
	case result.Subject != "":
		return nil
	}

	_, err = s.resetCodec.Decode(code)
	switch {
	case errors.Is(err, actioncode.ErrCodeExpired):
		return ErrCodeGone
	case errors.Is(err, actioncode.ErrCodeInvalid):
		return ErrCodeNotFound
	}
	return err
}

// SendEmailChange sends a confirmation email to a proposed new address.
func (s *Service) SendEmailChange(ctx context.Context, userID, newEmail string) error {
	throttleKey := userID + newEmail
	throttled, err := s.emailChangeCache.CheckThrottle(ctx, throttleKey)
	if err != nil {
		return fmt.Errorf("check email change throttle: %w", err)
	}
	if throttled {
		return ErrSendCooldown
	}

	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == newEmail {
		return ErrSameEmail
	}

	_, err = s.directory.FindUserByEmail(ctx, newEmail)
	if err == nil {
		return ErrEmailUnavailable
	}
	if !errors.Is(err, directory.ErrUserNotFound) {
		return err
	}

	code, err := s.emailChangeCodec.Generate(user.ID, newEmail)
	if err != nil {
		return err
	}

	err = s.sender.SendEmail(notification.EmailChangeNotice, notification.NotificationData{
		To:   newEmail,
		Data: s.linkData(user.FirstName, s.emailChangePath, code, s.emailChangeCodec.TTL()),
	})
	if err != nil {
		slog.Error("Failed to send email change confirmation", "err", err, "user_id", user.ID)
		return err
	}

	s.recordIssued(ctx, s.emailChangeCache, code, user.ID+NewEmailSeparator+newEmail, throttleKey)
	return nil
}

// UpdateEmail completes the email change flow for a code.
func (s *Service) UpdateEmail(ctx context.Context, code string) (*directory.User, error) {
	resolved, err := s.resolveCode(ctx, s.emailChangeCache, s.emailChangeCodec, code, true)
	if err != nil {
		return nil, err
	}

	user, err := s.lookupSubject(ctx, s.emailChangeCache, code, resolved.subjectID)
	if err != nil {
		return nil, err
	}

	// The address already matching means this code already did its work.
	if user.Email == resolved.newEmail {
		s.recordFailure(ctx, s.emailChangeCache, code, http.StatusGone)
		return nil, ErrCodeGone
	}

	updated, err := s.directory.UpdateUser(ctx, user.ID, directory.UpdateUserParams{Email: &resolved.newEmail})
	if err != nil {
		slog.Error("Failed to update user email", "err", err, "user_id", user.ID)
		return nil, err
	}

	s.consumeCode(ctx, s.emailChangeCache, code, resolved, s.emailChangeCodec.TTL())
	s.clearThrottle(ctx, s.emailChangeCache, resolved.subjectID+resolved.newEmail)

	slog.Info("Email updated", "user_id", user.ID)
	return updated, nil
}

// resolution is the outcome of resolving a code via cache or codec.
type resolution struct {
	subjectID string
	newEmail  string
	decoded   *actioncode.Code
}

// resolveCode applies the shared head of the completion decision table:
// cached terminal outcome, fast-path subject, or codec decode. composite
// selects the email-change fast-path value layout.
func (s *Service) resolveCode(ctx context.Context, cache *replay.Cache, codec *actioncode.Codec, code string, composite bool) (resolution, error) {
	result, err := cache.CheckCode(ctx, code)
	if err != nil {
		// Ambiguous infrastructure fault: surface it, cache nothing.
		return resolution{}, fmt.Errorf("check code: %w", err)
	}

	switch {
	case result.Terminal != 0:
		return resolution{}, terminalError(result.Terminal)

	case result.Subject != "":
		if !composite {
			return resolution{subjectID: result.Subject}, nil
		}
		parts := strings.SplitN(result.Subject, NewEmailSeparator, 2)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			s.recordFailure(ctx, cache, code, http.StatusNotFound)
			return resolution{}, ErrCodeNotFound
		}
		return resolution{subjectID: parts[0], newEmail: parts[1]}, nil
	}

	decoded, err := codec.Decode(code)
	switch {
	case errors.Is(err, actioncode.ErrCodeExpired):
		s.recordFailure(ctx, cache, code, http.StatusGone)
		return resolution{}, ErrCodeGone
	case errors.Is(err, actioncode.ErrCodeInvalid):
		s.recordFailure(ctx, cache, code, http.StatusNotFound)
		return resolution{}, ErrCodeNotFound
	case err != nil:
		return resolution{}, err
	}

	return resolution{subjectID: decoded.SubjectID, newEmail: decoded.NewEmail, decoded: decoded}, nil
}

// lookupSubject fetches the code's subject, caching NOT_FOUND when the
// directory no longer knows the user.
func (s *Service) lookupSubject(ctx context.Context, cache *replay.Cache, code, subjectID string) (*directory.User, error) {
	user, err := s.directory.GetUser(ctx, subjectID)
	if errors.Is(err, directory.ErrUserNotFound) {
		s.recordFailure(ctx, cache, code, http.StatusNotFound)
		return nil, err
	}
	if err != nil {
		slog.Error("Failed to fetch user", "err", err, "user_id", subjectID)
		return nil, err
	}
	return user, nil
}

// consumeCode marks a code terminally used for exactly its remaining
// lifetime. Best effort: a cache write failure must not undo a mutation
// already committed.
func (s *Service) consumeCode(ctx context.Context, cache *replay.Cache, code string, resolved resolution, codeTTL time.Duration) {
	var ttl time.Duration
	if resolved.decoded != nil {
		ttl = resolved.decoded.Remaining(s.now())
	} else {
		ttl = cache.ConsumedTTL(ctx, code, codeTTL)
	}
	if err := cache.RecordTerminal(ctx, code, http.StatusGone, ttl); err != nil {
		slog.Error("Failed to record consumed code", "err", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, cache *replay.Cache, code string, status int) {
	if err := cache.RecordFailure(ctx, code, status); err != nil {
		slog.Error("Failed to cache terminal outcome", "err", err, "status", status)
	}
}

func (s *Service) clearThrottle(ctx context.Context, cache *replay.Cache, identity string) {
	if err := cache.ClearThrottle(ctx, identity); err != nil {
		slog.Error("Failed to clear send throttle", "err", err)
	}
}

// sendConfirmation emails a fresh confirmation code and records the
// fast-path and throttle entries on acceptance.
func (s *Service) sendConfirmation(ctx context.Context, user *directory.User, recipient string) error {
	code, err := s.confirmCodec.Generate(user.ID, "")
	if err != nil {
		return err
	}

	err = s.sender.SendEmail(notification.EmailConfirmationNotice, notification.NotificationData{
		To:   recipient,
		Data: s.linkData(user.FirstName, s.confirmPath, code, s.confirmCodec.TTL()),
	})
	if err != nil {
		slog.Error("Failed to send confirmation email", "err", err, "user_id", user.ID)
		return err
	}

	s.recordIssued(ctx, s.confirmCache, code, user.ID, recipient)
	return nil
}

// recordIssued stores the code-to-subject fast path and the send throttle
// after a successful send. Both are best effort.
func (s *Service) recordIssued(ctx context.Context, cache *replay.Cache, code, subject, throttleKey string) {
	if err := cache.RecordPendingSubject(ctx, code, subject); err != nil {
		slog.Error("Failed to cache issued code", "err", err)
	}
	if err := cache.RecordThrottle(ctx, throttleKey); err != nil {
		slog.Error("Failed to record send throttle", "err", err)
	}
}

func (s *Service) linkData(firstName, path, code string, ttl time.Duration) map[string]string {
	return map[string]string{
		"Name":        firstName,
		"Link":        fmt.Sprintf("%s%s?code=%s", s.clientOrigin, path, code),
		"ExpiryHours": fmt.Sprintf("%.0f", ttl.Hours()),
	}
}

func terminalError(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGone:
		return ErrCodeGone
	default:
		return fmt.Errorf("unexpected cached outcome %d", status)
	}
}
