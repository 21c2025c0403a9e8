package actioncode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind identifies which state transition a code authorizes.
type Kind string

const (
	KindConfirmation  Kind = "CONFIRMATION"
	KindPasswordReset Kind = "PASSWORD_RESET"
	KindEmailChange   Kind = "EMAIL_CHANGE"
)

// Code is the decoded form of a wire code.
type Code struct {
	SubjectID string
	Kind      Kind
	// NewEmail is set only for KindEmailChange codes.
	NewEmail  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining reports the code's remaining lifetime at the given instant,
// never negative.
func (c Code) Remaining(now time.Time) time.Duration {
	remaining := c.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type claims struct {
	SubjectID string `json:"_id"`
	Type      string `json:"type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies codes of a single kind.
type Codec struct {
	kind   Kind
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithTTL sets the lifetime of generated codes.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec for one code kind, signing with a kind-specific
// secret. The default code lifetime is one hour.
func NewCodec(kind Kind, secret string, opts ...CodecOption) *Codec {
	c := &Codec{
		kind:   kind,
		secret: []byte(secret),
		ttl:    time.Hour,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TTL returns the lifetime applied to generated codes.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Generate signs a code for subjectID. newEmail must be set for
// KindEmailChange codecs and empty for every other kind.
func (c *Codec) Generate(subjectID, newEmail string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("generate %s code: subject id is empty", c.kind)
	}
	if c.kind == KindEmailChange && newEmail == "" {
		return "", fmt.Errorf("generate %s code: new email is empty", c.kind)
	}
	if c.kind != KindEmailChange && newEmail != "" {
		return "", fmt.Errorf("generate %s code: unexpected new email", c.kind)
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SubjectID: subjectID,
		Type:      string(c.kind),
		Email:     newEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s code: %w", c.kind, err)
	}

	return base64.RawURLEncoding.EncodeToString([]byte(signed)), nil
}

// Decode verifies a wire code and returns its payload. It fails with
// ErrCodeExpired when the signature is valid but the expiry has passed, and
// with ErrCodeInvalid for any other verification failure, including codes
// of a different kind.
func (c *Codec) Decode(wireCode string) (*Code, error) {
	raw, err := base64.RawURLEncoding.DecodeString(wireCode)
	if err != nil {
		return nil, ErrCodeInvalid
	}

	var parsed claims
	_, err = jwt.ParseWithClaims(string(raw), &parsed,
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCodeExpired
		}
		return nil, ErrCodeInvalid
	}

	if parsed.Type != string(c.kind) || parsed.SubjectID == "" {
		return nil, ErrCodeInvalid
	}
	if c.kind == KindEmailChange && parsed.Email == "" {
		return nil, ErrCodeInvalid
	}
	if parsed.IssuedAt == nil || parsed.ExpiresAt == nil {
		return nil, ErrCodeInvalid
	}

	return &Code{
		SubjectID: parsed.SubjectID,
		Kind:      c.kind,
		NewEmail:  parsed.Email,
		IssuedAt:  parsed.IssuedAt.Time,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}
