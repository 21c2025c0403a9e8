package actioncode

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndDecode(t *testing.T) {
	codec := NewCodec(KindConfirmation, "confirmation-secret")

	wire, err := codec.Generate("user-123", "")
	require.NoError(t, err)
	assert.NotContains(t, wire, ".", "wire form must be opaque, not a bare JWT")

	code, err := codec.Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, "user-123", code.SubjectID)
	assert.Equal(t, KindConfirmation, code.Kind)
	assert.Empty(t, code.NewEmail)
	assert.True(t, code.ExpiresAt.After(code.IssuedAt))
}

func TestDecodeExpiredCode(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	codec := NewCodec(KindPasswordReset, "reset-secret",
		WithTTL(time.Hour), WithClock(clock))

	wire, err := codec.Generate("user-123", "")
	require.NoError(t, err)

	now = now.Add(time.Hour + time.Second)
	_, err = codec.Decode(wire)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestDecodeJustBeforeExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	codec := NewCodec(KindPasswordReset, "reset-secret",
		WithTTL(time.Hour), WithClock(clock))

	wire, err := codec.Generate("user-123", "")
	require.NoError(t, err)

	now = now.Add(time.Hour - 2*time.Second)
	code, err := codec.Decode(wire)
	require.NoError(t, err)
	assert.LessOrEqual(t, code.Remaining(now), 2*time.Second)
}

func TestDecodeTamperedCode(t *testing.T) {
	codec := NewCodec(KindConfirmation, "confirmation-secret")

	wire, err := codec.Generate("user-123", "")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(wire)
	require.NoError(t, err)

	// Flip a byte in the claims segment without re-signing.
	parts := strings.SplitN(string(raw), ".", 3)
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	payload[0] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = codec.Decode(base64.RawURLEncoding.EncodeToString([]byte(tampered)))
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestDecodeWrongSecret(t *testing.T) {
	signer := NewCodec(KindConfirmation, "confirmation-secret")
	verifier := NewCodec(KindConfirmation, "a-different-secret")

	wire, err := signer.Generate("user-123", "")
	require.NoError(t, err)

	_, err = verifier.Decode(wire)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestDecodeCrossKindCode(t *testing.T) {
	// Same secret on both codecs: the kind check alone must reject.
	confirm := NewCodec(KindConfirmation, "shared-secret")
	reset := NewCodec(KindPasswordReset, "shared-secret")

	wire, err := confirm.Generate("user-123", "")
	require.NoError(t, err)

	_, err = reset.Decode(wire)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestDecodeGarbage(t *testing.T) {
	codec := NewCodec(KindConfirmation, "confirmation-secret")

	for _, wire := range []string{"", "not base64 at all!!", "YWJjZGVm"} {
		_, err := codec.Decode(wire)
		assert.ErrorIs(t, err, ErrCodeInvalid, "input %q", wire)
	}
}

func TestEmailChangePayload(t *testing.T) {
	codec := NewCodec(KindEmailChange, "confirmation-secret")

	wire, err := codec.Generate("user-123", "new@example.com")
	require.NoError(t, err)

	code, err := codec.Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, "user-123", code.SubjectID)
	assert.Equal(t, "new@example.com", code.NewEmail)
}

func TestEmailChangeRequiresNewEmail(t *testing.T) {
	codec := NewCodec(KindEmailChange, "confirmation-secret")

	_, err := codec.Generate("user-123", "")
	assert.Error(t, err)
}

func TestGenerateRejectsStrayNewEmail(t *testing.T) {
	codec := NewCodec(KindConfirmation, "confirmation-secret")

	_, err := codec.Generate("user-123", "new@example.com")
	assert.Error(t, err)
}
