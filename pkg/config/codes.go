package config

import "time"

// CodesConfig holds the signing secrets and lifetimes for action codes.
// Each code kind signs with its own secret so a code of one kind can never
// verify against another.
type CodesConfig struct {
	ConfirmationSecret  string        `env:"CODE_CONFIRMATION_SECRET" env-default:"confirmation-secret-change-me"`
	PasswordResetSecret string        `env:"CODE_PASSWORD_RESET_SECRET" env-default:"password-reset-secret-change-me"`
	EmailChangeSecret   string        `env:"CODE_EMAIL_CHANGE_SECRET" env-default:"email-change-secret-change-me"`
	ConfirmationTTL     time.Duration `env:"CODE_CONFIRMATION_TTL" env-default:"1h"`
	PasswordResetTTL    time.Duration `env:"CODE_PASSWORD_RESET_TTL" env-default:"1h"`
	EmailChangeTTL      time.Duration `env:"CODE_EMAIL_CHANGE_TTL" env-default:"1h"`
}
