package api

// SignUpRequest is the body of POST /sign-up.
type SignUpRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// EmailRequest carries the recipient identity for resend and
// password-reset sends.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CodeRequest carries an action code completing a flow.
type CodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// ResetPasswordRequest is the body of POST /reset-password.
type ResetPasswordRequest struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SendEmailChangeRequest is the body of POST /send-update-email-confirmation.
type SendEmailChangeRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	NewEmail string `json:"new_email" validate:"required,email"`
}

// UserResponse is the minimal subject projection returned on success.
type UserResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// MessageResponse acknowledges an initiate-flow request.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries a client-facing error.
type ErrorResponse struct {
	Error string `json:"error"`
}
