package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-registration/pkg/directory"
	"github.com/tendant/simple-registration/pkg/registration"
)

// Handler exposes the registration flows over HTTP.
type Handler struct {
	service  *registration.Service
	validate *validator.Validate
}

// NewHandler creates a registration API handler.
func NewHandler(service *registration.Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// Routes mounts the registration endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sign-up", h.SignUp)
	r.Post("/resend-confirmation-email", h.ResendConfirmationEmail)
	r.Post("/confirm-email", h.ConfirmEmail)
	r.Get("/confirm-email", h.ConfirmEmail)
	r.Post("/send-password-reset-email", h.SendPasswordResetEmail)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/test-password-reset-code", h.TestPasswordResetCode)
	r.Post("/send-update-email-confirmation", h.SendUpdateEmailConfirmation)
	r.Post("/update-email", h.UpdateEmail)
}

// SignUp handles POST /sign-up.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.bind(w, r, &req) {
		return
	}

	user, err := h.service.SignUp(r.Context(), directory.CreateUserParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, UserResponse{FirstName: user.FirstName})
}

// ResendConfirmationEmail handles POST /resend-confirmation-email.
func (h *Handler) ResendConfirmationEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.bind(w, r, &req) {
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Confirmation email sent"})
}

// ConfirmEmail handles POST and GET /confirm-email. GET carries the code
// in the query string.
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}

	user, err := h.service.ConfirmEmail(r.Context(), code)
	if err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, UserResponse{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})
}

// SendPasswordResetEmail handles POST /send-password-reset-email.
func (h *Handler) SendPasswordResetEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.bind(w, r, &req) {
		return
	}

	if err := h.service.SendPasswordReset(r.Context(), req.Email); err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password reset email sent"})
}

// ResetPassword handles POST /reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.bind(w, r, &req) {
		return
	}

	user, err := h.service.ResetPassword(r.Context(), req.Code, req.Password)
	if err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, UserResponse{FirstName: user.FirstName})
}

// TestPasswordResetCode handles GET /test-password-reset-code.
func (h *Handler) TestPasswordResetCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.missingParams(w, r, "code")
		return
	}

	if err := h.service.TestPasswordResetCode(r.Context(), code); err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Code is valid"})
}

// SendUpdateEmailConfirmation handles POST /send-update-email-confirmation.
func (h *Handler) SendUpdateEmailConfirmation(w http.ResponseWriter, r *http.Request) {
	var req SendEmailChangeRequest
	if !h.bind(w, r, &req) {
		return
	}

	if err := h.service.SendEmailChange(r.Context(), req.UserID, req.NewEmail); err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Email change confirmation sent"})
}

// UpdateEmail handles POST /update-email.
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !h.bind(w, r, &req) {
		return
	}

	user, err := h.service.UpdateEmail(r.Context(), req.Code)
	if err != nil {
		h.renderFlowError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, UserResponse{FirstName: user.FirstName})
}

// bind decodes and validates a JSON request body, rendering a 400 on
// failure.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Missing or invalid parameters"})
		return false
	}
	return true
}

// code extracts the action code from the query string on GET and from the
// JSON body otherwise.
func (h *Handler) code(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method == http.MethodGet {
		code := r.URL.Query().Get("code")
		if code == "" {
			h.missingParams(w, r, "code")
			return "", false
		}
		return code, true
	}

	var req CodeRequest
	if !h.bind(w, r, &req) {
		return "", false
	}
	return req.Code, true
}

func (h *Handler) missingParams(w http.ResponseWriter, r *http.Request, name string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: "Missing parameter: " + name})
}

// renderFlowError maps service errors onto the flow status taxonomy.
// Directory validation rejections forward verbatim.
func (h *Handler) renderFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *directory.ValidationError
	if errors.As(err, &validationErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(validationErr.Status)
		w.Write(validationErr.Body)
		return
	}

	switch {
	case errors.Is(err, registration.ErrSendCooldown):
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{Error: "Email sent too recently"})

	case errors.Is(err, registration.ErrCodeNotFound),
		errors.Is(err, directory.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "Not found"})

	case errors.Is(err, registration.ErrAlreadyConfirmed),
		errors.Is(err, registration.ErrSameEmail),
		errors.Is(err, registration.ErrEmailUnavailable),
		errors.Is(err, registration.ErrConflict):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Error: "Conflict"})

	case errors.Is(err, registration.ErrCodeGone):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, ErrorResponse{Error: "Code expired or already used"})

	default:
		slog.Error("Registration flow failed", "err", err, "path", r.URL.Path)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal server error"})
	}
}
