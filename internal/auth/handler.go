package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

const forgotMessage = "If that email exists in our system, a password reset link has been sent."

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(OptionalBearer(h.service)).Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/forgot-password", h.handleForgot)
	r.Post("/reset-password/{token}", h.handleReset)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var caller *shared.Principal
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		caller = &p
	}
	sess, err := h.service.Register(r.Context(), in, caller)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	sess, err := h.service.Login(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleForgot(w http.ResponseWriter, r *http.Request) {
	var in ForgotInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.ForgotPassword(r.Context(), in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, forgotMessage, nil)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var in ResetInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Password has been reset successfully.", nil)
}
