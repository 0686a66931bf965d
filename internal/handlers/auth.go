package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mpratt/folio-api/internal/auth"
	"github.com/mpratt/folio-api/internal/authclient"
	"github.com/mpratt/folio-api/models"
)

// AuthHandlers proxies session operations to the hosted auth service and
// owns the token cookies.
type AuthHandlers struct {
	svc      authclient.Service
	cookies  auth.CookieWriter
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuthHandlers(svc authclient.Service, cookies auth.CookieWriter, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		svc:      svc,
		cookies:  cookies,
		validate: validator.New(),
		logger:   logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// credentialsError maps a validation failure to the message shown to the user.
func credentialsError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch {
			case fe.Field() == "Password" && fe.Tag() == "min":
				return "password must be at least 8 characters"
			case fe.Field() == "Email" && fe.Tag() == "email":
				return "invalid email address"
			}
		}
	}
	return "email and password are required"
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, credentialsError(err))
		return
	}

	pair, err := h.svc.PasswordGrant(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authclient.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.cookies.SetSession(w, pair)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, credentialsError(err))
		return
	}

	user, err := h.svc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authclient.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		if msg := authclient.UpstreamMessage(err); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]*authclient.User{"user": user})
}

// Logout always succeeds: the upstream revocation is best effort, the
// cookies are cleared no matter what.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := auth.ReadAccessToken(r); token != "" {
		if err := h.svc.SignOut(r.Context(), token); err != nil {
			h.logger.Warn("upstream logout failed", zap.Error(err))
		}
	}
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	rt := auth.ReadRefreshToken(r)
	if rt == "" {
		h.cookies.ClearSession(w)
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), rt)
	if err != nil {
		if !errors.Is(err, authclient.ErrInvalidToken) {
			h.logger.Error("token refresh failed", zap.Error(err))
		}
		h.cookies.ClearSession(w)
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	h.cookies.SetSession(w, pair)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me reports the current user, or null when there is no usable session.
// Absence of a session is a normal response, never an error status. An
// expired access token gets exactly one refresh-and-retry before giving up.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	noUser := func() {
		writeJSON(w, http.StatusOK, map[string]*models.User{"user": nil})
	}

	token := auth.ReadAccessToken(r)
	if token == "" {
		noUser()
		return
	}

	user, err := h.svc.UserFromToken(r.Context(), token)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]*authclient.User{"user": user})
		return
	}
	if !errors.Is(err, authclient.ErrInvalidToken) {
		h.logger.Warn("identity lookup failed", zap.Error(err))
		noUser()
		return
	}

	rt := auth.ReadRefreshToken(r)
	if rt == "" {
		noUser()
		return
	}
	pair, err := h.svc.Refresh(r.Context(), rt)
	if err != nil {
		noUser()
		return
	}
	h.cookies.SetSession(w, pair)

	user, err = h.svc.UserFromToken(r.Context(), pair.AccessToken)
	if err != nil {
		noUser()
		return
	}
	writeJSON(w, http.StatusOK, map[string]*authclient.User{"user": user})
}
