package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"flowmind/internal/auth"
	"flowmind/internal/contextutil"
	"flowmind/internal/storage"
)

// AuthHandler handles registration, login, and logout.
type AuthHandler struct {
	users         storage.UserStore
	authenticator *auth.Authenticator
	sessions      *auth.Sessions
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users storage.UserStore, authenticator *auth.Authenticator, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{
		users:         users,
		authenticator: authenticator,
		sessions:      sessions,
	}
}

// RegisterRequest represents the HTTP request payload for registration.
type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Organization string `json:"organization"`
}

// LoginRequest represents the HTTP request payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse represents the authenticated user returned after login.
type SessionResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Username == "" || req.Password == "" || req.Email == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "username, password, email and full_name are required")
		return
	}

	hash, err := h.authenticator.HashPassword(req.Password)
	if err != nil {
		logger.ErrorContext(ctx, "failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &storage.UserRecord{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		FullName:     req.FullName,
		Organization: req.Organization,
	}
	if err := h.users.Register(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateUser) {
			writeError(w, http.StatusConflict, "Username or email already exists")
			return
		}
		logger.ErrorContext(ctx, "failed to register user", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	logger.InfoContext(ctx, "user registered", "username", req.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Registration successful"})
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity, err := h.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrRejected) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		logger.ErrorContext(ctx, "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := h.sessions.Establish(w, identity); err != nil {
		logger.ErrorContext(ctx, "failed to establish session", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	logger.InfoContext(ctx, "user logged in", "username", identity.Username)
	writeJSON(w, http.StatusOK, SessionResponse{
		Username: identity.Username,
		FullName: identity.FullName,
	})
}

// Logout handles GET /logout. Clearing the cookie is idempotent, so logging
// out without a session still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Terminate(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// ForgotPassword handles POST /forgot-password. Password resets are handled
// out of band by an administrator; the response is the same whether or not
// the username exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Please contact your administrator to reset your password",
	})
}

// Me handles GET /api/me and returns the profile of the session user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.users.GetByUsername(ctx, session.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"username":     user.Username,
		"email":        user.Email,
		"full_name":    user.FullName,
		"organization": user.Organization,
	})
}
