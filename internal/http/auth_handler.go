package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"bookhub/internal/auth"
	"bookhub/internal/entity"
	"bookhub/internal/usecase"
)

type AuthHandler struct {
	users    usecase.UserRepository
	secret   string
	tokenTTL time.Duration
}

func NewAuthHandler(users usecase.UserRepository, secret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password_strength"`
}

// Register creates a new user account. The credential is stored as a
// bcrypt hash only.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, CodeMalformedPayload, "Invalid request body", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", details)
		return
	}

	_, err := h.users.GetByUsername(r.Context(), req.Username)
	if err == nil {
		JSONError(w, http.StatusConflict, CodeDuplicateIdentity, "Username already registered", nil)
		return
	}
	if !errors.Is(err, usecase.ErrNotFound) {
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	newUser := &entity.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     "USER",
	}
	if err := h.users.Create(r.Context(), newUser); err != nil {
		// Covers the email uniqueness constraint and username races.
		if errors.Is(err, usecase.ErrAlreadyExists) {
			JSONError(w, http.StatusConflict, CodeDuplicateIdentity, "Username or email already registered", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccessCreated(w, map[string]any{
		"id":       newUser.ID,
		"username": newUser.Username,
		"email":    newUser.Email,
		"role":     newUser.Role,
	})
}

// Me returns the account behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r)
	if userID == "" {
		JSONError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token", nil)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, CodeNotFound, "User not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccess(w, user, nil)
}

type tokenReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token authenticates a user and issues a signed bearer token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, CodeMalformedPayload, "Invalid request body", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, CodeSchemaViolation, "Invalid input", details)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			JSONError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Incorrect username or password", nil)
		case errors.Is(err, context.DeadlineExceeded):
			JSONError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Service unavailable", nil)
		default:
			JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		}
		return
	}
	if !auth.VerifyPassword(user.Password, req.Password) {
		JSONError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Incorrect username or password", nil)
		return
	}

	signedToken, _, err := auth.GenerateToken(h.secret, user.ID, user.Username, user.Role, h.tokenTTL)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		return
	}

	JSONSuccess(w, map[string]any{
		"access_token": signedToken,
		"token_type":   "bearer",
		"expires_in":   int(h.tokenTTL.Seconds()),
	}, nil)
}
