package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hydrazin60/waterManagment-server/internal/application/registration"
	"github.com/hydrazin60/waterManagment-server/internal/application/session"
	"github.com/hydrazin60/waterManagment-server/internal/domain"
	"github.com/hydrazin60/waterManagment-server/internal/transport/http/middleware"
)

// accountFinder is the read-side lookup the /me endpoint needs.
type accountFinder interface {
	FindByID(ctx context.Context, accountType domain.AccountType, accountID string) (*domain.Account, error)
}

// AuthHandler handles registration, login and session lifecycle endpoints.
type AuthHandler struct {
	registration registration.Service
	sessions     session.Service
	accounts     accountFinder
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

type AuthHandlerDeps struct {
	Registration registration.Service
	Sessions     session.Service
	Accounts     accountFinder
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func NewAuthHandler(deps AuthHandlerDeps) *AuthHandler {
	return &AuthHandler{
		registration: deps.Registration,
		sessions:     deps.Sessions,
		accounts:     deps.Accounts,
		accessTTL:    deps.AccessTTL,
		refreshTTL:   deps.RefreshTTL,
	}
}

// Register starts the two-phase flow: validate, check uniqueness, send OTP.
// No account exists until the code is verified.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ack, err := h.registration.Initiate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RegistrationEnvelope{
		Message: fmt.Sprintf("OTP sent to %s", ack.Email),
		Data:    ack,
	})
}

// VerifyOTP finishes registration: consume the code, create the account,
// answer 201.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.registration.Complete(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		Message: fmt.Sprintf("%s registered successfully", account.Email),
		Account: toSafeAccount(account),
	})
}

// Login authenticates any account variant through the single endpoint and
// sets the token cookies alongside the body tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, pair, err := h.sessions.Authenticate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      toSafeAccount(account),
		Message:      fmt.Sprintf("welcome back, %s", account.Name),
	})
}

// Refresh rotates the token pair. The refresh token is read from the cookie,
// falling back to the request body for non-browser clients.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie("refreshToken"); err == nil {
		token = c.Value
	}
	if token == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "refresh token required")
		return
	}

	account, pair, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      toSafeAccount(account),
	})
}

// Logout clears the session cookies. Tokens are stateless, so expiry does the
// rest.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearCookie(w, "accessToken")
	clearCookie(w, "refreshToken")
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

// Me returns the account behind the access token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.FindByID(r.Context(), domain.AccountType(claims.AccountType), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, AccountEnvelope{Account: toSafeAccount(account)})
}

// ForgotPassword issues a reset code through the same OTP gates as
// registration.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if err := h.registration.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: fmt.Sprintf("password reset code sent to %s", req.Email),
	})
}

// ResetPassword consumes the reset code and replaces the password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.registration.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, pair *session.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
