package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RegistrationEnvelope wraps the initiate-registration response.
type RegistrationEnvelope struct {
	Message string                  `json:"message,omitempty"`
	Data    *domain.RegistrationAck `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// AuthEnvelope wraps login, verify-otp and refresh responses.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	Account      *SafeAccount `json:"account,omitempty"`
	Message      string       `json:"message,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// AccountEnvelope wraps single-account responses.
type AccountEnvelope struct {
	Account *SafeAccount `json:"account,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// SafeAccount is the outward projection of an account record. The password
// hash and reset fields never leave the service.
type SafeAccount struct {
	ID               string                   `json:"id"`
	AccountType      string                   `json:"account_type"`
	Name             string                   `json:"name,omitempty"`
	Email            string                   `json:"email"`
	Phone            *string                  `json:"phone,omitempty"`
	RoleInCompany    string                   `json:"role_in_company,omitempty"`
	CustomerType     string                   `json:"customer_type,omitempty"`
	PermanentAddress *domain.Address          `json:"permanent_address,omitempty"`
	TemporaryAddress *domain.Address          `json:"temporary_address,omitempty"`
	IdentityDocument *domain.IdentityDocument `json:"identity_document,omitempty"`
	LoyaltyPoints    int                      `json:"loyalty_points,omitempty"`
	IsActive         bool                     `json:"is_active"`
	Verified         bool                     `json:"verified"`
	CreatedAt        time.Time                `json:"created_at"`
}

// toSafeAccount strips secrets and keeps only the variant-appropriate
// conditional field, mirroring what the access token carries.
func toSafeAccount(a *domain.Account) *SafeAccount {
	if a == nil {
		return nil
	}
	s := &SafeAccount{
		ID:               a.AccountID,
		AccountType:      string(a.Classify()),
		Name:             a.Name,
		Email:            a.Email,
		Phone:            a.Phone,
		PermanentAddress: a.PermanentAddress,
		TemporaryAddress: a.TemporaryAddress,
		IdentityDocument: a.IdentityDocument,
		IsActive:         a.IsActive,
		Verified:         a.Verified,
		CreatedAt:        a.CreatedAt,
	}
	if a.Classify() == domain.AccountCustomer {
		s.CustomerType = a.CustomerType
		s.LoyaltyPoints = a.LoyaltyPoints
	} else {
		s.RoleInCompany = a.RoleInCompany
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps application errors onto HTTP statuses. The envelope
// repeats the status as error_code so clients parsing only the body can still
// discriminate. Rate-limit answers carry a Retry-After header when the gate
// knows the wait.
func writeServiceError(w http.ResponseWriter, err error) {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
		}
		writeJSON(w, http.StatusTooManyRequests, MessageEnvelope{
			Error:     rl.Error(),
			ErrorCode: http.StatusTooManyRequests,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDeliveryFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, MessageEnvelope{Error: err.Error(), ErrorCode: status})
}
