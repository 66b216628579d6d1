package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hydrazin60/waterManagment-server/internal/application/session"
	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

// --- mocks ---

type mockRegistrationSvc struct{ mock.Mock }

func (m *mockRegistrationSvc) Initiate(ctx context.Context, req domain.RegisterRequest) (*domain.RegistrationAck, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.RegistrationAck); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRegistrationSvc) Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRegistrationSvc) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockRegistrationSvc) ResetPassword(ctx context.Context, email, otpCode, newPassword string) error {
	return m.Called(ctx, email, otpCode, newPassword).Error(0)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Authenticate(ctx context.Context, req session.LoginRequest) (*domain.Account, *session.TokenPair, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*domain.Account)
	p, _ := args.Get(1).(*session.TokenPair)
	return a, p, args.Error(2)
}

func (m *mockSessionSvc) Refresh(ctx context.Context, refreshToken string) (*domain.Account, *session.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	a, _ := args.Get(0).(*domain.Account)
	p, _ := args.Get(1).(*session.TokenPair)
	return a, p, args.Error(2)
}

type mockAccountFinder struct{ mock.Mock }

func (m *mockAccountFinder) FindByID(ctx context.Context, accountType domain.AccountType, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountType, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newAuthHandler(reg *mockRegistrationSvc, sess *mockSessionSvc, finder *mockAccountFinder) *AuthHandler {
	return NewAuthHandler(AuthHandlerDeps{
		Registration: reg,
		Sessions:     sess,
		Accounts:     finder,
		AccessTTL:    24 * time.Hour,
		RefreshTTL:   7 * 24 * time.Hour,
	})
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// --- tests ---

func TestRegister_AcknowledgesWithoutCode(t *testing.T) {
	reg := new(mockRegistrationSvc)
	h := newAuthHandler(reg, new(mockSessionSvc), new(mockAccountFinder))

	ack := &domain.RegistrationAck{
		Email:        "ana@example.com",
		OTPExpiresIn: "5 minutes",
		OTPReference: "ref-1",
	}
	reg.On("Initiate", mock.Anything, mock.AnythingOfType("domain.RegisterRequest")).Return(ack, nil)

	rr := postJSON(t, h.Register, map[string]string{
		"account_type": "customer",
		"email":        "ana@example.com",
		"password":     "s3cret-pass",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	var env RegistrationEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "ana@example.com", env.Data.Email)
	assert.NotContains(t, rr.Body.String(), `"otp":`)
}

func TestRegister_ConflictMapsTo409(t *testing.T) {
	reg := new(mockRegistrationSvc)
	h := newAuthHandler(reg, new(mockSessionSvc), new(mockAccountFinder))

	reg.On("Initiate", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("email already registered: %w", domain.ErrConflict))

	rr := postJSON(t, h.Register, map[string]string{
		"account_type": "customer",
		"email":        "dup@example.com",
		"password":     "s3cret-pass",
	})

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegister_RateLimitCarriesRetryAfter(t *testing.T) {
	reg := new(mockRegistrationSvc)
	h := newAuthHandler(reg, new(mockSessionSvc), new(mockAccountFinder))

	reg.On("Initiate", mock.Anything, mock.Anything).
		Return(nil, &domain.RateLimitError{Gate: domain.GateCooldown, RetryAfter: time.Minute})

	rr := postJSON(t, h.Register, map[string]string{
		"account_type": "customer",
		"email":        "ana@example.com",
		"password":     "s3cret-pass",
	})

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestVerifyOTP_CreatesAccount(t *testing.T) {
	reg := new(mockRegistrationSvc)
	h := newAuthHandler(reg, new(mockSessionSvc), new(mockAccountFinder))

	account := &domain.Account{
		AccountID:    "acc-1",
		AccountType:  domain.AccountCustomer,
		Email:        "ana@example.com",
		PasswordHash: "never-shown",
		CustomerType: "new",
		Verified:     true,
		IsActive:     true,
	}
	reg.On("Complete", mock.Anything, mock.Anything).Return(account, nil)

	rr := postJSON(t, h.VerifyOTP, map[string]string{
		"account_type": "customer",
		"email":        "ana@example.com",
		"password":     "s3cret-pass",
		"otp":          "4821",
	})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "ana@example.com registered successfully")
	assert.NotContains(t, rr.Body.String(), "never-shown")
	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "new", env.Account.CustomerType)
	assert.Empty(t, env.Account.RoleInCompany)
}

func TestVerifyOTP_WrongCodeMapsTo400(t *testing.T) {
	reg := new(mockRegistrationSvc)
	h := newAuthHandler(reg, new(mockSessionSvc), new(mockAccountFinder))

	reg.On("Complete", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("invalid OTP, 2 attempts remaining: %w", domain.ErrBadRequest))

	rr := postJSON(t, h.VerifyOTP, map[string]string{
		"account_type": "customer",
		"email":        "ana@example.com",
		"password":     "s3cret-pass",
		"otp":          "0000",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "2 attempts remaining")
}

func TestLogin_SetsSessionCookies(t *testing.T) {
	sess := new(mockSessionSvc)
	h := newAuthHandler(new(mockRegistrationSvc), sess, new(mockAccountFinder))

	account := &domain.Account{
		AccountID:     "acc-1",
		AccountType:   domain.AccountBusiness,
		Name:          "Ram",
		Email:         "ram@example.com",
		RoleInCompany: "owner",
	}
	pair := &session.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}
	sess.On("Authenticate", mock.Anything, mock.AnythingOfType("session.LoginRequest")).
		Return(account, pair, nil)

	rr := postJSON(t, h.Login, map[string]string{
		"email":    "ram@example.com",
		"password": "s3cret-pass",
	})

	assert.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "accessToken")
	require.Contains(t, byName, "refreshToken")
	assert.Equal(t, "access-token", byName["accessToken"].Value)
	assert.True(t, byName["accessToken"].HttpOnly)
	assert.True(t, byName["accessToken"].Secure)

	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "owner", env.Account.RoleInCompany)
	assert.Empty(t, env.Account.CustomerType)
}

func TestLogin_WrongPasswordMapsTo401(t *testing.T) {
	sess := new(mockSessionSvc)
	h := newAuthHandler(new(mockRegistrationSvc), sess, new(mockAccountFinder))

	sess.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, nil, fmt.Errorf("password is incorrect: %w", domain.ErrUnauthorized))

	rr := postJSON(t, h.Login, map[string]string{
		"email":    "ram@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_UnknownEmailMapsTo400(t *testing.T) {
	sess := new(mockSessionSvc)
	h := newAuthHandler(new(mockRegistrationSvc), sess, new(mockAccountFinder))

	sess.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, nil, fmt.Errorf("you are not registered: %w", domain.ErrBadRequest))

	rr := postJSON(t, h.Login, map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever1",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefresh_ReadsCookie(t *testing.T) {
	sess := new(mockSessionSvc)
	h := newAuthHandler(new(mockRegistrationSvc), sess, new(mockAccountFinder))

	account := &domain.Account{AccountID: "acc-1", AccountType: domain.AccountStaff, Email: "staff@example.com"}
	pair := &session.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}
	sess.On("Refresh", mock.Anything, "old-refresh").Return(account, pair, nil)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "new-access")
}

func TestRefresh_MissingToken(t *testing.T) {
	sess := new(mockSessionSvc)
	h := newAuthHandler(new(mockRegistrationSvc), sess, new(mockAccountFinder))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	sess.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestLogout_ClearsCookies(t *testing.T) {
	h := newAuthHandler(new(mockRegistrationSvc), new(mockSessionSvc), new(mockAccountFinder))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	for _, c := range rr.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
	}
}
