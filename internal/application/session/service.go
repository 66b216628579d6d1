package session

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
	jwtinfra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/jwt"
	"github.com/hydrazin60/waterManagment-server/internal/pkg/validate"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is the signed output of a successful authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// identityDirectory is the read side of the account collections.
type identityDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, accountType domain.AccountType, accountID string) (*domain.Account, error)
}

// tokenSigner mints and checks session tokens.
type tokenSigner interface {
	SignAccess(a *domain.Account) (string, error)
	SignRefresh(a *domain.Account) (string, error)
	VerifyRefresh(tokenStr string) (*jwtinfra.RefreshClaims, error)
}

// Service authenticates any of the four account variants against a single
// login endpoint and rotates sessions from refresh tokens.
type Service interface {
	Authenticate(ctx context.Context, req LoginRequest) (*domain.Account, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Account, *TokenPair, error)
}

type service struct {
	directory identityDirectory
	signer    tokenSigner
}

type ServiceDeps struct {
	Directory identityDirectory
	Signer    tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{directory: deps.Directory, signer: deps.Signer}
}

// Authenticate resolves the email across all collections, checks the password
// and issues a token pair. A missing account is reported as a validation
// failure, not an authentication one, matching the registration flow's
// "you are not registered" answer.
func (s *service) Authenticate(ctx context.Context, req LoginRequest) (*domain.Account, *TokenPair, error) {
	if err := validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	a, err := s.directory.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, fmt.Errorf("you are not registered: %w", domain.ErrBadRequest)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, fmt.Errorf("password is incorrect: %w", domain.ErrUnauthorized)
	}

	pair, err := s.issue(a)
	if err != nil {
		return nil, nil, err
	}
	return a, pair, nil
}

// Refresh validates the refresh token, re-reads the account it names and
// issues a fresh pair. Re-reading keeps revoked or deleted accounts from
// rotating forever on a stale token.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.Account, *TokenPair, error) {
	if s.signer == nil {
		return nil, nil, fmt.Errorf("signing key is not configured: %w", domain.ErrServer)
	}

	claims, err := s.signer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}

	a, err := s.directory.FindByID(ctx, domain.AccountType(claims.AccountType), claims.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, fmt.Errorf("account no longer exists: %w", domain.ErrUnauthorized)
	}
	if !a.IsActive {
		return nil, nil, fmt.Errorf("account is deactivated: %w", domain.ErrUnauthorized)
	}

	pair, err := s.issue(a)
	if err != nil {
		return nil, nil, err
	}
	return a, pair, nil
}

func (s *service) issue(a *domain.Account) (*TokenPair, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("signing key is not configured: %w", domain.ErrServer)
	}
	access, err := s.signer.SignAccess(a)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signer.SignRefresh(a)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
