package registration

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
	"github.com/hydrazin60/waterManagment-server/internal/pkg/id"
	"github.com/hydrazin60/waterManagment-server/internal/pkg/reference"
	"github.com/hydrazin60/waterManagment-server/internal/pkg/validate"
)

var phoneRe = regexp.MustCompile(`^[0-9]{10,15}$`)

// identityDirectory is the lookup/creation capability over the four account
// collections.
type identityDirectory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, accountType domain.AccountType, email string, updates map[string]interface{}) error
}

// otpService issues and verifies one-time codes.
type otpService interface {
	RequestCode(ctx context.Context, identifier string) error
	VerifyCode(ctx context.Context, identifier, code string) error
}

// Service drives the two-phase, OTP-gated registration flow and the
// OTP-gated password reset flow.
type Service interface {
	Initiate(ctx context.Context, req domain.RegisterRequest) (*domain.RegistrationAck, error)
	Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otpCode, newPassword string) error
}

type service struct {
	directory identityDirectory
	otp       otpService
}

type ServiceDeps struct {
	Directory identityDirectory
	OTP       otpService
}

func NewService(deps ServiceDeps) Service {
	return &service{directory: deps.Directory, otp: deps.OTP}
}

// Initiate validates the payload, enforces cross-variant uniqueness, then
// asks the OTP engine for a code. Uniqueness is checked before any OTP state
// is touched so a conflicting request leaves no trace in the gate store.
func (s *service) Initiate(ctx context.Context, req domain.RegisterRequest) (*domain.RegistrationAck, error) {
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	if err := s.checkUniqueness(ctx, req); err != nil {
		return nil, err
	}

	if err := s.otp.RequestCode(ctx, req.Email); err != nil {
		return nil, err
	}

	return &domain.RegistrationAck{
		Email:        req.Email,
		OTPExpiresIn: "5 minutes",
		OTPReference: reference.New(req.Email),
	}, nil
}

// Complete consumes the code, re-checks non-existence (the fan-out check at
// initiation is not transactional with the create), hashes the password and
// creates the record in one conditional insert. No partial account is ever
// visible: the insert is the only write.
func (s *service) Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Account, error) {
	if err := validatePayload(req.RegisterRequest); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	if err := s.otp.VerifyCode(ctx, req.Email, req.OTP); err != nil {
		return nil, err
	}

	exists, err := s.directory.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:        id.New(),
		AccountType:      domain.AccountType(req.AccountType),
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PasswordHash:     string(hash),
		RoleInCompany:    req.RoleInCompany,
		CustomerType:     req.CustomerType,
		PermanentAddress: req.PermanentAddress,
		TemporaryAddress: req.TemporaryAddress,
		IdentityDocument: req.IdentityDocument,
		IsActive:         true,
		Verified:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if a.AccountType == domain.AccountCustomer && a.CustomerType == "" {
		a.CustomerType = "new"
	}

	if err := s.directory.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RequestPasswordReset issues a reset code for an existing account through
// the same gates as registration.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("you are not registered: %w", domain.ErrNotFound)
	}
	return s.otp.RequestCode(ctx, email)
}

// ResetPassword consumes the reset code and replaces the password hash.
func (s *service) ResetPassword(ctx context.Context, email, otpCode, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", domain.ErrBadRequest)
	}
	a, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("you are not registered: %w", domain.ErrNotFound)
	}
	if err := s.otp.VerifyCode(ctx, email, otpCode); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.directory.Update(ctx, a.Classify(), email, map[string]interface{}{
		"password_hash": string(hash),
	})
}

// checkUniqueness fans out the email (and, when supplied, phone) across all
// four collections. The phone policy is uniform: any variant that registers
// with a phone gets the full cross-collection check.
func (s *service) checkUniqueness(ctx context.Context, req domain.RegisterRequest) error {
	exists, err := s.directory.EmailExists(ctx, req.Email)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if req.Phone != nil && *req.Phone != "" {
		exists, err = s.directory.PhoneExists(ctx, *req.Phone)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("phone number already registered: %w", domain.ErrConflict)
		}
	}
	return nil
}

// validatePayload enforces the structural rules. Customers may register with
// nothing but an email and a password; the other three variants must supply a
// name, a phone and a usable permanent address.
func validatePayload(req domain.RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	if domain.AccountType(req.AccountType) == domain.AccountCustomer {
		if req.Phone != nil && *req.Phone != "" && !phoneRe.MatchString(*req.Phone) {
			return fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
		}
		return nil
	}

	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrBadRequest)
	}
	if req.Phone == nil || *req.Phone == "" {
		return fmt.Errorf("phone is required: %w", domain.ErrBadRequest)
	}
	if !phoneRe.MatchString(*req.Phone) {
		return fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}
	addr := req.PermanentAddress
	if addr == nil || addr.District == "" || addr.Country == "" || addr.Province == "" {
		return fmt.Errorf("permanent address with district, country and province is required: %w", domain.ErrBadRequest)
	}
	return nil
}
