package domain

import (
	"strings"
	"time"
)

// AccountType is the explicit discriminator written on every record at
// creation time. Exactly one of the four collections holds a given email.
type AccountType string

const (
	AccountAdmin    AccountType = "admin"
	AccountBusiness AccountType = "business"
	AccountCustomer AccountType = "customer"
	AccountStaff    AccountType = "staff"
)

// LookupOrder is the fixed priority used when a fan-out lookup returns more
// than one hit. Under the uniqueness invariant at most one collection matches;
// the order only matters as a tie-break if that invariant is ever violated.
var LookupOrder = []AccountType{AccountBusiness, AccountCustomer, AccountStaff, AccountAdmin}

// Valid reports whether t names one of the four account variants.
func (t AccountType) Valid() bool {
	switch t {
	case AccountAdmin, AccountBusiness, AccountCustomer, AccountStaff:
		return true
	}
	return false
}

// Disjoint role-name sets used only to classify legacy records that predate
// the explicit account_type discriminator.
var (
	businessRoles = map[string]bool{
		"owner": true, "manager": true, "ceo": true, "cbo": true, "HR": true, "director": true,
	}
	adminRoles = map[string]bool{
		"superadmin": true, "admin": true, "moderator": true, "support": true, "developer": true,
	}
)

// Address is the postal address shape shared by all variants.
type Address struct {
	District        string    `json:"district,omitempty" dynamodbav:"district"`
	Municipality    string    `json:"municipality,omitempty" dynamodbav:"municipality"`
	City            string    `json:"city,omitempty" dynamodbav:"city"`
	Tole            string    `json:"tole,omitempty" dynamodbav:"tole"`
	Country         string    `json:"country,omitempty" dynamodbav:"country"`
	Province        string    `json:"province,omitempty" dynamodbav:"province"`
	Zip             string    `json:"zip,omitempty" dynamodbav:"zip"`
	Coordinates     []float64 `json:"coordinates,omitempty" dynamodbav:"coordinates"`
	NearFamousPlace string    `json:"near_famous_place,omitempty" dynamodbav:"near_famous_place"`
}

// IdentityDocument holds KYC document references. Photo fields are S3 keys.
type IdentityDocument struct {
	CitizenshipNumber string `json:"citizenship_number,omitempty" dynamodbav:"citizenship_number"`
	CitizenshipPhoto  string `json:"citizenship_photo,omitempty" dynamodbav:"citizenship_photo"`
	PanNumber         string `json:"pan_number,omitempty" dynamodbav:"pan_number"`
	PanPhoto          string `json:"pan_photo,omitempty" dynamodbav:"pan_photo"`
}

// Account is the unified record over the four variants. All variants share
// {id, email, phone?, password hash, timestamps}; variant-specific fields are
// populated only for the variant that owns them.
type Account struct {
	AccountID    string      `json:"id" dynamodbav:"account_id"`
	AccountType  AccountType `json:"account_type" dynamodbav:"account_type"`
	Name         string      `json:"name,omitempty" dynamodbav:"name"`
	Email        string      `json:"email" dynamodbav:"email"`
	Phone        *string     `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string      `json:"-" dynamodbav:"password_hash"`

	// Business, staff and admin accounts carry a company role; customers carry
	// a customer tier instead.
	RoleInCompany string `json:"role_in_company,omitempty" dynamodbav:"role_in_company"`
	CustomerType  string `json:"customer_type,omitempty" dynamodbav:"customer_type"`

	PermanentAddress *Address          `json:"permanent_address,omitempty" dynamodbav:"permanent_address"`
	TemporaryAddress *Address          `json:"temporary_address,omitempty" dynamodbav:"temporary_address"`
	IdentityDocument *IdentityDocument `json:"identity_document,omitempty" dynamodbav:"identity_document"`

	LoyaltyPoints int  `json:"loyalty_points,omitempty" dynamodbav:"loyalty_points"`
	IsActive      bool `json:"is_active" dynamodbav:"is_active"`
	Verified      bool `json:"verified" dynamodbav:"verified"`

	ResetPasswordToken  string     `json:"-" dynamodbav:"reset_password_token"`
	ResetPasswordExpire *time.Time `json:"-" dynamodbav:"reset_password_expire"`

	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Classify returns the variant of a record. The explicit discriminator wins
// and is matched case-insensitively, so legacy rows carrying "Admin" still
// resolve; records without a discriminator fall back to the disjoint
// role-name sets, then to staff. New records always carry account_type, so
// the fallback is a legacy-data path only.
func (a *Account) Classify() AccountType {
	if t := AccountType(strings.ToLower(string(a.AccountType))); t.Valid() {
		return t
	}
	if businessRoles[a.RoleInCompany] {
		return AccountBusiness
	}
	if a.CustomerType != "" {
		return AccountCustomer
	}
	if adminRoles[a.RoleInCompany] {
		return AccountAdmin
	}
	return AccountStaff
}

type RegisterRequest struct {
	AccountType      string            `json:"account_type" validate:"required,oneof=admin business customer staff"`
	Name             string            `json:"name"`
	Email            string            `json:"email" validate:"required,email"`
	Password         string            `json:"password" validate:"required,min=8,max=72"`
	Phone            *string           `json:"phone"`
	RoleInCompany    string            `json:"role_in_company"`
	CustomerType     string            `json:"customer_type"`
	PermanentAddress *Address          `json:"permanent_address"`
	TemporaryAddress *Address          `json:"temporary_address"`
	IdentityDocument *IdentityDocument `json:"identity_document"`
}

// CompleteRegistrationRequest is the verify-otp payload: the registration
// payload again, plus the code delivered out of band.
type CompleteRegistrationRequest struct {
	RegisterRequest
	OTP string `json:"otp" validate:"required,len=4,numeric"`
}

// RegistrationAck is the initiation response. It never carries the code.
type RegistrationAck struct {
	Email        string `json:"email"`
	OTPExpiresIn string `json:"otp_expires_in"`
	OTPReference string `json:"otp_reference"`
}
