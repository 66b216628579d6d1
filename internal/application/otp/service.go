package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

// Code subject/body used for email delivery.
const (
	emailSubject = "Verify your account"
)

// GateStore is the keyed ephemeral state machine behind the engine. Every
// method is atomic per identifier.
type GateStore interface {
	CheckRestrictions(ctx context.Context, identifier string) error
	TrackRequest(ctx context.Context, identifier string) error
	Issue(ctx context.Context, identifier, code string) error
	Verify(ctx context.Context, identifier, candidate string) error
}

type Mailer interface {
	SendEmail(to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Service issues and verifies one-time codes for an identifier (email or
// phone). Codes reach the user out of band; they are never returned to the
// caller.
type Service interface {
	RequestCode(ctx context.Context, identifier string) error
	VerifyCode(ctx context.Context, identifier, code string) error
}

type service struct {
	gates     GateStore
	mailer    Mailer
	smsSender SMSSender
}

type ServiceDeps struct {
	Gates     GateStore
	Mailer    Mailer
	SMSSender SMSSender
}

func NewService(deps ServiceDeps) Service {
	return &service{
		gates:     deps.Gates,
		mailer:    deps.Mailer,
		smsSender: deps.SMSSender,
	}
}

// RequestCode walks the gates in order (restrictions, request budget), then
// issues a fresh code and dispatches it. A dispatch failure does not revert
// the issuance or the cooldown: the code is already live and the cooldown
// keeps a failing notifier from being used to probe issuance.
func (s *service) RequestCode(ctx context.Context, identifier string) error {
	if err := s.gates.CheckRestrictions(ctx, identifier); err != nil {
		return err
	}
	if err := s.gates.TrackRequest(ctx, identifier); err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.gates.Issue(ctx, identifier, code); err != nil {
		return err
	}

	if err := s.dispatch(ctx, identifier, code); err != nil {
		slog.Warn("OTP dispatch failed", "identifier", identifier, "err", err)
		return fmt.Errorf("could not deliver OTP: %w", domain.ErrDeliveryFailed)
	}
	return nil
}

// VerifyCode consumes the live code for the identifier. Failures propagate
// unchanged from the gate store (not found, invalid code, hard lock).
func (s *service) VerifyCode(ctx context.Context, identifier, code string) error {
	return s.gates.Verify(ctx, identifier, code)
}

func (s *service) dispatch(ctx context.Context, identifier, code string) error {
	if strings.Contains(identifier, "@") {
		return s.mailer.SendEmail(identifier, emailSubject, "Your verification code is "+code+". It expires in 5 minutes.")
	}
	// The SMS sender is optional at startup; without it a phone identifier is
	// undeliverable, not a crash.
	if s.smsSender == nil {
		return errors.New("no SMS sender configured")
	}
	return s.smsSender.SendSMS(ctx, identifier, "Your verification code is "+code)
}

// generateCode draws a 4-digit decimal code uniformly from [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
