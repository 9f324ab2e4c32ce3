package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// ManagerActor is the identity recorded for the shared dashboard login.
// The gate is a single shared password; there is no per-user identity.
const ManagerActor = "manager"

// Service validates the shared manager password.
type Service struct {
	passwordHash []byte
}

// NewService constructs a Service from the configured bcrypt hash.
func NewService(passwordHash string) *Service {
	return &Service{passwordHash: []byte(passwordHash)}
}

// Authenticate compares the submitted password against the configured hash.
func (s *Service) Authenticate(password string) error {
	if password == "" {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}
