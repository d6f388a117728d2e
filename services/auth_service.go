package services

import (
	"fmt"

	"dm-relay/auth"
	"dm-relay/domain"
	"dm-relay/errors"
	"dm-relay/repositories"

	"github.com/google/uuid"
)

type IAuthService interface {
	Register(username, email, password string) (domain.User, error)
	Login(email, password string) (domain.User, Token, error)
	Logout(userID uuid.UUID) error
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	issuer auth.TokenIssuer
}

func NewAuthService(users repositories.IUserRepository, issuer auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Register validates the request, hashes the password and persists the
// user. Validation runs before the expensive hashing; the repository
// stays unaware of plain passwords.
func (s *AuthService) Register(username, email, password string) (domain.User, error) {
	req := auth.RegisterRequest{Username: username, Email: email, Password: password}
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	// Propagates ErrUserAlreadyExists / ErrUsernameTaken.
	return s.users.Create(username, email, hash)
}

// Login verifies credentials, marks the user online in the directory
// and issues a session token. Lookup and comparison failures collapse
// into one generic error to prevent user enumeration.
func (s *AuthService) Login(email, password string) (domain.User, Token, error) {
	user, hash, err := s.users.GetByEmail(email)
	if err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, hash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	if err := s.users.SetStatus(user.ID, domain.StatusOnline); err != nil {
		return domain.User{}, "", err
	}
	user.Status = domain.StatusOnline

	token, err := s.issuer.Generate(user.ID.String(), user.Username)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, Token(token), nil
}

// Logout records the user as offline. No presence broadcast happens
// here; a live connection's close is what triggers one.
func (s *AuthService) Logout(userID uuid.UUID) error {
	return s.users.SetStatus(userID, domain.StatusOffline)
}
