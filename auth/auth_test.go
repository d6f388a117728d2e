package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MySuperSecret123"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword1", hash)
	req.NoError(err)
	req.False(match)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "alice@example.com", "ComplexPass123"}, false},
		{"Invalid email", RegisterRequest{"alice", "notanemail", "ComplexPass123"}, true},
		{"Username too short", RegisterRequest{"al", "alice@example.com", "ComplexPass123"}, true},
		{"Password too short", RegisterRequest{"alice", "alice@example.com", "Sh0rt"}, true},
		{"Missing digit", RegisterRequest{"alice", "alice@example.com", "NoDigitPassword"}, true},
		{"Missing uppercase", RegisterRequest{"alice", "alice@example.com", "nouppercase123"}, true},
		{"Password too long", RegisterRequest{"alice", "alice@example.com", "A1" + strings.Repeat("a", 72)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenRoundtrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate("user-id-1", "alice")
	req.NoError(err)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-id-1", claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("another-secret", time.Hour)

	token, err := issuer.Generate("user-id-1", "alice")
	req.NoError(err)

	_, err = other.Validate(token)
	req.Error(err)
}

func TestTokenRejectsExpired(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Generate("user-id-1", "alice")
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.Error(err)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-long-and-complex-password-123")
	}
}
