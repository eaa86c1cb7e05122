package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-very-long-secret-key-for-testing"

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(Config{SecretKey: "", Duration: time.Hour})
	assert.ErrorIs(t, err, ErrEmptySecretKey)

	_, err = NewService(Config{SecretKey: "short", Duration: time.Hour})
	assert.ErrorIs(t, err, ErrWeakSecretKey)

	_, err = NewService(Config{SecretKey: testSecret, Duration: 0})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	s, err := NewService(Config{SecretKey: testSecret, Duration: 24 * time.Hour})
	assert.NoError(t, err)
	assert.NotNil(t, s)
}

func TestGenerateAndValidate(t *testing.T) {
	s, err := NewService(Config{SecretKey: testSecret, Duration: 24 * time.Hour})
	require.NoError(t, err)

	tok, err := s.GenerateToken(42, "alice", "alice@example.com")
	require.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestValidateExpired(t *testing.T) {
	s := &Service{config: Config{SecretKey: testSecret, Duration: -time.Minute}}
	tok, err := s.GenerateToken(1, "bob", "bob@example.com")
	require.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateMalformed(t *testing.T) {
	s, err := NewService(Config{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)

	claims, err := s.ValidateToken("not-a-token")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateWrongKey(t *testing.T) {
	a, _ := NewService(Config{SecretKey: testSecret, Duration: time.Hour})
	b, _ := NewService(Config{SecretKey: "another-very-long-secret-key-for-testing-x", Duration: time.Hour})

	tok, err := a.GenerateToken(7, "carol", "carol@example.com")
	require.NoError(t, err)

	claims, err := b.ValidateToken(tok)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
