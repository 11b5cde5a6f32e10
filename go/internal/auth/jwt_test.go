package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	signer, err := NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := signer.Sign(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, userID, got)
}

func TestParse_WrongSecret(t *testing.T) {
	signer, err := NewSigner("secret-one", time.Hour)
	require.NoError(t, err)
	other, err := NewSigner("secret-two", time.Hour)
	require.NoError(t, err)

	token, err := signer.Sign(uuid.New())
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	signer, err := NewSigner("test-secret", time.Nanosecond)
	require.NoError(t, err)

	token, err := signer.Sign(uuid.New())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = signer.Parse(token)
	require.Error(t, err)
}

func TestParse_Garbage(t *testing.T) {
	signer, err := NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	_, err = signer.Parse("not.a.token")
	require.Error(t, err)
}

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner("", time.Hour)
	require.Error(t, err)
}
