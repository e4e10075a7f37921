package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfcuttle/cuttle/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	u := &models.User{ID: uuid.New(), Username: "alice"}

	tok, err := v.CreateToken(u)
	require.NoError(t, err)

	got, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestWrongSecretFails(t *testing.T) {
	v := NewVerifier("test-secret")
	tok, err := v.CreateToken(&models.User{ID: uuid.New(), Username: "bob"})
	require.NoError(t, err)

	_, err = NewVerifier("other-secret").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenFails(t *testing.T) {
	_, err := NewVerifier("test-secret").Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
