package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_Hash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "regular password", password: "password123"},
		{name: "password with special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "unicode password", password: "пароль-ученика"},
		{name: "exactly 72 bytes", password: strings.Repeat("a", MaxBytes)},
		{name: "36 cyrillic runes fit", password: strings.Repeat("пароль", 6)},
		{name: "empty password", password: "", wantErr: ErrEmptyPassword},
		{name: "73 bytes", password: strings.Repeat("a", MaxBytes+1), wantErr: ErrTooLong},
		{name: "42 cyrillic runes are 84 bytes", password: strings.Repeat("пароль", 7), wantErr: ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := h.Hash(tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, digest)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, digest)
			assert.True(t, h.Verify(tt.password, digest))
		})
	}
}

func TestHasher_Verify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	correct, err := h.Hash("correct_password")
	require.NoError(t, err)
	another, err := h.Hash("another_password")
	require.NoError(t, err)

	tests := []struct {
		name        string
		digest      string
		password    string
		shouldMatch bool
	}{
		{name: "matching password", digest: correct, password: "correct_password", shouldMatch: true},
		{name: "wrong password", digest: correct, password: "wrong_password"},
		{name: "different hash same password", digest: another, password: "correct_password"},
		{name: "empty password", digest: correct, password: ""},
		{name: "garbage digest", digest: "not-a-bcrypt-hash", password: "correct_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldMatch, h.Verify(tt.password, tt.digest))
		})
	}
}

func TestHasher_SaltedDigests(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHasher_CostFallback(t *testing.T) {
	h := NewHasher(100)
	digest, err := h.Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHasher_Unusable(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	digest, err := h.Unusable()
	require.NoError(t, err)

	assert.False(t, h.Verify("", digest))
	assert.False(t, h.Verify("password123", digest))
}
