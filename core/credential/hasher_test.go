package credential

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		wantType  Hasher
		wantErr   bool
	}{
		{name: "default", algorithm: "", wantType: &Argon2Hasher{}},
		{name: "argon2", algorithm: "argon2", wantType: &Argon2Hasher{}},
		{name: "bcrypt (case insensitive)", algorithm: "BCRYPT", wantType: &BcryptHasher{}},
		{name: "unknown", algorithm: "md5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHasher(tt.algorithm, bcrypt.MinCost)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, h)
		})
	}
}

func TestHashers(t *testing.T) {
	hashers := map[string]Hasher{
		"argon2": NewArgon2Hasher(),
		"bcrypt": NewBcryptHasher(bcrypt.MinCost),
	}
	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash1, err := h.Hash("كلمة-سر-123")
			require.NoError(t, err)
			hash2, err := h.Hash("كلمة-سر-123")
			require.NoError(t, err)

			assert.NotEqual(t, "كلمة-سر-123", hash1)
			assert.NotEqual(t, hash1, hash2, "hashes must be salted")

			ok, err := h.Verify("كلمة-سر-123", hash1)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify("wrong", hash1)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = h.Hash("")
			assert.Equal(t, ErrHashing, errors.Cause(err))
		})
	}
}

func TestVerifyAcrossAlgorithms(t *testing.T) {
	legacy, err := NewBcryptHasher(bcrypt.MinCost).Hash("secret-pass")
	require.NoError(t, err)

	ok, err := NewArgon2Hasher().Verify("secret-pass", legacy)
	require.NoError(t, err)
	assert.True(t, ok, "argon2 hasher still verifies bcrypt hashes")

	ok, err = NewArgon2Hasher().Verify("secret-pass", "plain-text")
	assert.False(t, ok)
	assert.Equal(t, ErrHashing, errors.Cause(err))
}

func TestNewBcryptHasher_clampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(1).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)

	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash("x")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$2a$04$") {
		t.Errorf("unexpected bcrypt hash prefix: %s", hash)
	}
}
