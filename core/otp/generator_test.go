package otp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name         string
		length       int
		alphanumeric bool
		charset      string
		wantErr      bool
	}{
		{name: "numeric", length: 6, charset: digits},
		{name: "long numeric", length: 10, charset: digits},
		{name: "alphanumeric", length: 8, alphanumeric: true, charset: alphanumerics},
		{name: "zero length", length: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Generate(tt.length, tt.alphanumeric)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, code, tt.length)
			for _, c := range code {
				assert.True(t, strings.ContainsRune(tt.charset, c), "unexpected char %q", c)
			}
		})
	}
}

func Test_codeMatches(t *testing.T) {
	secret := []byte("secret")
	hash := hashCode(secret, "admin@example.com", "ab12cd")

	assert.True(t, codeMatches(secret, "admin@example.com", "AB12CD", hash))
	assert.True(t, codeMatches(secret, "admin@example.com", " ab12cd ", hash))
	assert.False(t, codeMatches(secret, "admin@example.com", "ab12ce", hash))
	assert.False(t, codeMatches(secret, "other@example.com", "ab12cd", hash))
	assert.False(t, codeMatches([]byte("other"), "admin@example.com", "ab12cd", hash))
}
