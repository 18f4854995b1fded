package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	salt := []byte("node-salt")

	first := Hash("correct horse battery staple", salt)
	second := Hash("correct horse battery staple", salt)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestHash_DifferentPasswords(t *testing.T) {
	salt := []byte("node-salt")

	assert.NotEqual(t, Hash("password-one", salt), Hash("password-two", salt))
}

func TestHash_DifferentSalts(t *testing.T) {
	password := "same password"

	assert.NotEqual(t, Hash(password, []byte("salt-a")), Hash(password, []byte("salt-b")))
}

func TestHash_HexEncoded(t *testing.T) {
	h := Hash("anything", []byte("salt"))

	// 64-byte key, hex encoded
	assert.Len(t, h, 128)
	for _, c := range h {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}
