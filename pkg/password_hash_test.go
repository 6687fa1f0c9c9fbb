package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	passwordHash, err := HashPassword("founderpass")
	require.NoError(t, err)
	assert.NotEmpty(t, passwordHash)
	assert.True(t, CheckPasswordHash("founderpass", passwordHash))
	assert.False(t, CheckPasswordHash("wrongpass", passwordHash))

	// hashes produced with other bcrypt cost factors still verify
	assert.True(t, CheckPasswordHash("sr", "$2a$14$z8cd4yJpzP40Qh2F2BhiMO.sOm4YAIaf30pmUKLOaISojD9HnXgaG"))
}

func TestCheckPasswordHash_invalidHash(t *testing.T) {
	assert.False(t, CheckPasswordHash("whatever", "not-a-bcrypt-hash"))
	assert.False(t, CheckPasswordHash("whatever", ""))
}
