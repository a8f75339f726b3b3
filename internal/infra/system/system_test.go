package system

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerator(t *testing.T) {
	id := UUIDGenerator{}.NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, UUIDGenerator{}.NewID())
}

func TestCodeGenerator(t *testing.T) {
	g, err := NewCodeGenerator(0)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c := g.NewCode()
		assert.Len(t, c, DefaultCodeLength)
		for _, r := range c {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
		seen[c] = true
	}
	assert.Greater(t, len(seen), 45)
}
