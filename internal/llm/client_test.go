package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientProviders(t *testing.T) {
	c, err := NewClient("anthropic", "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	c, err = NewClient("openai", "key")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	_, err = NewClient("mystery", "key")
	assert.Error(t, err)
}
