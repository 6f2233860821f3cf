package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	require.NoError(t, Config.Validate())
	assert.False(t, Config.Shareable())
	assert.False(t, Config.HasItems())
}
