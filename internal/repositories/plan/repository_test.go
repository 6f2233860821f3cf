package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	require.NoError(t, Config.Validate())
	assert.True(t, Config.Shareable())
	assert.True(t, Config.HasItems())
	assert.Equal(t, "plan_id", Config.ShareForeignKeyColumn)
	assert.Equal(t, "plan_id", Config.ItemsForeignKeyColumn)
}
