package sharing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Table:                 "templates",
		TypeName:              "Template",
		OwnerColumn:           "user_id",
		UniqueConstraint:      "templates_user_id_name_key",
		ShareTable:            "shared_templates",
		ShareForeignKeyColumn: "template_id",
		SharedUsersProcedure:  "get_template_shared_users",
		ItemsTable:            "template_items",
		ItemsForeignKeyColumn: "template_id",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "full config is valid",
			mutate: func(c *Config) {},
		},
		{
			name: "share-less item-less config is valid",
			mutate: func(c *Config) {
				c.ShareTable = ""
				c.ShareForeignKeyColumn = ""
				c.SharedUsersProcedure = ""
				c.ItemsTable = ""
				c.ItemsForeignKeyColumn = ""
			},
		},
		{
			name:    "table is required",
			mutate:  func(c *Config) { c.Table = "" },
			wantErr: "table is required",
		},
		{
			name:    "type name is required",
			mutate:  func(c *Config) { c.TypeName = "" },
			wantErr: "type name is required",
		},
		{
			name:    "owner column is required",
			mutate:  func(c *Config) { c.OwnerColumn = "" },
			wantErr: "owner column is required",
		},
		{
			name:    "unique constraint is required",
			mutate:  func(c *Config) { c.UniqueConstraint = "" },
			wantErr: "unique constraint name is required",
		},
		{
			name:    "share table without a foreign key column is rejected",
			mutate:  func(c *Config) { c.ShareForeignKeyColumn = "" },
			wantErr: "explicit foreign key column",
		},
		{
			name:    "share table without a shared users procedure is rejected",
			mutate:  func(c *Config) { c.SharedUsersProcedure = "" },
			wantErr: "shared users procedure",
		},
		{
			name: "share settings without a share table are rejected",
			mutate: func(c *Config) {
				c.ShareTable = ""
			},
			wantErr: "no share table is set",
		},
		{
			name:    "items table without a foreign key column is rejected",
			mutate:  func(c *Config) { c.ItemsForeignKeyColumn = "" },
			wantErr: "explicit foreign key column",
		},
		{
			name: "items foreign key without an items table is rejected",
			mutate: func(c *Config) {
				c.ItemsTable = ""
			},
			wantErr: "no items table is set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigCapabilities(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.Shareable())
	assert.True(t, cfg.HasItems())

	cfg.ShareTable = ""
	cfg.ItemsTable = ""
	assert.False(t, cfg.Shareable())
	assert.False(t, cfg.HasItems())
}
