package sharing

import (
	"fmt"
	"time"
)

// Record is implemented by every entity row the generic service can manage.
type Record interface {
	RecordID() string
	RecordOwnerID() string
	RecordCreatedAt() time.Time
}

// NoItems is the item type for entity kinds without line items.
type NoItems struct{}

// Config describes one entity kind's tables, constraint names and stored
// procedures. All column names are explicit; nothing is derived from the
// table name.
type Config struct {
	// Table is the entity table.
	Table string
	// TypeName is the human-readable kind name used in error messages.
	TypeName string
	// OwnerColumn is the column on Table holding the owner's user id.
	OwnerColumn string
	// UniqueConstraint is the per-owner name uniqueness constraint whose
	// violation is surfaced as DuplicateNameError.
	UniqueConstraint string

	// ShareTable is the share table, empty for kinds that cannot be shared.
	ShareTable string
	// ShareForeignKeyColumn is the column on ShareTable referencing Table.
	// Required whenever ShareTable is set.
	ShareForeignKeyColumn string
	// SharedUsersProcedure is the stored procedure returning the recipient
	// roster for one entity. Required whenever ShareTable is set.
	SharedUsersProcedure string

	// ItemsTable is the line item table, empty for kinds without items.
	ItemsTable string
	// ItemsForeignKeyColumn is the column on ItemsTable referencing Table.
	// Required whenever ItemsTable is set.
	ItemsForeignKeyColumn string
}

// Shareable reports whether this kind supports the share lifecycle.
func (c Config) Shareable() bool {
	return c.ShareTable != ""
}

// HasItems reports whether this kind carries line items.
func (c Config) HasItems() bool {
	return c.ItemsTable != ""
}

// Validate rejects incomplete configurations at construction time rather
// than letting a missing column name surface as a malformed query later.
func (c Config) Validate() error {
	if c.Table == "" {
		return fmt.Errorf("sharing config: table is required")
	}
	if c.TypeName == "" {
		return fmt.Errorf("sharing config for table %q: type name is required", c.Table)
	}
	if c.OwnerColumn == "" {
		return fmt.Errorf("sharing config for %s: owner column is required", c.TypeName)
	}
	if c.UniqueConstraint == "" {
		return fmt.Errorf("sharing config for %s: unique constraint name is required", c.TypeName)
	}
	if c.ShareTable != "" {
		if c.ShareForeignKeyColumn == "" {
			return fmt.Errorf("sharing config for %s: share table %q requires an explicit foreign key column", c.TypeName, c.ShareTable)
		}
		if c.SharedUsersProcedure == "" {
			return fmt.Errorf("sharing config for %s: share table %q requires a shared users procedure", c.TypeName, c.ShareTable)
		}
	} else {
		if c.ShareForeignKeyColumn != "" || c.SharedUsersProcedure != "" {
			return fmt.Errorf("sharing config for %s: share settings are present but no share table is set", c.TypeName)
		}
	}
	if c.ItemsTable != "" && c.ItemsForeignKeyColumn == "" {
		return fmt.Errorf("sharing config for %s: items table %q requires an explicit foreign key column", c.TypeName, c.ItemsTable)
	}
	if c.ItemsTable == "" && c.ItemsForeignKeyColumn != "" {
		return fmt.Errorf("sharing config for %s: items foreign key is present but no items table is set", c.TypeName)
	}
	return nil
}
