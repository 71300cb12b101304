package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionCreatePlant   = "CREATE_PLANT"
	ActionUpdatePlant   = "UPDATE_PLANT"
	ActionCreateParty   = "CREATE_PARTY"
	ActionUpdateParty   = "UPDATE_PARTY"

	ActionCreateProductionLine = "CREATE_PRODUCTION_LINE"
	ActionCreateWorker         = "CREATE_WORKER"

	// BOM lifecycle actions
	ActionCreateBOM     = "CREATE_BOM"
	ActionApproveBOM    = "APPROVE_BOM"
	ActionActivateBOM   = "ACTIVATE_BOM"
	ActionDuplicateBOM  = "DUPLICATE_BOM"
	ActionAddBOMLine    = "ADD_BOM_LINE"
	ActionRemoveBOMLine = "REMOVE_BOM_LINE"

	// Seeding/backfill actions
	ActionSeedAssemblies         = "SEED_ASSEMBLIES"
	ActionBackfillClassification = "BACKFILL_CLASSIFICATION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
