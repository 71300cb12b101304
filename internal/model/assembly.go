package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Assembly is the plant-scoped pairing of a product and a plant. A finished
// good assembly owns a BOM history; any assembly may appear as a component on
// BOM lines of other assemblies in the same plant.
//
// is_finished_good and product_type_code are denormalized from the owning
// product so list/autocomplete filters hit the (plant_id, is_finished_good)
// index without a join. Seeding populates them; BackfillClassification repairs
// rows created before the columns existed.
type Assembly struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assembly_product_plant" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PlantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assembly_product_plant;index:idx_assembly_plant_fg,priority:1" json:"plant_id"`
	Plant     *Plant    `gorm:"foreignKey:PlantID;constraint:OnDelete:RESTRICT" json:"plant,omitempty"`
	Code      string    `gorm:"type:varchar(64);not null;index" json:"code"`
	Name      string    `gorm:"type:varchar(256);not null" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`

	// Plant-level cost override. Zero means "inherit the product's standard cost".
	StandardCost decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"standard_cost"`

	// Nullable so backfill can run against pre-existing rows.
	IsFinishedGood  *bool `gorm:"index:idx_assembly_plant_fg,priority:2" json:"is_finished_good"`
	ProductTypeCode *int  `json:"product_type_code,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Finished reports the denormalized finished-good flag, falling back to the
// loaded product's group while the flag is still null.
func (a *Assembly) Finished() bool {
	if a.IsFinishedGood != nil {
		return *a.IsFinishedGood
	}
	if a.Product != nil {
		return a.Product.IsFinishedGood()
	}
	return false
}

// EffectiveStandardCost returns the plant-level override when positive,
// otherwise the product's global standard cost. Requires Product preloaded
// for the fallback; a missing product yields the override as-is.
func (a *Assembly) EffectiveStandardCost() decimal.Decimal {
	if a.StandardCost.IsPositive() {
		return a.StandardCost
	}
	if a.Product != nil {
		return a.Product.StandardCost
	}
	return a.StandardCost
}
