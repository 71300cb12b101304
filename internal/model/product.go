package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductGroup enum constants
const (
	GroupFinishedGood = "FG"   // Finished Good
	GroupRawMaterial  = "RM"   // Raw Material
	GroupWIP          = "WIP"  // Work in Progress
	GroupTrimsExcl    = "TRM1" // Trims, excluded from BOM costing
	GroupTrimsIncl    = "TRM0" // Trims, included in BOM costing
)

// Small integer codes for product groups, denormalized onto Assembly rows so
// autocomplete/admin filters stay index-only.
const (
	TypeCodeFinishedGood = 1
	TypeCodeRawMaterial  = 2
	TypeCodeWIP          = 3
	TypeCodeTrims        = 4
)

// Product is the global material catalog entry. Plant-level usage goes
// through Assembly (product x plant).
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	Name         string          `gorm:"type:varchar(150);not null" json:"name"`
	ProductGroup string          `gorm:"type:varchar(10);not null;default:'RM'" json:"product_group"` // FG, RM, WIP, TRM1, TRM0
	StyleGroup   string          `gorm:"type:varchar(128)" json:"style_group,omitempty"`
	Shade        string          `gorm:"type:varchar(60)" json:"shade,omitempty"`
	Size         string          `gorm:"type:varchar(30)" json:"size,omitempty"`
	UOM          string          `gorm:"type:varchar(20);default:'pcs'" json:"uom"`
	StandardCost decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"standard_cost"`
	Active       bool            `gorm:"default:true" json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsFinishedGood reports whether the product's group classifies it as a
// finished good.
func (p *Product) IsFinishedGood() bool {
	return p.ProductGroup == GroupFinishedGood
}

// TypeCode maps the textual product group to its small integer code.
// Returns 0 for unknown groups.
func (p *Product) TypeCode() int {
	switch p.ProductGroup {
	case GroupFinishedGood:
		return TypeCodeFinishedGood
	case GroupRawMaterial:
		return TypeCodeRawMaterial
	case GroupWIP:
		return TypeCodeWIP
	case GroupTrimsExcl, GroupTrimsIncl:
		return TypeCodeTrims
	default:
		return 0
	}
}
