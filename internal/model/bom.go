package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkflowState enum constants. DRAFT is the only mutable state; APPROVED and
// ACTIVE are "governing" (subject to the effective-range exclusion rule);
// ARCHIVED is terminal.
const (
	StateDraft    = "DRAFT"
	StateApproved = "APPROVED"
	StateActive   = "ACTIVE"
	StateArchived = "ARCHIVED"
)

// GoverningStates are the workflow states subject to the single-governance
// overlap rule.
var GoverningStates = []string{StateApproved, StateActive}

// BOM is the bill-of-materials header for one assembly. Versions are integers,
// unique per assembly and allocated under an assembly row lock. BOMs are never
// deleted; superseded versions are archived to preserve audit history.
type BOM struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssemblyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bom_assembly_version" json:"assembly_id"`
	Assembly   *Assembly `gorm:"foreignKey:AssemblyID;constraint:OnDelete:RESTRICT" json:"assembly,omitempty"`
	Version    int       `gorm:"not null;uniqueIndex:idx_bom_assembly_version" json:"version"`

	EffectiveFrom *time.Time `gorm:"type:date" json:"effective_from"`
	EffectiveTo   *time.Time `gorm:"type:date" json:"effective_to"`

	WorkflowState string          `gorm:"type:varchar(16);not null;default:'DRAFT';index" json:"workflow_state"`
	ScrapPercent  decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"scrap_percent"`
	OverheadCost  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"overhead_cost"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`

	ApprovedBy *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	Approver   *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	// Frozen at approval time. TotalCostSnapshot is the roll-up result;
	// ImmutableSnapshot is an owned JSON copy of the identifying fields,
	// never aliased to the live rows.
	TotalCostSnapshot *decimal.Decimal `gorm:"type:decimal(14,4)" json:"total_cost_snapshot,omitempty"`
	ImmutableSnapshot string           `gorm:"type:jsonb" json:"immutable_snapshot,omitempty"`

	Lines []BOMLine `gorm:"foreignKey:BOMID" json:"lines,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Governing reports whether the BOM is in a state subject to the overlap rule.
func (b *BOM) Governing() bool {
	return b.WorkflowState == StateApproved || b.WorkflowState == StateActive
}

// OverlapsRange checks the BOM's effective window against [from, to] using
// inclusive bounds; a nil bound is unbounded in that direction.
func (b *BOM) OverlapsRange(from, to *time.Time) bool {
	return RangesOverlap(from, to, b.EffectiveFrom, b.EffectiveTo)
}

// RangesOverlap reports whether [aFrom, aTo] and [bFrom, bTo] intersect.
// Bounds are inclusive on both ends; nil means unbounded.
func RangesOverlap(aFrom, aTo, bFrom, bTo *time.Time) bool {
	leftOK := aFrom == nil || bTo == nil || !aFrom.After(*bTo)
	rightOK := aTo == nil || bFrom == nil || !aTo.Before(*bFrom)
	return leftOK && rightOK
}

// BOMSnapshot is the fixed-shape immutable snapshot payload frozen on approval.
type BOMSnapshot struct {
	AssemblyID    string  `json:"assembly_id"`
	AssemblyCode  string  `json:"assembly_code"`
	Version       int     `json:"version"`
	EffectiveFrom *string `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
}

// BOMLine ties one component assembly to a BOM with a positive quantity.
// A component may appear at most once per BOM version.
type BOMLine struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BOMID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_bom_component" json:"bom_id"`
	ComponentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_bom_component" json:"component_id"`
	Component   *Assembly `gorm:"foreignKey:ComponentID;constraint:OnDelete:RESTRICT" json:"component,omitempty"`

	Quantity decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"quantity"`

	// Per-line audit snapshots captured at approval time.
	UnitCostSnapshot     *decimal.Decimal `gorm:"type:decimal(14,4)" json:"unit_cost_snapshot,omitempty"`
	ExtendedCostSnapshot *decimal.Decimal `gorm:"type:decimal(14,4)" json:"extended_cost_snapshot,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
