package service

import (
	"bomtrack/internal/apperror"
	"bomtrack/internal/model"

	"github.com/shopspring/decimal"
)

// CostEngine computes the roll-up cost of a BOM from its lines. All
// arithmetic is exact decimal; the same inputs always produce the same
// total, which is what gets frozen into total_cost_snapshot at approval.
type CostEngine struct{}

func NewCostEngine() *CostEngine {
	return &CostEngine{}
}

// ComputeTotalCost sums quantity x effective unit cost over every line and
// adds the header's overhead cost. The effective unit cost is the component
// assembly's plant-level override when positive, otherwise the product's
// global standard cost. Lines and their components must be preloaded.
func (e *CostEngine) ComputeTotalCost(bom *model.BOM) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range bom.Lines {
		line := &bom.Lines[i]
		if line.Component == nil {
			return decimal.Zero, apperror.Validation("component", "line %s has no component loaded", line.ID)
		}
		total = total.Add(line.Quantity.Mul(line.Component.EffectiveStandardCost()))
	}
	return total.Add(bom.OverheadCost), nil
}

// LineCosts returns the unit and extended cost for one line, used to freeze
// the per-line audit snapshots at approval time.
func (e *CostEngine) LineCosts(line *model.BOMLine) (unit, extended decimal.Decimal, err error) {
	if line.Component == nil {
		return decimal.Zero, decimal.Zero, apperror.Validation("component", "line %s has no component loaded", line.ID)
	}
	unit = line.Component.EffectiveStandardCost()
	return unit, line.Quantity.Mul(unit), nil
}
