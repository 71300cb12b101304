package service

import (
	"testing"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func componentWithCost(override, productCost string) *model.Assembly {
	return &model.Assembly{
		StandardCost: dec(override),
		Product:      &model.Product{StandardCost: dec(productCost)},
	}
}

func TestComputeTotalCost(t *testing.T) {
	engine := NewCostEngine()

	// 2 x 10.00 + 3 x 5.00 + 1.50 overhead = 36.50, exactly.
	bom := &model.BOM{
		OverheadCost: dec("1.50"),
		Lines: []model.BOMLine{
			{Quantity: dec("2"), Component: componentWithCost("10.00", "999")},
			{Quantity: dec("3"), Component: componentWithCost("0", "5.00")},
		},
	}

	total, err := engine.ComputeTotalCost(bom)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("36.50")), "got %s", total)
}

func TestComputeTotalCostExactDecimals(t *testing.T) {
	engine := NewCostEngine()

	// Values chosen to break binary floats: 0.1 + 0.2 style accumulation.
	bom := &model.BOM{
		OverheadCost: dec("0.3"),
		Lines: []model.BOMLine{
			{Quantity: dec("3"), Component: componentWithCost("0.1", "0")},
			{Quantity: dec("1"), Component: componentWithCost("0.2", "0")},
		},
	}

	total, err := engine.ComputeTotalCost(bom)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("0.8")), "got %s", total)
}

func TestComputeTotalCostEmptyBOM(t *testing.T) {
	engine := NewCostEngine()

	total, err := engine.ComputeTotalCost(&model.BOM{OverheadCost: dec("2.25")})
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("2.25")))
}

func TestComputeTotalCostMissingComponent(t *testing.T) {
	engine := NewCostEngine()

	bom := &model.BOM{
		Lines: []model.BOMLine{{Quantity: dec("1")}},
	}
	_, err := engine.ComputeTotalCost(bom)
	assert.True(t, apperror.IsValidation(err))
}

func TestLineCosts(t *testing.T) {
	engine := NewCostEngine()

	line := &model.BOMLine{
		Quantity:  dec("2.5"),
		Component: componentWithCost("4.20", "0"),
	}
	unit, extended, err := engine.LineCosts(line)
	require.NoError(t, err)
	assert.True(t, unit.Equal(dec("4.20")))
	assert.True(t, extended.Equal(dec("10.50")))
}
