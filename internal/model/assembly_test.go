package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveStandardCost(t *testing.T) {
	product := &Product{StandardCost: decimal.RequireFromString("7.50")}

	t.Run("positive override wins", func(t *testing.T) {
		a := &Assembly{StandardCost: decimal.RequireFromString("9.25"), Product: product}
		assert.True(t, a.EffectiveStandardCost().Equal(decimal.RequireFromString("9.25")))
	})

	t.Run("zero override falls back to product", func(t *testing.T) {
		a := &Assembly{StandardCost: decimal.Zero, Product: product}
		assert.True(t, a.EffectiveStandardCost().Equal(decimal.RequireFromString("7.50")))
	})

	t.Run("no product loaded yields override", func(t *testing.T) {
		a := &Assembly{StandardCost: decimal.Zero}
		assert.True(t, a.EffectiveStandardCost().IsZero())
	})
}

func TestAssemblyFinished(t *testing.T) {
	yes := true
	no := false

	assert.True(t, (&Assembly{IsFinishedGood: &yes}).Finished())
	assert.False(t, (&Assembly{IsFinishedGood: &no}).Finished())

	// Null flag falls back to the loaded product's group.
	fg := &Assembly{Product: &Product{ProductGroup: GroupFinishedGood}}
	assert.True(t, fg.Finished())
	rm := &Assembly{Product: &Product{ProductGroup: GroupRawMaterial}}
	assert.False(t, rm.Finished())
	assert.False(t, (&Assembly{}).Finished())
}

func TestProductTypeCode(t *testing.T) {
	tests := []struct {
		group string
		want  int
	}{
		{GroupFinishedGood, TypeCodeFinishedGood},
		{GroupRawMaterial, TypeCodeRawMaterial},
		{GroupWIP, TypeCodeWIP},
		{GroupTrimsExcl, TypeCodeTrims},
		{GroupTrimsIncl, TypeCodeTrims},
		{"???", 0},
	}
	for _, tt := range tests {
		p := &Product{ProductGroup: tt.group}
		assert.Equal(t, tt.want, p.TypeCode(), tt.group)
	}
}
