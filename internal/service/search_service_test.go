package service

import (
	"context"
	"testing"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutocompleteText(t *testing.T) {
	a := &model.Assembly{
		Code: "FG-001",
		Name: "Crew Tee",
		Product: &model.Product{
			Shade: "Navy",
			Size:  "M",
		},
		Plant: &model.Plant{Code: "PL1"},
	}
	assert.Equal(t, "FG-001 | Crew Tee | Navy | M | PL1", autocompleteText(a))

	bare := &model.Assembly{Code: "RM-002", Name: "Thread"}
	assert.Equal(t, "RM-002 | Thread", autocompleteText(bare))
}

func TestSearchSplitsFinishedGoodsFromComponents(t *testing.T) {
	store := newMemStore()
	plant := store.addPlant(&model.Plant{Code: "PL1", Active: true})

	fgProduct := store.addProduct(&model.Product{Code: "FG-001", ProductGroup: model.GroupFinishedGood})
	rmProduct := store.addProduct(&model.Product{Code: "RM-001", ProductGroup: model.GroupRawMaterial})
	fgFlag, rmFlag := true, false
	store.addAssembly(&model.Assembly{
		ProductID: fgProduct.ID, PlantID: plant.ID, Code: "FG-001", Name: "Tee",
		Active: true, IsFinishedGood: &fgFlag,
	})
	store.addAssembly(&model.Assembly{
		ProductID: rmProduct.ID, PlantID: plant.ID, Code: "RM-001", Name: "Thread",
		Active: true, IsFinishedGood: &rmFlag,
	})

	svc := NewSearchService(&memAssemblyRepo{store: store})
	ctx := context.Background()

	fgs, err := svc.FinishedGoods(ctx, "", plant.ID.String(), 1, 20)
	require.NoError(t, err)
	require.Len(t, fgs.Results, 1)
	assert.Contains(t, fgs.Results[0].Text, "FG-001")

	comps, err := svc.Components(ctx, "", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, comps.Results, 1)
	assert.Contains(t, comps.Results[0].Text, "RM-001")

	_, err = svc.FinishedGoods(ctx, "", "not-a-uuid", 1, 20)
	assert.True(t, apperror.IsValidation(err))
}

func TestSearchClassifiesRowsWithoutDenormalizedFlag(t *testing.T) {
	store := newMemStore()
	plant := store.addPlant(&model.Plant{Code: "PL1", Active: true})

	// Rows created before classification was denormalized carry a null flag
	// and classify through the product group instead.
	fgProduct := store.addProduct(&model.Product{Code: "FG-OLD", ProductGroup: model.GroupFinishedGood})
	rmProduct := store.addProduct(&model.Product{Code: "RM-OLD", ProductGroup: model.GroupRawMaterial})
	store.addAssembly(&model.Assembly{
		ProductID: fgProduct.ID, PlantID: plant.ID, Code: "FG-OLD", Name: "Polo", Active: true,
	})
	store.addAssembly(&model.Assembly{
		ProductID: rmProduct.ID, PlantID: plant.ID, Code: "RM-OLD", Name: "Button", Active: true,
	})

	svc := NewSearchService(&memAssemblyRepo{store: store})
	ctx := context.Background()

	fgs, err := svc.FinishedGoods(ctx, "", plant.ID.String(), 1, 20)
	require.NoError(t, err)
	require.Len(t, fgs.Results, 1)
	assert.Contains(t, fgs.Results[0].Text, "FG-OLD")

	comps, err := svc.Components(ctx, "", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, comps.Results, 1)
	assert.Contains(t, comps.Results[0].Text, "RM-OLD")
}
