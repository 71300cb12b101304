package service

import (
	"context"
	"testing"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seedFixture struct {
	store   *memStore
	service SeedService
	plants  []*model.Plant
}

func newSeedFixture(t *testing.T, plantCount int) *seedFixture {
	t.Helper()
	store := newMemStore()
	f := &seedFixture{store: store}
	for i := 0; i < plantCount; i++ {
		f.plants = append(f.plants, store.addPlant(&model.Plant{
			Code: "PL" + string(rune('1'+i)), Name: "Plant", Active: true,
		}))
	}
	f.service = NewSeedService(
		&memProductRepo{store: store},
		&memPlantRepo{store: store},
		&memAssemblyRepo{store: store},
		&memAuditRepo{store: store},
		&memTxManager{store: store},
		nil,
	)
	return f
}

func (f *seedFixture) addProduct(code, group string) *model.Product {
	return f.store.addProduct(&model.Product{Code: code, Name: code, ProductGroup: group})
}

func idsOf(products ...*model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID.String())
	}
	return out
}

func TestSeedCreatesAssembliesPerPlant(t *testing.T) {
	f := newSeedFixture(t, 2)
	fg := f.addProduct("FG-001", model.GroupFinishedGood)
	rm := f.addProduct("RM-001", model.GroupRawMaterial)

	summary, err := f.service.Seed(context.Background(), uuid.NewString(), SeedRequest{
		ProductIDs: idsOf(fg, rm),
		PlantIDs:   []string{f.plants[0].ID.String(), f.plants[1].ID.String()},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Created)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Plants, 2)

	// Classification is denormalized at creation time.
	fgCount := 0
	for _, a := range f.store.assemblies {
		require.NotNil(t, a.IsFinishedGood)
		if *a.IsFinishedGood {
			fgCount++
			assert.Equal(t, model.TypeCodeFinishedGood, *a.ProductTypeCode)
		}
	}
	assert.Equal(t, 2, fgCount) // one FG assembly per plant
}

func TestSeedIsIdempotent(t *testing.T) {
	f := newSeedFixture(t, 1)
	fg := f.addProduct("FG-001", model.GroupFinishedGood)
	rm := f.addProduct("RM-001", model.GroupRawMaterial)

	req := SeedRequest{
		ProductIDs: idsOf(fg, rm),
		PlantIDs:   []string{f.plants[0].ID.String()},
	}
	ctx := context.Background()
	actor := uuid.NewString()

	first, err := f.service.Seed(ctx, actor, req)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := f.service.Seed(ctx, actor, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Failed)

	assert.Len(t, f.store.assemblies, 2, "re-running must not create duplicates")
}

func TestSeedFallsBackRowByRow(t *testing.T) {
	f := newSeedFixture(t, 1)
	good := f.addProduct("FG-001", model.GroupFinishedGood)
	bad := f.addProduct("FG-002", model.GroupFinishedGood)

	// Batch insert fails wholesale; the bad row then fails individually while
	// the good row still lands.
	f.store.failCreateBatch = true
	f.store.failProducts[bad.ID] = true

	summary, err := f.service.Seed(context.Background(), uuid.NewString(), SeedRequest{
		ProductIDs: idsOf(good, bad),
		PlantIDs:   []string{f.plants[0].ID.String()},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Plants, 1)
	require.Len(t, summary.Plants[0].Failed, 1)
	assert.Equal(t, bad.ID.String(), summary.Plants[0].Failed[0].ProductID)
}

func TestSeedFailedRowDoesNotPoisonRest(t *testing.T) {
	f := newSeedFixture(t, 1)
	bad := f.addProduct("FG-001", model.GroupFinishedGood)
	good := f.addProduct("FG-002", model.GroupFinishedGood)
	also := f.addProduct("RM-001", model.GroupRawMaterial)

	f.store.failCreateBatch = true
	f.store.failProducts[bad.ID] = true

	summary, err := f.service.Seed(context.Background(), uuid.NewString(), SeedRequest{
		ProductIDs: idsOf(bad, good, also),
		PlantIDs:   []string{f.plants[0].ID.String()},
	})
	require.NoError(t, err)

	// One failed insert must not drag the rows after it, or the audit entry,
	// down with it.
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, f.store.assemblies, 2)
	require.Len(t, f.store.audits, 1)
	assert.Equal(t, model.ActionSeedAssemblies, f.store.audits[0].Action)
}

func TestSeedRejectsUnknownIDs(t *testing.T) {
	f := newSeedFixture(t, 1)
	fg := f.addProduct("FG-001", model.GroupFinishedGood)

	_, err := f.service.Seed(context.Background(), uuid.NewString(), SeedRequest{
		ProductIDs: []string{fg.ID.String(), uuid.NewString()},
		PlantIDs:   []string{f.plants[0].ID.String()},
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.service.Seed(context.Background(), uuid.NewString(), SeedRequest{
		ProductIDs: []string{fg.ID.String()},
		PlantIDs:   []string{uuid.NewString()},
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestBackfillClassification(t *testing.T) {
	f := newSeedFixture(t, 1)
	fg := f.addProduct("FG-001", model.GroupFinishedGood)
	rm := f.addProduct("RM-001", model.GroupRawMaterial)

	// Legacy rows with no classification.
	f.store.addAssembly(&model.Assembly{ProductID: fg.ID, PlantID: f.plants[0].ID, Code: "FG-001", Active: true})
	f.store.addAssembly(&model.Assembly{ProductID: rm.ID, PlantID: f.plants[0].ID, Code: "RM-001", Active: true})

	summary, err := f.service.BackfillClassification(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Updated)

	for _, a := range f.store.assemblies {
		require.NotNil(t, a.IsFinishedGood)
		require.NotNil(t, a.ProductTypeCode)
	}

	// Second run touches nothing.
	again, err := f.service.BackfillClassification(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Updated)
}
