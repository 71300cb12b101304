package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dt(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func boolPtr(b bool) *bool { return &b }

type bomFixture struct {
	store   *memStore
	service BOMService
	plant   *model.Plant
	fg      *model.Assembly
}

func newBOMFixture(t *testing.T) *bomFixture {
	t.Helper()
	store := newMemStore()
	plant := store.addPlant(&model.Plant{Code: "PL1", Name: "Plant One", Active: true})
	fgProduct := store.addProduct(&model.Product{
		Code: "FG-001", Name: "Finished Shirt", ProductGroup: model.GroupFinishedGood,
	})
	fg := store.addAssembly(&model.Assembly{
		ProductID:      fgProduct.ID,
		PlantID:        plant.ID,
		Code:           "FG-001",
		Name:           "Finished Shirt",
		Active:         true,
		IsFinishedGood: boolPtr(true),
	})

	svc := NewBOMService(
		&memAssemblyRepo{store: store},
		&memBOMRepo{store: store},
		&memAuditRepo{store: store},
		&memTxManager{store: store},
		NewCostEngine(),
		nil,
	)
	return &bomFixture{store: store, service: svc, plant: plant, fg: fg}
}

// addComponent registers a non finished good assembly in the fixture plant
// with the given plant-level cost override.
func (f *bomFixture) addComponent(code, cost string) *model.Assembly {
	product := f.store.addProduct(&model.Product{
		Code: code, Name: code, ProductGroup: model.GroupRawMaterial,
	})
	return f.store.addAssembly(&model.Assembly{
		ProductID:      product.ID,
		PlantID:        f.plant.ID,
		Code:           code,
		Name:           code,
		Active:         true,
		StandardCost:   dec(cost),
		IsFinishedGood: boolPtr(false),
	})
}

func (f *bomFixture) createBOM(t *testing.T, from, to string) BOMResponse {
	t.Helper()
	resp, err := f.service.CreateBOM(context.Background(), uuid.NewString(), CreateBOMRequest{
		AssemblyID:    f.fg.ID.String(),
		EffectiveFrom: from,
		EffectiveTo:   to,
	})
	require.NoError(t, err)
	return resp
}

func TestCreateBOMAllocatesSequentialVersions(t *testing.T) {
	f := newBOMFixture(t)

	for want := 1; want <= 3; want++ {
		resp := f.createBOM(t, "", "")
		assert.Equal(t, want, resp.Version)
		assert.Equal(t, model.StateDraft, resp.WorkflowState)
	}
}

func TestCreateBOMConcurrentAllocation(t *testing.T) {
	f := newBOMFixture(t)

	const n = 8
	versions := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.service.CreateBOM(context.Background(), uuid.NewString(), CreateBOMRequest{
				AssemblyID: f.fg.ID.String(),
			})
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
			versions[i] = resp.Version
		}(i)
	}
	wg.Wait()

	sort.Ints(versions)
	for i := 0; i < n; i++ {
		assert.Equal(t, i+1, versions[i], "versions must be dense with no duplicates: %v", versions)
	}
}

func TestCreateBOMRejectsNonFinishedGood(t *testing.T) {
	f := newBOMFixture(t)
	component := f.addComponent("RM-001", "1.00")

	_, err := f.service.CreateBOM(context.Background(), uuid.NewString(), CreateBOMRequest{
		AssemblyID: component.ID.String(),
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestCreateBOMRejectsInvertedRange(t *testing.T) {
	f := newBOMFixture(t)

	_, err := f.service.CreateBOM(context.Background(), uuid.NewString(), CreateBOMRequest{
		AssemblyID:    f.fg.ID.String(),
		EffectiveFrom: "2025-06-30",
		EffectiveTo:   "2025-01-01",
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestAddLineRules(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")
	fabric := f.addComponent("RM-FABRIC", "10.00")

	_, err := f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
		ComponentID: fabric.ID.String(),
		Quantity:    "2",
	})
	require.NoError(t, err)

	t.Run("duplicate component rejected", func(t *testing.T) {
		_, err := f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
			ComponentID: fabric.ID.String(),
			Quantity:    "1",
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		other := f.addComponent("RM-ZERO", "1.00")
		_, err := f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
			ComponentID: other.ID.String(),
			Quantity:    "0",
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("finished good component rejected", func(t *testing.T) {
		_, err := f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
			ComponentID: f.fg.ID.String(),
			Quantity:    "1",
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("cross-plant component rejected", func(t *testing.T) {
		otherPlant := f.store.addPlant(&model.Plant{Code: "PL2", Name: "Plant Two", Active: true})
		p := f.store.addProduct(&model.Product{Code: "RM-X", Name: "RM-X", ProductGroup: model.GroupRawMaterial})
		foreign := f.store.addAssembly(&model.Assembly{
			ProductID: p.ID, PlantID: otherPlant.ID, Code: "RM-X", Name: "RM-X",
			Active: true, IsFinishedGood: boolPtr(false),
		})
		_, err := f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
			ComponentID: foreign.ID.String(),
			Quantity:    "1",
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("inactive component rejected", func(t *testing.T) {
		inactive := f.addComponent("RM-OLD", "1.00")
		inactive.Active = false
		_, err := f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
			ComponentID: inactive.ID.String(),
			Quantity:    "1",
		})
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestAddLineRequiresDraft(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")
	fabric := f.addComponent("RM-FABRIC", "10.00")

	_, err := f.service.Approve(context.Background(), uuid.NewString(), bom.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	_, err = f.service.AddLine(context.Background(), uuid.NewString(), bom.ID, AddLineRequest{
		ComponentID: fabric.ID.String(),
		Quantity:    "1",
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestApproveComputesAndFreezesCost(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")
	fabric := f.addComponent("RM-FABRIC", "10.00")
	thread := f.addComponent("RM-THREAD", "5.00")

	ctx := context.Background()
	actor := uuid.NewString()
	_, err := f.service.AddLine(ctx, actor, bom.ID, AddLineRequest{ComponentID: fabric.ID.String(), Quantity: "2"})
	require.NoError(t, err)
	_, err = f.service.AddLine(ctx, actor, bom.ID, AddLineRequest{ComponentID: thread.ID.String(), Quantity: "3"})
	require.NoError(t, err)

	approved, err := f.service.Approve(ctx, actor, bom.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	assert.Equal(t, model.StateApproved, approved.WorkflowState)
	require.NotNil(t, approved.TotalCostSnapshot)
	assert.Equal(t, "35.0000", *approved.TotalCostSnapshot) // 2x10 + 3x5
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, actor, *approved.ApprovedBy)

	var snap model.BOMSnapshot
	require.NoError(t, json.Unmarshal(approved.ImmutableSnapshot, &snap))
	assert.Equal(t, f.fg.ID.String(), snap.AssemblyID)
	assert.Equal(t, 1, snap.Version)

	for _, line := range approved.Lines {
		require.NotNil(t, line.UnitCostSnapshot)
		require.NotNil(t, line.ExtendedCostSnapshot)
	}

	// Later cost changes must not alter the frozen snapshot.
	fabric.StandardCost = dec("99.99")
	reloaded, err := f.service.GetBOM(ctx, bom.ID)
	require.NoError(t, err)
	assert.Equal(t, "35.0000", *reloaded.TotalCostSnapshot)
}

func TestApproveIdempotent(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")

	ctx := context.Background()
	firstActor := uuid.NewString()
	first, err := f.service.Approve(ctx, firstActor, bom.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	second, err := f.service.Approve(ctx, uuid.NewString(), bom.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	assert.Equal(t, model.StateApproved, second.WorkflowState)
	// Approval stamps are first-writer-wins: a repeat approval or a later
	// activation by someone else keeps the original approver and timestamp.
	assert.Equal(t, *first.ApprovedAt, *second.ApprovedAt)
	require.NotNil(t, second.ApprovedBy)
	assert.Equal(t, firstActor, *second.ApprovedBy)

	activated, err := f.service.Activate(ctx, uuid.NewString(), bom.ID)
	require.NoError(t, err)
	require.NotNil(t, activated.ApprovedBy)
	assert.Equal(t, firstActor, *activated.ApprovedBy)
}

func TestRejectsMalformedActorID(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")

	_, err := f.service.Approve(context.Background(), "not-a-uuid", bom.ID, ApproveBOMRequest{})
	assert.True(t, apperror.IsValidation(err))

	// The empty actor is still accepted as the system actor.
	_, err = f.service.Approve(context.Background(), "", bom.ID, ApproveBOMRequest{})
	assert.NoError(t, err)
}

func TestApproveRejectedFromActive(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")

	ctx := context.Background()
	_, err := f.service.Approve(ctx, uuid.NewString(), bom.ID, ApproveBOMRequest{})
	require.NoError(t, err)
	_, err = f.service.Activate(ctx, uuid.NewString(), bom.ID)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, uuid.NewString(), bom.ID, ApproveBOMRequest{})
	assert.True(t, apperror.IsValidation(err), "ACTIVE must never revert to APPROVED")
}

func TestApproveRejectsGoverningOverlap(t *testing.T) {
	f := newBOMFixture(t)
	ctx := context.Background()

	first := f.createBOM(t, "2025-01-01", "2025-06-30")
	_, err := f.service.Approve(ctx, uuid.NewString(), first.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	overlapping := f.createBOM(t, "2025-06-30", "2025-12-31") // shares one day
	_, err = f.service.Approve(ctx, uuid.NewString(), overlapping.ID, ApproveBOMRequest{})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "overlaps")
	assert.Contains(t, err.Error(), fmt.Sprintf("version=%d", first.Version))

	disjoint := f.createBOM(t, "2025-07-01", "")
	_, err = f.service.Approve(ctx, uuid.NewString(), disjoint.ID, ApproveBOMRequest{})
	assert.NoError(t, err)
}

func TestApproveRejectsOpenEndedOverlap(t *testing.T) {
	f := newBOMFixture(t)
	ctx := context.Background()

	open := f.createBOM(t, "", "") // unbounded both directions
	_, err := f.service.Approve(ctx, uuid.NewString(), open.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	bounded := f.createBOM(t, "2025-01-01", "2025-01-31")
	_, err = f.service.Approve(ctx, uuid.NewString(), bounded.ID, ApproveBOMRequest{})
	assert.True(t, apperror.IsValidation(err), "an unbounded governing BOM overlaps everything")
}

func TestActivateArchivesPriorActive(t *testing.T) {
	f := newBOMFixture(t)
	ctx := context.Background()

	v1 := f.createBOM(t, "2025-01-01", "2025-06-30")
	_, err := f.service.Approve(ctx, uuid.NewString(), v1.ID, ApproveBOMRequest{})
	require.NoError(t, err)
	_, err = f.service.Activate(ctx, uuid.NewString(), v1.ID)
	require.NoError(t, err)

	v2 := f.createBOM(t, "2025-07-01", "2025-12-31")
	_, err = f.service.Approve(ctx, uuid.NewString(), v2.ID, ApproveBOMRequest{})
	require.NoError(t, err)
	activated, err := f.service.Activate(ctx, uuid.NewString(), v2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, activated.WorkflowState)

	prior, err := f.service.GetBOM(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateArchived, prior.WorkflowState)

	// At most one ACTIVE BOM per assembly.
	all, err := f.service.ListByAssembly(ctx, f.fg.ID.String())
	require.NoError(t, err)
	active := 0
	for _, b := range all {
		if b.WorkflowState == model.StateActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestActivateIsNoOpWhenAlreadyActive(t *testing.T) {
	f := newBOMFixture(t)
	ctx := context.Background()

	bom := f.createBOM(t, "", "")
	_, err := f.service.Approve(ctx, uuid.NewString(), bom.ID, ApproveBOMRequest{})
	require.NoError(t, err)
	first, err := f.service.Activate(ctx, uuid.NewString(), bom.ID)
	require.NoError(t, err)

	again, err := f.service.Activate(ctx, uuid.NewString(), bom.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, again.WorkflowState)
	assert.Equal(t, *first.ApprovedAt, *again.ApprovedAt)
}

func TestActivateRequiresApproval(t *testing.T) {
	f := newBOMFixture(t)
	bom := f.createBOM(t, "", "")

	_, err := f.service.Activate(context.Background(), uuid.NewString(), bom.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "approve it first")
}

func TestDuplicateCopiesLinesNotWorkflow(t *testing.T) {
	f := newBOMFixture(t)
	ctx := context.Background()
	actor := uuid.NewString()

	original := f.createBOM(t, "2025-01-01", "2025-06-30")
	fabric := f.addComponent("RM-FABRIC", "10.00")
	_, err := f.service.AddLine(ctx, actor, original.ID, AddLineRequest{ComponentID: fabric.ID.String(), Quantity: "2"})
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, actor, original.ID, ApproveBOMRequest{})
	require.NoError(t, err)

	copied, err := f.service.Duplicate(ctx, actor, original.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StateDraft, copied.WorkflowState)
	assert.Equal(t, original.Version+1, copied.Version)
	assert.Nil(t, copied.ApprovedAt)
	assert.Nil(t, copied.TotalCostSnapshot)
	assert.Empty(t, copied.ImmutableSnapshot)
	assert.Contains(t, copied.Notes, "Duplicated from v1")

	require.Len(t, copied.Lines, 1)
	assert.Equal(t, fabric.ID.String(), copied.Lines[0].ComponentID)
	assert.Equal(t, "2", copied.Lines[0].Quantity)
	assert.Nil(t, copied.Lines[0].UnitCostSnapshot, "line snapshots are not copied")

	// Header effectivity is copied verbatim.
	require.NotNil(t, copied.EffectiveFrom)
	assert.Equal(t, "2025-01-01", *copied.EffectiveFrom)
}

func TestRemoveLine(t *testing.T) {
	f := newBOMFixture(t)
	ctx := context.Background()
	actor := uuid.NewString()

	bom := f.createBOM(t, "", "")
	fabric := f.addComponent("RM-FABRIC", "10.00")
	withLine, err := f.service.AddLine(ctx, actor, bom.ID, AddLineRequest{ComponentID: fabric.ID.String(), Quantity: "2"})
	require.NoError(t, err)
	require.Len(t, withLine.Lines, 1)

	require.NoError(t, f.service.RemoveLine(ctx, actor, bom.ID, withLine.Lines[0].ID))

	reloaded, err := f.service.GetBOM(ctx, bom.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Lines)
}
