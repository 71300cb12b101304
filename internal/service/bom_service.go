package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"
	"bomtrack/internal/repository"
	ws "bomtrack/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type CreateBOMRequest struct {
	AssemblyID    string `json:"assembly_id" binding:"required"`
	EffectiveFrom string `json:"effective_from"` // YYYY-MM-DD, empty = unbounded
	EffectiveTo   string `json:"effective_to"`   // YYYY-MM-DD, empty = unbounded
	ScrapPercent  string `json:"scrap_percent"`
	OverheadCost  string `json:"overhead_cost"`
	Notes         string `json:"notes"`
}

type AddLineRequest struct {
	ComponentID string `json:"component_id" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
}

type ApproveBOMRequest struct {
	// Optional override; when empty the cost engine computes the roll-up.
	TotalCost string `json:"total_cost"`
	// Optional caller-supplied snapshot payload (JSON). When empty a
	// fixed-shape snapshot of the identifying fields is frozen instead.
	Snapshot json.RawMessage `json:"snapshot"`
}

type BOMLineResponse struct {
	ID                   string  `json:"id"`
	ComponentID          string  `json:"component_id"`
	ComponentCode        string  `json:"component_code"`
	Quantity             string  `json:"quantity"`
	UnitCostSnapshot     *string `json:"unit_cost_snapshot,omitempty"`
	ExtendedCostSnapshot *string `json:"extended_cost_snapshot,omitempty"`
}

type BOMResponse struct {
	ID                string            `json:"id"`
	AssemblyID        string            `json:"assembly_id"`
	AssemblyCode      string            `json:"assembly_code,omitempty"`
	Version           int               `json:"version"`
	WorkflowState     string            `json:"workflow_state"`
	EffectiveFrom     *string           `json:"effective_from"`
	EffectiveTo       *string           `json:"effective_to"`
	ScrapPercent      string            `json:"scrap_percent"`
	OverheadCost      string            `json:"overhead_cost"`
	Notes             string            `json:"notes,omitempty"`
	ApprovedBy        *string           `json:"approved_by,omitempty"`
	ApprovedAt        *string           `json:"approved_at,omitempty"`
	TotalCostSnapshot *string           `json:"total_cost_snapshot,omitempty"`
	ImmutableSnapshot json.RawMessage   `json:"immutable_snapshot,omitempty"`
	Lines             []BOMLineResponse `json:"lines,omitempty"`
	CreatedAt         string            `json:"created_at"`
}

// --- Interface ---

type BOMService interface {
	CreateBOM(ctx context.Context, actorID string, req CreateBOMRequest) (BOMResponse, error)
	AddLine(ctx context.Context, actorID string, bomID string, req AddLineRequest) (BOMResponse, error)
	RemoveLine(ctx context.Context, actorID string, bomID string, lineID string) error
	Approve(ctx context.Context, actorID string, bomID string, req ApproveBOMRequest) (BOMResponse, error)
	Activate(ctx context.Context, actorID string, bomID string) (BOMResponse, error)
	Duplicate(ctx context.Context, actorID string, bomID string) (BOMResponse, error)
	GetBOM(ctx context.Context, bomID string) (BOMResponse, error)
	ListByAssembly(ctx context.Context, assemblyID string) ([]BOMResponse, error)
}

type bomService struct {
	assemblyRepo repository.AssemblyRepository
	bomRepo      repository.BOMRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	costEngine   *CostEngine
	hub          *ws.Hub // optional; nil disables event broadcast
}

func NewBOMService(
	assemblyRepo repository.AssemblyRepository,
	bomRepo repository.BOMRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	costEngine *CostEngine,
	hub *ws.Hub,
) BOMService {
	return &bomService{
		assemblyRepo: assemblyRepo,
		bomRepo:      bomRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		costEngine:   costEngine,
		hub:          hub,
	}
}

// --- Implementation ---

// CreateBOM allocates the next version for the assembly and persists the
// header in DRAFT. The version is computed only while the assembly row lock
// is held, and the insert happens inside the same transaction, so concurrent
// creators always receive distinct sequential versions.
func (s *bomService) CreateBOM(ctx context.Context, actorID string, req CreateBOMRequest) (BOMResponse, error) {
	assemblyID, err := uuid.Parse(req.AssemblyID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("assembly_id", "invalid assembly id: %v", err)
	}

	from, to, err := parseEffectiveRange(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return BOMResponse{}, err
	}

	scrap, err := parseDecimalField("scrap_percent", req.ScrapPercent)
	if err != nil {
		return BOMResponse{}, err
	}
	overhead, err := parseDecimalField("overhead_cost", req.OverheadCost)
	if err != nil {
		return BOMResponse{}, err
	}

	assembly, err := s.assemblyRepo.FindByID(ctx, assemblyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BOMResponse{}, apperror.NotFound("assembly")
		}
		return BOMResponse{}, fmt.Errorf("failed to load assembly: %w", err)
	}
	if !assembly.Finished() {
		return BOMResponse{}, apperror.Validation("assembly_id", "assembly %s is not a finished good", assembly.Code)
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return BOMResponse{}, err
	}
	var bom model.BOM

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Exclusive lock on the assembly row serializes concurrent creators
		// for the whole read-compute-insert sequence.
		locked, lockErr := s.assemblyRepo.FindByIDForUpdate(txCtx, assemblyID)
		if lockErr != nil {
			return fmt.Errorf("failed to lock assembly: %w", lockErr)
		}

		max, maxErr := s.bomRepo.MaxVersion(txCtx, locked.ID)
		if maxErr != nil {
			return fmt.Errorf("failed to read max version: %w", maxErr)
		}

		bom = model.BOM{
			AssemblyID:    locked.ID,
			Version:       max + 1,
			EffectiveFrom: from,
			EffectiveTo:   to,
			WorkflowState: model.StateDraft,
			ScrapPercent:  scrap,
			OverheadCost:  overhead,
			Notes:         req.Notes,
			CreatedBy:     actor,
		}
		if createErr := s.bomRepo.Create(txCtx, &bom); createErr != nil {
			return apperror.FromConstraint(createErr, "concurrent BOM creation for assembly "+assembly.Code)
		}

		return s.logAudit(txCtx, actor, model.ActionCreateBOM, bom.ID.String(), assembly.Code, map[string]interface{}{
			"assembly_id": assembly.ID.String(),
			"version":     bom.Version,
		})
	})
	if err != nil {
		return BOMResponse{}, err
	}

	bom.Assembly = assembly
	return toBOMResponse(&bom), nil
}

// AddLine attaches a component to a DRAFT BOM after eligibility checks:
// the component must be active, belong to the BOM's plant, not itself be a
// finished good, and not already appear on this version.
func (s *bomService) AddLine(ctx context.Context, actorID string, bomID string, req AddLineRequest) (BOMResponse, error) {
	id, err := uuid.Parse(bomID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("bom_id", "invalid bom id: %v", err)
	}
	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("component_id", "invalid component id: %v", err)
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return BOMResponse{}, apperror.Validation("quantity", "invalid quantity: %v", err)
	}
	if !qty.IsPositive() {
		return BOMResponse{}, apperror.Validation("quantity", "quantity must be positive")
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return BOMResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bom, loadErr := s.bomRepo.FindByIDWithLines(txCtx, id)
		if loadErr != nil {
			if errors.Is(loadErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("BOM")
			}
			return fmt.Errorf("failed to load BOM: %w", loadErr)
		}
		if bom.WorkflowState != model.StateDraft {
			return apperror.Validation("workflow_state", "lines can only be changed while the BOM is DRAFT (current: %s)", bom.WorkflowState)
		}

		component, compErr := s.assemblyRepo.FindByID(txCtx, componentID)
		if compErr != nil {
			if errors.Is(compErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("component")
			}
			return fmt.Errorf("failed to load component: %w", compErr)
		}

		if validErr := validateComponent(bom, component); validErr != nil {
			return validErr
		}
		for i := range bom.Lines {
			if bom.Lines[i].ComponentID == componentID {
				return apperror.Validation("component_id", "component %s already appears on BOM version %d", component.Code, bom.Version)
			}
		}

		line := model.BOMLine{
			BOMID:       bom.ID,
			ComponentID: componentID,
			Quantity:    qty,
		}
		if createErr := s.bomRepo.CreateLine(txCtx, &line); createErr != nil {
			return apperror.FromConstraint(createErr, "duplicate component line for "+component.Code)
		}

		return s.logAudit(txCtx, actor, model.ActionAddBOMLine, bom.ID.String(), component.Code, map[string]interface{}{
			"component_id": componentID.String(),
			"quantity":     qty.String(),
		})
	})
	if err != nil {
		return BOMResponse{}, err
	}

	return s.GetBOM(ctx, bomID)
}

func (s *bomService) RemoveLine(ctx context.Context, actorID string, bomID string, lineID string) error {
	id, err := uuid.Parse(bomID)
	if err != nil {
		return apperror.Validation("bom_id", "invalid bom id: %v", err)
	}
	lid, err := uuid.Parse(lineID)
	if err != nil {
		return apperror.Validation("line_id", "invalid line id: %v", err)
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bom, loadErr := s.bomRepo.FindByID(txCtx, id)
		if loadErr != nil {
			if errors.Is(loadErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("BOM")
			}
			return fmt.Errorf("failed to load BOM: %w", loadErr)
		}
		if bom.WorkflowState != model.StateDraft {
			return apperror.Validation("workflow_state", "lines can only be changed while the BOM is DRAFT (current: %s)", bom.WorkflowState)
		}

		line, lineErr := s.bomRepo.FindLine(txCtx, lid)
		if lineErr != nil {
			if errors.Is(lineErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("BOM line")
			}
			return fmt.Errorf("failed to load BOM line: %w", lineErr)
		}
		if line.BOMID != bom.ID {
			return apperror.Validation("line_id", "line does not belong to this BOM")
		}

		if delErr := s.bomRepo.DeleteLine(txCtx, lid); delErr != nil {
			return fmt.Errorf("failed to delete BOM line: %w", delErr)
		}

		return s.logAudit(txCtx, actor, model.ActionRemoveBOMLine, bom.ID.String(), "", map[string]interface{}{
			"line_id": lid.String(),
		})
	})
}

// Approve transitions DRAFT -> APPROVED. Repeat calls on an APPROVED BOM are
// idempotent: snapshots may be recomputed but approved_at and the workflow
// state never move backwards. The governing-overlap rule is validated inside
// the same transaction as the state change; the storage exclusion constraint
// backstops concurrent approvals.
func (s *bomService) Approve(ctx context.Context, actorID string, bomID string, req ApproveBOMRequest) (BOMResponse, error) {
	id, err := uuid.Parse(bomID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("bom_id", "invalid bom id: %v", err)
	}

	var totalOverride *decimal.Decimal
	if req.TotalCost != "" {
		parsed, parseErr := decimal.NewFromString(req.TotalCost)
		if parseErr != nil {
			return BOMResponse{}, apperror.Validation("total_cost", "invalid total cost: %v", parseErr)
		}
		totalOverride = &parsed
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return BOMResponse{}, err
	}
	var result BOMResponse

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bom, loadErr := s.bomRepo.FindByIDWithLines(txCtx, id)
		if loadErr != nil {
			if errors.Is(loadErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("BOM")
			}
			return fmt.Errorf("failed to load BOM: %w", loadErr)
		}

		switch bom.WorkflowState {
		case model.StateDraft, model.StateApproved:
			// DRAFT is the legal entry; APPROVED allows idempotent re-approval.
		default:
			return apperror.Validation("workflow_state", "cannot approve a BOM in state %s", bom.WorkflowState)
		}

		if bom.EffectiveFrom != nil && bom.EffectiveTo != nil && bom.EffectiveFrom.After(*bom.EffectiveTo) {
			return apperror.Validation("effective_to", "effective_to must be on or after effective_from")
		}

		if overlapErr := s.checkOverlap(txCtx, bom); overlapErr != nil {
			return overlapErr
		}

		// Freeze the total cost: explicit override wins, otherwise roll up.
		var total decimal.Decimal
		if totalOverride != nil {
			total = *totalOverride
		} else {
			computed, costErr := s.costEngine.ComputeTotalCost(bom)
			if costErr != nil {
				return costErr
			}
			total = computed
		}

		// Per-line audit snapshots.
		for i := range bom.Lines {
			line := &bom.Lines[i]
			unit, extended, lineErr := s.costEngine.LineCosts(line)
			if lineErr != nil {
				return lineErr
			}
			line.UnitCostSnapshot = &unit
			line.ExtendedCostSnapshot = &extended
			if saveErr := s.bomRepo.UpdateLine(txCtx, line); saveErr != nil {
				return fmt.Errorf("failed to freeze line snapshot: %w", saveErr)
			}
		}

		snapshot, snapErr := buildSnapshot(bom, req.Snapshot)
		if snapErr != nil {
			return snapErr
		}

		now := time.Now()
		// Approval stamps are first-writer-wins: a later re-approval or
		// activation by a different actor never rewrites who approved it.
		if bom.ApprovedBy == nil {
			bom.ApprovedBy = actor
		}
		if bom.ApprovedAt == nil {
			bom.ApprovedAt = &now
		}
		bom.TotalCostSnapshot = &total
		bom.ImmutableSnapshot = snapshot
		bom.WorkflowState = model.StateApproved

		if saveErr := s.bomRepo.Update(txCtx, bom); saveErr != nil {
			return apperror.FromConstraint(saveErr, "concurrent approval for assembly "+bom.AssemblyID.String())
		}

		if auditErr := s.logAudit(txCtx, actor, model.ActionApproveBOM, bom.ID.String(), assemblyCode(bom), map[string]interface{}{
			"version":    bom.Version,
			"total_cost": total.StringFixed(4),
		}); auditErr != nil {
			return auditErr
		}

		result = toBOMResponse(bom)
		return nil
	})
	if err != nil {
		return BOMResponse{}, err
	}

	s.broadcast("bom.approved", result.ID, result.AssemblyID)
	return result, nil
}

// Activate promotes an APPROVED BOM to ACTIVE, archiving any other ACTIVE
// BOM of the same assembly in the same transaction. No commit window exists
// in which two BOMs of one assembly are ACTIVE; the partial unique index
// enforces the same rule underneath.
func (s *bomService) Activate(ctx context.Context, actorID string, bomID string) (BOMResponse, error) {
	id, err := uuid.Parse(bomID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("bom_id", "invalid bom id: %v", err)
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return BOMResponse{}, err
	}
	var result BOMResponse

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bom, loadErr := s.bomRepo.FindByIDWithLines(txCtx, id)
		if loadErr != nil {
			if errors.Is(loadErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("BOM")
			}
			return fmt.Errorf("failed to load BOM: %w", loadErr)
		}

		switch bom.WorkflowState {
		case model.StateApproved:
			// The only legal entry. Approval is required first so every
			// ACTIVE BOM carries frozen snapshots.
		case model.StateActive:
			result = toBOMResponse(bom)
			return nil // already active; nothing to do
		default:
			return apperror.Validation("workflow_state", "cannot activate a BOM in state %s; approve it first", bom.WorkflowState)
		}

		if archiveErr := s.bomRepo.ArchiveActive(txCtx, bom.AssemblyID, bom.ID); archiveErr != nil {
			return fmt.Errorf("failed to archive prior active BOM: %w", archiveErr)
		}

		now := time.Now()
		// Approval stamps are first-writer-wins: a later re-approval or
		// activation by a different actor never rewrites who approved it.
		if bom.ApprovedBy == nil {
			bom.ApprovedBy = actor
		}
		if bom.ApprovedAt == nil {
			bom.ApprovedAt = &now
		}
		bom.WorkflowState = model.StateActive

		if saveErr := s.bomRepo.Update(txCtx, bom); saveErr != nil {
			return apperror.FromConstraint(saveErr, "concurrent activation for assembly "+bom.AssemblyID.String())
		}

		if auditErr := s.logAudit(txCtx, actor, model.ActionActivateBOM, bom.ID.String(), assemblyCode(bom), map[string]interface{}{
			"version": bom.Version,
		}); auditErr != nil {
			return auditErr
		}

		result = toBOMResponse(bom)
		return nil
	})
	if err != nil {
		return BOMResponse{}, err
	}

	s.broadcast("bom.activated", result.ID, result.AssemblyID)
	return result, nil
}

// Duplicate copies the header fields and lines of an existing BOM into a new
// DRAFT with a freshly allocated version. Workflow state, approval stamps and
// snapshots are never copied.
func (s *bomService) Duplicate(ctx context.Context, actorID string, bomID string) (BOMResponse, error) {
	id, err := uuid.Parse(bomID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("bom_id", "invalid bom id: %v", err)
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return BOMResponse{}, err
	}
	var copyBOM model.BOM

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		original, loadErr := s.bomRepo.FindByIDWithLines(txCtx, id)
		if loadErr != nil {
			if errors.Is(loadErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("BOM")
			}
			return fmt.Errorf("failed to load BOM: %w", loadErr)
		}

		// Same lock discipline as CreateBOM.
		locked, lockErr := s.assemblyRepo.FindByIDForUpdate(txCtx, original.AssemblyID)
		if lockErr != nil {
			return fmt.Errorf("failed to lock assembly: %w", lockErr)
		}
		max, maxErr := s.bomRepo.MaxVersion(txCtx, locked.ID)
		if maxErr != nil {
			return fmt.Errorf("failed to read max version: %w", maxErr)
		}

		copyBOM = model.BOM{
			AssemblyID:    original.AssemblyID,
			Version:       max + 1,
			EffectiveFrom: original.EffectiveFrom,
			EffectiveTo:   original.EffectiveTo,
			WorkflowState: model.StateDraft,
			ScrapPercent:  original.ScrapPercent,
			OverheadCost:  original.OverheadCost,
			Notes:         fmt.Sprintf("Duplicated from v%d: %s", original.Version, original.Notes),
			CreatedBy:     actor,
		}
		if createErr := s.bomRepo.Create(txCtx, &copyBOM); createErr != nil {
			return apperror.FromConstraint(createErr, "concurrent BOM creation for assembly "+original.AssemblyID.String())
		}

		for i := range original.Lines {
			line := model.BOMLine{
				BOMID:       copyBOM.ID,
				ComponentID: original.Lines[i].ComponentID,
				Quantity:    original.Lines[i].Quantity,
			}
			if lineErr := s.bomRepo.CreateLine(txCtx, &line); lineErr != nil {
				return fmt.Errorf("failed to copy BOM line: %w", lineErr)
			}
		}

		return s.logAudit(txCtx, actor, model.ActionDuplicateBOM, copyBOM.ID.String(), assemblyCode(original), map[string]interface{}{
			"source_bom_id":  original.ID.String(),
			"source_version": original.Version,
			"new_version":    copyBOM.Version,
		})
	})
	if err != nil {
		return BOMResponse{}, err
	}

	return s.GetBOM(ctx, copyBOM.ID.String())
}

func (s *bomService) GetBOM(ctx context.Context, bomID string) (BOMResponse, error) {
	id, err := uuid.Parse(bomID)
	if err != nil {
		return BOMResponse{}, apperror.Validation("bom_id", "invalid bom id: %v", err)
	}
	bom, err := s.bomRepo.FindByIDWithLines(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BOMResponse{}, apperror.NotFound("BOM")
		}
		return BOMResponse{}, fmt.Errorf("failed to load BOM: %w", err)
	}
	return toBOMResponse(bom), nil
}

func (s *bomService) ListByAssembly(ctx context.Context, assemblyID string) ([]BOMResponse, error) {
	id, err := uuid.Parse(assemblyID)
	if err != nil {
		return nil, apperror.Validation("assembly_id", "invalid assembly id: %v", err)
	}
	boms, err := s.bomRepo.ListByAssembly(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list BOMs: %w", err)
	}
	res := make([]BOMResponse, 0, len(boms))
	for i := range boms {
		res = append(res, toBOMResponse(&boms[i]))
	}
	return res, nil
}

// --- Helpers ---

// checkOverlap rejects the transition when any other governing BOM of the
// same assembly intersects this BOM's effective window. The error names the
// conflicting BOM so an operator can resolve it without reading logs.
func (s *bomService) checkOverlap(ctx context.Context, bom *model.BOM) error {
	others, err := s.bomRepo.FindGoverning(ctx, bom.AssemblyID, &bom.ID)
	if err != nil {
		return fmt.Errorf("failed to load governing BOMs: %w", err)
	}
	for i := range others {
		if others[i].OverlapsRange(bom.EffectiveFrom, bom.EffectiveTo) {
			return apperror.Validation("effective_from",
				"effective date range overlaps another governing BOM (id=%s, version=%d, state=%s)",
				others[i].ID, others[i].Version, others[i].WorkflowState)
		}
	}
	return nil
}

// validateComponent enforces the component eligibility rules shared by
// AddLine and the import-side callers.
func validateComponent(bom *model.BOM, component *model.Assembly) error {
	if !component.Active {
		return apperror.Validation("component_id", "component %s is not active", component.Code)
	}
	if bom.Assembly != nil && component.PlantID != bom.Assembly.PlantID {
		return apperror.Validation("component_id", "component %s belongs to a different plant than the BOM's assembly", component.Code)
	}
	if component.Finished() {
		return apperror.Validation("component_id", "component %s is a finished good and cannot be used as a component", component.Code)
	}
	return nil
}

// buildSnapshot returns the caller-supplied payload when present, otherwise
// a fixed-shape copy of the BOM's identifying fields. The result is an owned
// serialized value; later line edits cannot alter it.
func buildSnapshot(bom *model.BOM, supplied json.RawMessage) (string, error) {
	if len(supplied) > 0 {
		if !json.Valid(supplied) {
			return "", apperror.Validation("snapshot", "snapshot must be valid JSON")
		}
		return string(supplied), nil
	}
	snap := model.BOMSnapshot{
		AssemblyID:    bom.AssemblyID.String(),
		AssemblyCode:  assemblyCode(bom),
		Version:       bom.Version,
		EffectiveFrom: formatDatePtr(bom.EffectiveFrom),
		EffectiveTo:   formatDatePtr(bom.EffectiveTo),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(data), nil
}

func (s *bomService) logAudit(ctx context.Context, actor *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	audit := model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.auditRepo.Log(ctx, &audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *bomService) broadcast(event, bomID, assemblyID string) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"event":       event,
		"bom_id":      bomID,
		"assembly_id": assemblyID,
	})
	s.hub.Broadcast(payload)
}

// parseActor resolves the acting principal for audit stamping. Empty means a
// system actor (nil); anything else must be a valid UUID so attribution is
// never dropped silently.
func parseActor(actorID string) (*uuid.UUID, error) {
	if actorID == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(actorID)
	if err != nil {
		return nil, apperror.Validation("actor_id", "invalid actor id: %v", err)
	}
	return &parsed, nil
}

func parseEffectiveRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return nil, nil, apperror.Validation("effective_from", "invalid date %q, expected YYYY-MM-DD", fromStr)
		}
		from = &parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return nil, nil, apperror.Validation("effective_to", "invalid date %q, expected YYYY-MM-DD", toStr)
		}
		to = &parsed
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, apperror.Validation("effective_to", "effective_to must be on or after effective_from")
	}
	return from, to, nil
}

func parseDecimalField(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, apperror.Validation(field, "invalid decimal %q", value)
	}
	if parsed.IsNegative() {
		return decimal.Zero, apperror.Validation(field, "must not be negative")
	}
	return parsed, nil
}

func assemblyCode(bom *model.BOM) string {
	if bom.Assembly != nil {
		return bom.Assembly.Code
	}
	return ""
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func toBOMResponse(bom *model.BOM) BOMResponse {
	resp := BOMResponse{
		ID:            bom.ID.String(),
		AssemblyID:    bom.AssemblyID.String(),
		AssemblyCode:  assemblyCode(bom),
		Version:       bom.Version,
		WorkflowState: bom.WorkflowState,
		EffectiveFrom: formatDatePtr(bom.EffectiveFrom),
		EffectiveTo:   formatDatePtr(bom.EffectiveTo),
		ScrapPercent:  bom.ScrapPercent.StringFixed(2),
		OverheadCost:  bom.OverheadCost.StringFixed(4),
		Notes:         bom.Notes,
		CreatedAt:     bom.CreatedAt.Format(time.RFC3339),
	}
	if bom.ApprovedBy != nil {
		s := bom.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if bom.ApprovedAt != nil {
		s := bom.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if bom.TotalCostSnapshot != nil {
		s := bom.TotalCostSnapshot.StringFixed(4)
		resp.TotalCostSnapshot = &s
	}
	if bom.ImmutableSnapshot != "" {
		resp.ImmutableSnapshot = json.RawMessage(bom.ImmutableSnapshot)
	}
	for i := range bom.Lines {
		line := &bom.Lines[i]
		lr := BOMLineResponse{
			ID:          line.ID.String(),
			ComponentID: line.ComponentID.String(),
			Quantity:    line.Quantity.String(),
		}
		if line.Component != nil {
			lr.ComponentCode = line.Component.Code
		}
		if line.UnitCostSnapshot != nil {
			s := line.UnitCostSnapshot.StringFixed(4)
			lr.UnitCostSnapshot = &s
		}
		if line.ExtendedCostSnapshot != nil {
			s := line.ExtendedCostSnapshot.StringFixed(4)
			lr.ExtendedCostSnapshot = &s
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}
