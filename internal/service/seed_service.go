package service

import (
	"context"
	"encoding/json"
	"fmt"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"
	"bomtrack/internal/repository"
	ws "bomtrack/internal/websocket"

	"github.com/google/uuid"
)

// --- DTOs ---

type SeedRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required"`
	PlantIDs   []string `json:"plant_ids" binding:"required"`
}

// SeedFailure records one product that could not be seeded into one plant.
type SeedFailure struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// PlantSeedResult summarizes seeding for a single plant. Skipped lists
// products that already had an assembly in the plant; repeated runs of the
// same request converge to created=0.
type PlantSeedResult struct {
	PlantID    string        `json:"plant_id"`
	PlantCode  string        `json:"plant_code"`
	CreatedIDs []string      `json:"created_ids"`
	SkippedIDs []string      `json:"skipped_ids"`
	Failed     []SeedFailure `json:"failed"`
}

type SeedSummary struct {
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
	Plants  []PlantSeedResult `json:"plants"`
}

type BackfillSummary struct {
	Updated int64 `json:"updated"`
}

// --- Interface ---

type SeedService interface {
	Seed(ctx context.Context, actorID string, req SeedRequest) (SeedSummary, error)
	BackfillClassification(ctx context.Context, actorID string) (BackfillSummary, error)
}

type seedService struct {
	productRepo  repository.ProductRepository
	plantRepo    repository.PlantRepository
	assemblyRepo repository.AssemblyRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewSeedService(
	productRepo repository.ProductRepository,
	plantRepo repository.PlantRepository,
	assemblyRepo repository.AssemblyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) SeedService {
	return &seedService{
		productRepo:  productRepo,
		plantRepo:    plantRepo,
		assemblyRepo: assemblyRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

// Seed creates assemblies for every requested product x plant pair that does
// not already exist. Each plant runs in its own transaction, so one plant's
// failure never rolls back another's inserts. Within a plant the batch insert
// is tried first; on failure each row is retried individually so one bad row
// costs only itself.
func (s *seedService) Seed(ctx context.Context, actorID string, req SeedRequest) (SeedSummary, error) {
	productIDs, err := parseUUIDList("product_ids", req.ProductIDs)
	if err != nil {
		return SeedSummary{}, err
	}
	plantIDs, err := parseUUIDList("plant_ids", req.PlantIDs)
	if err != nil {
		return SeedSummary{}, err
	}
	if len(productIDs) == 0 {
		return SeedSummary{}, apperror.Validation("product_ids", "at least one product is required")
	}
	if len(plantIDs) == 0 {
		return SeedSummary{}, apperror.Validation("plant_ids", "at least one plant is required")
	}

	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("failed to load products: %w", err)
	}
	if missing := missingIDs(productIDs, productIDSet(products)); len(missing) > 0 {
		return SeedSummary{}, apperror.Validation("product_ids", "unknown product ids: %v", missing)
	}

	plants, err := s.plantRepo.FindByIDs(ctx, plantIDs)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("failed to load plants: %w", err)
	}
	if missing := missingIDs(plantIDs, plantIDSet(plants)); len(missing) > 0 {
		return SeedSummary{}, apperror.Validation("plant_ids", "unknown plant ids: %v", missing)
	}

	actor, err := parseActor(actorID)
	if err != nil {
		return SeedSummary{}, err
	}
	summary := SeedSummary{}

	for pi := range plants {
		plant := &plants[pi]
		result := PlantSeedResult{
			PlantID:   plant.ID.String(),
			PlantCode: plant.Code,
		}

		txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			existing, exErr := s.assemblyRepo.ExistingProductIDs(txCtx, plant.ID, productIDs)
			if exErr != nil {
				return fmt.Errorf("failed to read existing assemblies: %w", exErr)
			}
			existingSet := make(map[uuid.UUID]bool, len(existing))
			for _, id := range existing {
				existingSet[id] = true
			}

			var toCreate []*model.Assembly
			for i := range products {
				p := &products[i]
				if existingSet[p.ID] {
					result.SkippedIDs = append(result.SkippedIDs, p.ID.String())
					continue
				}
				toCreate = append(toCreate, newAssemblyFromProduct(p, plant.ID, actor))
			}
			if len(toCreate) == 0 {
				return nil
			}

			// The batch insert and each fallback insert run under their own
			// savepoint: a failed INSERT aborts a Postgres transaction, and
			// without the savepoint every later statement in the plant tx
			// (including the audit row) would fail with 25P02.
			batchErr := s.txManager.RunInSavepoint(txCtx, func(spCtx context.Context) error {
				return s.assemblyRepo.CreateBatch(spCtx, toCreate)
			})
			if batchErr != nil {
				// Retry row by row so one bad product does not sink the plant.
				for _, a := range toCreate {
					a.ID = uuid.Nil
					rowErr := s.txManager.RunInSavepoint(txCtx, func(spCtx context.Context) error {
						return s.assemblyRepo.Create(spCtx, a)
					})
					if rowErr != nil {
						result.Failed = append(result.Failed, SeedFailure{
							ProductID: a.ProductID.String(),
							Reason:    apperror.FromConstraint(rowErr, "assembly already exists").Error(),
						})
						continue
					}
					result.CreatedIDs = append(result.CreatedIDs, a.ProductID.String())
				}
			} else {
				for _, a := range toCreate {
					result.CreatedIDs = append(result.CreatedIDs, a.ProductID.String())
				}
			}

			details, _ := json.Marshal(map[string]interface{}{
				"plant_id": plant.ID.String(),
				"created":  len(result.CreatedIDs),
				"skipped":  len(result.SkippedIDs),
				"failed":   len(result.Failed),
			})
			audit := model.AuditLog{
				UserID:     actor,
				Action:     model.ActionSeedAssemblies,
				EntityID:   plant.ID.String(),
				EntityName: plant.Code,
				Details:    string(details),
			}
			if auditErr := s.auditRepo.Log(txCtx, &audit); auditErr != nil {
				return fmt.Errorf("failed to write audit log: %w", auditErr)
			}
			return nil
		})
		if txErr != nil {
			// Whole-plant rollback: skipped rows existed before the tx and
			// survive it, but every would-be insert is gone.
			skipped := make(map[string]bool, len(result.SkippedIDs))
			for _, id := range result.SkippedIDs {
				skipped[id] = true
			}
			result.CreatedIDs = nil
			result.Failed = nil
			for i := range products {
				id := products[i].ID.String()
				if skipped[id] {
					continue
				}
				result.Failed = append(result.Failed, SeedFailure{
					ProductID: id,
					Reason:    txErr.Error(),
				})
			}
		}

		summary.Created += len(result.CreatedIDs)
		summary.Skipped += len(result.SkippedIDs)
		summary.Failed += len(result.Failed)
		summary.Plants = append(summary.Plants, result)
	}

	s.broadcastSeed(summary)
	return summary, nil
}

// BackfillClassification repairs assemblies created before the denormalized
// classification columns existed, copying is_finished_good and
// product_type_code down from the owning product in a single UPDATE.
func (s *seedService) BackfillClassification(ctx context.Context, actorID string) (BackfillSummary, error) {
	actor, err := parseActor(actorID)
	if err != nil {
		return BackfillSummary{}, err
	}
	var updated int64

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, bfErr := s.assemblyRepo.BackfillClassification(txCtx)
		if bfErr != nil {
			return fmt.Errorf("failed to backfill classification: %w", bfErr)
		}
		updated = n

		details, _ := json.Marshal(map[string]interface{}{"updated": n})
		audit := model.AuditLog{
			UserID:  actor,
			Action:  model.ActionBackfillClassification,
			Details: string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return BackfillSummary{}, err
	}
	return BackfillSummary{Updated: updated}, nil
}

// --- Helpers ---

func newAssemblyFromProduct(p *model.Product, plantID uuid.UUID, actor *uuid.UUID) *model.Assembly {
	fg := p.IsFinishedGood()
	typeCode := p.TypeCode()
	return &model.Assembly{
		ProductID:       p.ID,
		PlantID:         plantID,
		Code:            p.Code,
		Name:            p.Name,
		Active:          true,
		IsFinishedGood:  &fg,
		ProductTypeCode: &typeCode,
		CreatedBy:       actor,
	}
}

func (s *seedService) broadcastSeed(summary SeedSummary) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"event":   "seed.completed",
		"created": summary.Created,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	s.hub.Broadcast(payload)
}

func parseUUIDList(field string, raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, apperror.Validation(field, "invalid id %q", r)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func productIDSet(products []model.Product) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(products))
	for i := range products {
		set[products[i].ID] = true
	}
	return set
}

func plantIDSet(plants []model.Plant) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(plants))
	for i := range plants {
		set[plants[i].ID] = true
	}
	return set
}

func missingIDs(requested []uuid.UUID, found map[uuid.UUID]bool) []string {
	var missing []string
	for _, id := range requested {
		if !found[id] {
			missing = append(missing, id.String())
		}
	}
	return missing
}
