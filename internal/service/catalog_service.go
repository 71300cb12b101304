package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"
	"bomtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ProductRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	ProductGroup string `json:"product_group" binding:"required"`
	StyleGroup   string `json:"style_group"`
	Shade        string `json:"shade"`
	Size         string `json:"size"`
	UOM          string `json:"uom"`
	StandardCost string `json:"standard_cost"`
	Active       *bool  `json:"active"`
}

type PlantRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Active  *bool  `json:"active"`
}

type PartyRequest struct {
	PartyCode     string `json:"party_code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email"`
	TaxID         string `json:"tax_id"`
	IsVendor      bool   `json:"is_vendor"`
	IsCustomer    bool   `json:"is_customer"`
	Active        *bool  `json:"active"`
}

type ProductionLineRequest struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Notes string `json:"notes"`
}

type WorkerRequest struct {
	Code             string `json:"code" binding:"required"`
	Name             string `json:"name" binding:"required"`
	ProductionLineID string `json:"production_line_id"`
}

type AssemblyUpdateRequest struct {
	Name         string `json:"name"`
	StandardCost string `json:"standard_cost"`
	Active       *bool  `json:"active"`
}

// --- Interface ---

// CatalogService is the thin master-data layer behind the BOM core: global
// products, plants, vendor/customer parties, and assembly overrides.
type CatalogService interface {
	CreateProduct(ctx context.Context, actorID string, req ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actorID string, id string, req ProductRequest) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)

	CreatePlant(ctx context.Context, actorID string, req PlantRequest) (*model.Plant, error)
	UpdatePlant(ctx context.Context, actorID string, id string, req PlantRequest) (*model.Plant, error)
	ListPlants(ctx context.Context, page, limit int) ([]model.Plant, int64, error)

	CreateProductionLine(ctx context.Context, actorID string, plantID string, req ProductionLineRequest) (*model.ProductionLine, error)
	ListProductionLines(ctx context.Context, plantID string) ([]model.ProductionLine, error)
	CreateWorker(ctx context.Context, actorID string, plantID string, req WorkerRequest) (*model.Worker, error)
	ListWorkers(ctx context.Context, plantID string) ([]model.Worker, error)

	CreateParty(ctx context.Context, actorID string, req PartyRequest) (*model.Party, error)
	UpdateParty(ctx context.Context, actorID string, id string, req PartyRequest) (*model.Party, error)
	ListParties(ctx context.Context, page, limit int, search string) ([]model.Party, int64, error)

	UpdateAssembly(ctx context.Context, actorID string, id string, req AssemblyUpdateRequest) (*model.Assembly, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	plantRepo    repository.PlantRepository
	partyRepo    repository.PartyRepository
	assemblyRepo repository.AssemblyRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	plantRepo repository.PlantRepository,
	partyRepo repository.PartyRepository,
	assemblyRepo repository.AssemblyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		plantRepo:    plantRepo,
		partyRepo:    partyRepo,
		assemblyRepo: assemblyRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Products ---

func validProductGroup(g string) bool {
	switch g {
	case model.GroupFinishedGood, model.GroupRawMaterial, model.GroupWIP,
		model.GroupTrimsExcl, model.GroupTrimsIncl:
		return true
	}
	return false
}

func (s *catalogService) CreateProduct(ctx context.Context, actorID string, req ProductRequest) (*model.Product, error) {
	if !validProductGroup(req.ProductGroup) {
		return nil, apperror.Validation("product_group", "unknown product group %q", req.ProductGroup)
	}
	cost, err := parseDecimalField("standard_cost", req.StandardCost)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Code:         req.Code,
		Name:         req.Name,
		ProductGroup: req.ProductGroup,
		StyleGroup:   req.StyleGroup,
		Shade:        req.Shade,
		Size:         req.Size,
		UOM:          req.UOM,
		StandardCost: cost,
		Active:       true,
	}
	if req.UOM == "" {
		product.UOM = "pcs"
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.productRepo.Create(txCtx, product); createErr != nil {
			return apperror.FromConstraint(createErr, "product code "+req.Code+" already exists")
		}
		return s.logCatalogAudit(txCtx, actorID, model.ActionCreateProduct, product.ID.String(), product.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actorID string, id string, req ProductRequest) (*model.Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid product id: %v", err)
	}
	if !validProductGroup(req.ProductGroup) {
		return nil, apperror.Validation("product_group", "unknown product group %q", req.ProductGroup)
	}
	cost, err := parseDecimalField("standard_cost", req.StandardCost)
	if err != nil {
		return nil, err
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.productRepo.FindByID(txCtx, pid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product")
			}
			return fmt.Errorf("failed to load product: %w", findErr)
		}

		existing.Code = req.Code
		existing.Name = req.Name
		existing.ProductGroup = req.ProductGroup
		existing.StyleGroup = req.StyleGroup
		existing.Shade = req.Shade
		existing.Size = req.Size
		if req.UOM != "" {
			existing.UOM = req.UOM
		}
		existing.StandardCost = cost
		if req.Active != nil {
			existing.Active = *req.Active
		}

		if saveErr := s.productRepo.Update(txCtx, existing); saveErr != nil {
			return apperror.FromConstraint(saveErr, "product code "+req.Code+" already exists")
		}
		product = existing
		return s.logCatalogAudit(txCtx, actorID, model.ActionUpdateProduct, existing.ID.String(), existing.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid product id: %v", err)
	}
	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	return s.productRepo.List(ctx, page, limit, search)
}

// --- Plants ---

func (s *catalogService) CreatePlant(ctx context.Context, actorID string, req PlantRequest) (*model.Plant, error) {
	plant := &model.Plant{
		Code:    req.Code,
		Name:    req.Name,
		Address: req.Address,
		Active:  true,
	}
	if req.Active != nil {
		plant.Active = *req.Active
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.plantRepo.Create(txCtx, plant); createErr != nil {
			return apperror.FromConstraint(createErr, "plant code "+req.Code+" already exists")
		}
		return s.logCatalogAudit(txCtx, actorID, model.ActionCreatePlant, plant.ID.String(), plant.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return plant, nil
}

func (s *catalogService) UpdatePlant(ctx context.Context, actorID string, id string, req PlantRequest) (*model.Plant, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid plant id: %v", err)
	}

	var plant *model.Plant
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.plantRepo.FindByID(txCtx, pid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("plant")
			}
			return fmt.Errorf("failed to load plant: %w", findErr)
		}

		existing.Code = req.Code
		existing.Name = req.Name
		existing.Address = req.Address
		if req.Active != nil {
			existing.Active = *req.Active
		}

		if saveErr := s.plantRepo.Update(txCtx, existing); saveErr != nil {
			return apperror.FromConstraint(saveErr, "plant code "+req.Code+" already exists")
		}
		plant = existing
		return s.logCatalogAudit(txCtx, actorID, model.ActionUpdatePlant, existing.ID.String(), existing.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return plant, nil
}

func (s *catalogService) ListPlants(ctx context.Context, page, limit int) ([]model.Plant, int64, error) {
	return s.plantRepo.List(ctx, page, limit)
}

// --- Production lines & workers ---

func (s *catalogService) loadPlant(ctx context.Context, plantID string) (*model.Plant, error) {
	pid, err := uuid.Parse(plantID)
	if err != nil {
		return nil, apperror.Validation("plant_id", "invalid plant id: %v", err)
	}
	plant, err := s.plantRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("plant")
		}
		return nil, fmt.Errorf("failed to load plant: %w", err)
	}
	return plant, nil
}

func (s *catalogService) CreateProductionLine(ctx context.Context, actorID string, plantID string, req ProductionLineRequest) (*model.ProductionLine, error) {
	plant, err := s.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}

	line := &model.ProductionLine{
		PlantID: plant.ID,
		Code:    req.Code,
		Name:    req.Name,
		Notes:   req.Notes,
		Active:  true,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.plantRepo.CreateLine(txCtx, line); createErr != nil {
			return apperror.FromConstraint(createErr, "line code "+req.Code+" already exists in plant "+plant.Code)
		}
		return s.logCatalogAudit(txCtx, actorID, model.ActionCreateProductionLine, line.ID.String(), line.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *catalogService) ListProductionLines(ctx context.Context, plantID string) ([]model.ProductionLine, error) {
	plant, err := s.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	return s.plantRepo.ListLines(ctx, plant.ID)
}

func (s *catalogService) CreateWorker(ctx context.Context, actorID string, plantID string, req WorkerRequest) (*model.Worker, error) {
	plant, err := s.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}

	worker := &model.Worker{
		PlantID: plant.ID,
		Code:    req.Code,
		Name:    req.Name,
		Active:  true,
	}
	if req.ProductionLineID != "" {
		lid, parseErr := uuid.Parse(req.ProductionLineID)
		if parseErr != nil {
			return nil, apperror.Validation("production_line_id", "invalid production line id: %v", parseErr)
		}
		worker.ProductionLineID = &lid
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.plantRepo.CreateWorker(txCtx, worker); createErr != nil {
			return apperror.FromConstraint(createErr, "worker code "+req.Code+" already exists in plant "+plant.Code)
		}
		return s.logCatalogAudit(txCtx, actorID, model.ActionCreateWorker, worker.ID.String(), worker.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *catalogService) ListWorkers(ctx context.Context, plantID string) ([]model.Worker, error) {
	plant, err := s.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	return s.plantRepo.ListWorkers(ctx, plant.ID)
}

// --- Parties ---

func (s *catalogService) CreateParty(ctx context.Context, actorID string, req PartyRequest) (*model.Party, error) {
	if !req.IsVendor && !req.IsCustomer {
		return nil, apperror.Validation("is_vendor", "a party must be a vendor, a customer, or both")
	}

	party := &model.Party{
		PartyCode:     req.PartyCode,
		Name:          req.Name,
		Address:       req.Address,
		ContactPerson: req.ContactPerson,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		TaxID:         req.TaxID,
		IsVendor:      req.IsVendor,
		IsCustomer:    req.IsCustomer,
		Active:        true,
	}
	if req.Active != nil {
		party.Active = *req.Active
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Case-insensitive pre-check so the caller gets a clean message; the
		// unique index still backstops races.
		exists, exErr := s.partyRepo.ExistsByCode(txCtx, req.PartyCode, nil)
		if exErr != nil {
			return fmt.Errorf("failed to check party code: %w", exErr)
		}
		if exists {
			return apperror.Validation("party_code", "party code %s already exists", req.PartyCode)
		}
		if createErr := s.partyRepo.Create(txCtx, party); createErr != nil {
			return apperror.FromConstraint(createErr, "party code "+req.PartyCode+" already exists")
		}
		return s.logCatalogAudit(txCtx, actorID, model.ActionCreateParty, party.ID.String(), party.PartyCode, req)
	})
	if err != nil {
		return nil, err
	}
	return party, nil
}

func (s *catalogService) UpdateParty(ctx context.Context, actorID string, id string, req PartyRequest) (*model.Party, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid party id: %v", err)
	}
	if !req.IsVendor && !req.IsCustomer {
		return nil, apperror.Validation("is_vendor", "a party must be a vendor, a customer, or both")
	}

	var party *model.Party
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.partyRepo.FindByID(txCtx, pid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("party")
			}
			return fmt.Errorf("failed to load party: %w", findErr)
		}

		exists, exErr := s.partyRepo.ExistsByCode(txCtx, req.PartyCode, &pid)
		if exErr != nil {
			return fmt.Errorf("failed to check party code: %w", exErr)
		}
		if exists {
			return apperror.Validation("party_code", "party code %s already exists", req.PartyCode)
		}

		existing.PartyCode = req.PartyCode
		existing.Name = req.Name
		existing.Address = req.Address
		existing.ContactPerson = req.ContactPerson
		existing.ContactNumber = req.ContactNumber
		existing.Email = req.Email
		existing.TaxID = req.TaxID
		existing.IsVendor = req.IsVendor
		existing.IsCustomer = req.IsCustomer
		if req.Active != nil {
			existing.Active = *req.Active
		}

		if saveErr := s.partyRepo.Update(txCtx, existing); saveErr != nil {
			return apperror.FromConstraint(saveErr, "party code "+req.PartyCode+" already exists")
		}
		party = existing
		return s.logCatalogAudit(txCtx, actorID, model.ActionUpdateParty, existing.ID.String(), existing.PartyCode, req)
	})
	if err != nil {
		return nil, err
	}
	return party, nil
}

func (s *catalogService) ListParties(ctx context.Context, page, limit int, search string) ([]model.Party, int64, error) {
	return s.partyRepo.List(ctx, page, limit, search)
}

// --- Assemblies ---

// UpdateAssembly edits the plant-scoped fields of an assembly: display name,
// cost override, active flag. Product and plant bindings are immutable; a
// wrong pairing is fixed by deactivating and reseeding.
func (s *catalogService) UpdateAssembly(ctx context.Context, actorID string, id string, req AssemblyUpdateRequest) (*model.Assembly, error) {
	aid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid assembly id: %v", err)
	}

	var cost *decimal.Decimal
	if req.StandardCost != "" {
		parsed, costErr := parseDecimalField("standard_cost", req.StandardCost)
		if costErr != nil {
			return nil, costErr
		}
		cost = &parsed
	}

	var assembly *model.Assembly
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.assemblyRepo.FindByID(txCtx, aid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("assembly")
			}
			return fmt.Errorf("failed to load assembly: %w", findErr)
		}

		if req.Name != "" {
			existing.Name = req.Name
		}
		if cost != nil {
			existing.StandardCost = *cost
		}
		if req.Active != nil {
			existing.Active = *req.Active
		}

		if saveErr := s.assemblyRepo.Update(txCtx, existing); saveErr != nil {
			return fmt.Errorf("failed to update assembly: %w", saveErr)
		}
		assembly = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assembly, nil
}

func (s *catalogService) logCatalogAudit(ctx context.Context, actorID, action, entityID, entityName string, payload interface{}) error {
	actor, err := parseActor(actorID)
	if err != nil {
		return err
	}
	details, _ := json.Marshal(payload)
	audit := model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, &audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
