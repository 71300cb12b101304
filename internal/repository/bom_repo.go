package repository

import (
	"context"

	"bomtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BOMRepository interface {
	Create(ctx context.Context, bom *model.BOM) error
	Update(ctx context.Context, bom *model.BOM) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BOM, error)
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.BOM, error)
	// MaxVersion reads the highest version for an assembly. Only meaningful
	// inside a transaction that holds the assembly row lock.
	MaxVersion(ctx context.Context, assemblyID uuid.UUID) (int, error)
	// FindGoverning returns all APPROVED/ACTIVE BOMs of an assembly,
	// optionally excluding one id.
	FindGoverning(ctx context.Context, assemblyID uuid.UUID, excludeID *uuid.UUID) ([]model.BOM, error)
	// ArchiveActive flips every ACTIVE BOM of the assembly except excludeID
	// to ARCHIVED. Part of the atomic archive-then-activate step.
	ArchiveActive(ctx context.Context, assemblyID uuid.UUID, excludeID uuid.UUID) error
	ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]model.BOM, error)
	CreateLine(ctx context.Context, line *model.BOMLine) error
	UpdateLine(ctx context.Context, line *model.BOMLine) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	FindLine(ctx context.Context, lineID uuid.UUID) (*model.BOMLine, error)
}

type bomRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) BOMRepository {
	return &bomRepository{db: db}
}

func (r *bomRepository) Create(ctx context.Context, bom *model.BOM) error {
	return GetDB(ctx, r.db).Create(bom).Error
}

func (r *bomRepository) Update(ctx context.Context, bom *model.BOM) error {
	return GetDB(ctx, r.db).Save(bom).Error
}

func (r *bomRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BOM, error) {
	var bom model.BOM
	if err := GetDB(ctx, r.db).First(&bom, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bom, nil
}

func (r *bomRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.BOM, error) {
	var bom model.BOM
	err := GetDB(ctx, r.db).
		Preload("Assembly").
		Preload("Assembly.Product").
		Preload("Lines").
		Preload("Lines.Component").
		Preload("Lines.Component.Product").
		First(&bom, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

func (r *bomRepository) MaxVersion(ctx context.Context, assemblyID uuid.UUID) (int, error) {
	var max *int
	err := GetDB(ctx, r.db).Model(&model.BOM{}).
		Where("assembly_id = ?", assemblyID).
		Select("MAX(version)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *bomRepository) FindGoverning(ctx context.Context, assemblyID uuid.UUID, excludeID *uuid.UUID) ([]model.BOM, error) {
	db := GetDB(ctx, r.db).
		Where("assembly_id = ? AND workflow_state IN ?", assemblyID, model.GoverningStates)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	var boms []model.BOM
	if err := db.Order("version asc").Find(&boms).Error; err != nil {
		return nil, err
	}
	return boms, nil
}

func (r *bomRepository) ArchiveActive(ctx context.Context, assemblyID uuid.UUID, excludeID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.BOM{}).
		Where("assembly_id = ? AND workflow_state = ? AND id <> ?", assemblyID, model.StateActive, excludeID).
		Update("workflow_state", model.StateArchived).Error
}

func (r *bomRepository) ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]model.BOM, error) {
	var boms []model.BOM
	err := GetDB(ctx, r.db).
		Where("assembly_id = ?", assemblyID).
		Order("version desc").Find(&boms).Error
	if err != nil {
		return nil, err
	}
	return boms, nil
}

func (r *bomRepository) CreateLine(ctx context.Context, line *model.BOMLine) error {
	return GetDB(ctx, r.db).Create(line).Error
}

func (r *bomRepository) UpdateLine(ctx context.Context, line *model.BOMLine) error {
	return GetDB(ctx, r.db).Save(line).Error
}

func (r *bomRepository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", lineID).Delete(&model.BOMLine{}).Error
}

func (r *bomRepository) FindLine(ctx context.Context, lineID uuid.UUID) (*model.BOMLine, error) {
	var line model.BOMLine
	if err := GetDB(ctx, r.db).Preload("Component").Preload("Component.Product").
		First(&line, "id = ?", lineID).Error; err != nil {
		return nil, err
	}
	return &line, nil
}
