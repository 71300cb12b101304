package repository

import (
	"context"

	"bomtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlantRepository interface {
	Create(ctx context.Context, plant *model.Plant) error
	Update(ctx context.Context, plant *model.Plant) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Plant, error)
	FindByCode(ctx context.Context, code string) (*model.Plant, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Plant, error)
	List(ctx context.Context, page, limit int) ([]model.Plant, int64, error)

	CreateLine(ctx context.Context, line *model.ProductionLine) error
	ListLines(ctx context.Context, plantID uuid.UUID) ([]model.ProductionLine, error)
	CreateWorker(ctx context.Context, worker *model.Worker) error
	ListWorkers(ctx context.Context, plantID uuid.UUID) ([]model.Worker, error)
}

type plantRepository struct {
	db *gorm.DB
}

func NewPlantRepository(db *gorm.DB) PlantRepository {
	return &plantRepository{db: db}
}

func (r *plantRepository) Create(ctx context.Context, plant *model.Plant) error {
	return GetDB(ctx, r.db).Create(plant).Error
}

func (r *plantRepository) Update(ctx context.Context, plant *model.Plant) error {
	return GetDB(ctx, r.db).Save(plant).Error
}

func (r *plantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Plant, error) {
	var plant model.Plant
	if err := GetDB(ctx, r.db).First(&plant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plant, nil
}

func (r *plantRepository) FindByCode(ctx context.Context, code string) (*model.Plant, error) {
	var plant model.Plant
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&plant).Error; err != nil {
		return nil, err
	}
	return &plant, nil
}

func (r *plantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Plant, error) {
	var plants []model.Plant
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&plants).Error; err != nil {
		return nil, err
	}
	return plants, nil
}

func (r *plantRepository) List(ctx context.Context, page, limit int) ([]model.Plant, int64, error) {
	var plants []model.Plant
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Plant{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("code asc").Offset(offset).Limit(limit).Find(&plants).Error; err != nil {
		return nil, 0, err
	}

	return plants, total, nil
}

func (r *plantRepository) CreateLine(ctx context.Context, line *model.ProductionLine) error {
	return GetDB(ctx, r.db).Create(line).Error
}

func (r *plantRepository) ListLines(ctx context.Context, plantID uuid.UUID) ([]model.ProductionLine, error) {
	var lines []model.ProductionLine
	if err := GetDB(ctx, r.db).Where("plant_id = ?", plantID).Order("code asc").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *plantRepository) CreateWorker(ctx context.Context, worker *model.Worker) error {
	return GetDB(ctx, r.db).Create(worker).Error
}

func (r *plantRepository) ListWorkers(ctx context.Context, plantID uuid.UUID) ([]model.Worker, error) {
	var workers []model.Worker
	if err := GetDB(ctx, r.db).Where("plant_id = ?", plantID).Preload("ProductionLine").Order("code asc").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}
