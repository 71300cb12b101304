package repository

import (
	"context"

	"bomtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssemblyRepository interface {
	Create(ctx context.Context, assembly *model.Assembly) error
	CreateBatch(ctx context.Context, assemblies []*model.Assembly) error
	Update(ctx context.Context, assembly *model.Assembly) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Assembly, error)
	// FindByIDForUpdate takes an exclusive row lock on the assembly for the
	// remainder of the surrounding transaction. Version allocation must go
	// through this lock so concurrent creators are serialized.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Assembly, error)
	ExistingProductIDs(ctx context.Context, plantID uuid.UUID, productIDs []uuid.UUID) ([]uuid.UUID, error)
	Search(ctx context.Context, q string, plantID *uuid.UUID, finishedGood bool, page, limit int) ([]model.Assembly, bool, error)
	BackfillClassification(ctx context.Context) (int64, error)
}

type assemblyRepository struct {
	db *gorm.DB
}

func NewAssemblyRepository(db *gorm.DB) AssemblyRepository {
	return &assemblyRepository{db: db}
}

func (r *assemblyRepository) Create(ctx context.Context, assembly *model.Assembly) error {
	return GetDB(ctx, r.db).Create(assembly).Error
}

func (r *assemblyRepository) CreateBatch(ctx context.Context, assemblies []*model.Assembly) error {
	return GetDB(ctx, r.db).Create(&assemblies).Error
}

func (r *assemblyRepository) Update(ctx context.Context, assembly *model.Assembly) error {
	return GetDB(ctx, r.db).Save(assembly).Error
}

func (r *assemblyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Assembly, error) {
	var assembly model.Assembly
	if err := GetDB(ctx, r.db).Preload("Product").Preload("Plant").
		First(&assembly, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assembly, nil
}

func (r *assemblyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Assembly, error) {
	var assembly model.Assembly
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assembly, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assembly, nil
}

// ExistingProductIDs returns the subset of productIDs that already have an
// assembly row in the given plant. The seeding service uses the complement
// as its work list.
func (r *assemblyRepository) ExistingProductIDs(ctx context.Context, plantID uuid.UUID, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.Assembly{}).
		Where("plant_id = ? AND product_id IN ?", plantID, productIDs).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Search powers the finished-good and component autocomplete endpoints.
// Classification falls back to the product group when the denormalized flag
// has not been backfilled yet, so legacy rows still show up in the pickers.
// Returns one page plus a has-more flag.
func (r *assemblyRepository) Search(ctx context.Context, q string, plantID *uuid.UUID, finishedGood bool, page, limit int) ([]model.Assembly, bool, error) {
	db := GetDB(ctx, r.db).Model(&model.Assembly{}).
		Preload("Product").
		Preload("Plant").
		Joins("LEFT JOIN products ON products.id = assemblies.product_id").
		Where("COALESCE(assemblies.is_finished_good, products.product_group = 'FG') = ? AND assemblies.active = ?", finishedGood, true)

	if plantID != nil {
		db = db.Where("assemblies.plant_id = ?", *plantID)
	}
	if q != "" {
		term := "%" + q + "%"
		db = db.Where(
			"assemblies.name ILIKE ? OR assemblies.code ILIKE ? OR products.name ILIKE ? OR products.shade ILIKE ? OR products.size ILIKE ?",
			term, term, term, term, term,
		)
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	// Fetch one extra row to compute the has-more flag without a count query.
	var assemblies []model.Assembly
	if err := db.Order("assemblies.name asc, assemblies.id asc").
		Offset(offset).Limit(limit + 1).Find(&assemblies).Error; err != nil {
		return nil, false, err
	}

	more := len(assemblies) > limit
	if more {
		assemblies = assemblies[:limit]
	}
	return assemblies, more, nil
}

// BackfillClassification fills the denormalized is_finished_good and
// product_type_code columns from the owning product wherever they are still
// null. Returns the number of repaired rows.
func (r *assemblyRepository) BackfillClassification(ctx context.Context) (int64, error) {
	res := GetDB(ctx, r.db).Exec(`
		UPDATE assemblies SET
			is_finished_good = (products.product_group = 'FG'),
			product_type_code = CASE products.product_group
				WHEN 'FG' THEN 1
				WHEN 'RM' THEN 2
				WHEN 'WIP' THEN 3
				WHEN 'TRM1' THEN 4
				WHEN 'TRM0' THEN 4
				ELSE NULL
			END
		FROM products
		WHERE products.id = assemblies.product_id
		  AND (assemblies.is_finished_good IS NULL OR assemblies.product_type_code IS NULL)`)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
