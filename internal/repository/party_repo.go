package repository

import (
	"context"

	"bomtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartyRepository interface {
	Create(ctx context.Context, party *model.Party) error
	Update(ctx context.Context, party *model.Party) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Party, error)
	ExistsByCode(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Party, int64, error)
}

type partyRepository struct {
	db *gorm.DB
}

func NewPartyRepository(db *gorm.DB) PartyRepository {
	return &partyRepository{db: db}
}

func (r *partyRepository) Create(ctx context.Context, party *model.Party) error {
	return GetDB(ctx, r.db).Create(party).Error
}

func (r *partyRepository) Update(ctx context.Context, party *model.Party) error {
	return GetDB(ctx, r.db).Save(party).Error
}

func (r *partyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Party, error) {
	var party model.Party
	if err := GetDB(ctx, r.db).First(&party, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

// ExistsByCode checks for another party with the same code, case-insensitive.
func (r *partyRepository) ExistsByCode(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	db := GetDB(ctx, r.db).Model(&model.Party{}).Where("party_code ILIKE ?", code)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *partyRepository) List(ctx context.Context, page, limit int, search string) ([]model.Party, int64, error) {
	var parties []model.Party
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Party{})
	if search != "" {
		db = db.Where("name ILIKE ? OR party_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("party_code asc").Offset(offset).Limit(limit).Find(&parties).Error; err != nil {
		return nil, 0, err
	}

	return parties, total, nil
}
