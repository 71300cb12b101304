package model

import (
	"time"

	"github.com/google/uuid"
)

// Plant represents a production site. Assemblies and BOMs are always scoped
// to exactly one plant.
type Plant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductionLine belongs to a plant; line codes are unique per plant.
type ProductionLine struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_plant_code" json:"plant_id"`
	Plant   *Plant    `gorm:"foreignKey:PlantID" json:"plant,omitempty"`
	Code    string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_line_plant_code" json:"code"`
	Name    string    `gorm:"type:varchar(128);not null" json:"name"`
	Active  bool      `gorm:"default:true" json:"active"`
	Notes   string    `gorm:"type:text" json:"notes,omitempty"`
}

// Worker is a plant employee, optionally assigned to a production line.
type Worker struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_worker_plant_code" json:"plant_id"`
	Plant            *Plant          `gorm:"foreignKey:PlantID" json:"plant,omitempty"`
	ProductionLineID *uuid.UUID      `gorm:"type:uuid" json:"production_line_id,omitempty"`
	ProductionLine   *ProductionLine `gorm:"foreignKey:ProductionLineID" json:"production_line,omitempty"`
	Code             string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_worker_plant_code" json:"code"`
	Name             string          `gorm:"type:varchar(128);not null" json:"name"`
	Active           bool            `gorm:"default:true" json:"active"`
}
