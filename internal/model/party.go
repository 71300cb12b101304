package model

import (
	"time"

	"github.com/google/uuid"
)

// Party is a vendor and/or customer. A party must carry at least one of the
// two roles; the service layer enforces it.
type Party struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PartyCode     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"party_code"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Address       string    `gorm:"type:text" json:"address,omitempty"`
	ContactPerson string    `gorm:"type:varchar(128)" json:"contact_person,omitempty"`
	ContactNumber string    `gorm:"type:varchar(50)" json:"contact_number,omitempty"`
	Email         string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	TaxID         string    `gorm:"type:varchar(64)" json:"tax_id,omitempty"`
	IsVendor      bool      `gorm:"default:false" json:"is_vendor"`
	IsCustomer    bool      `gorm:"default:false" json:"is_customer"`
	Active        bool      `gorm:"default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
