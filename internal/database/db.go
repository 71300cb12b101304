package database

import (
	"log"

	"bomtrack/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Plant{},
		&model.ProductionLine{},
		&model.Worker{},
		&model.Party{},
		&model.Product{},
		&model.Assembly{},
		&model.BOM{},
		&model.BOMLine{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	if err := setupConstraints(db); err != nil {
		return nil, err
	}

	return db, nil
}

// setupConstraints installs the storage-level invariants AutoMigrate cannot
// express. The application pre-checks the same rules for good error messages;
// these constraints are the correctness backstop when two transactions pass
// the application check concurrently.
func setupConstraints(db *gorm.DB) error {
	stmts := []string{
		// gist equality on uuid columns needs btree_gist
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,

		// No two governing (APPROVED/ACTIVE) BOMs of one assembly may have
		// overlapping effective windows. Inclusive bounds; null = unbounded.
		`DO $$ BEGIN
			ALTER TABLE boms ADD CONSTRAINT boms_no_overlap_governing
			EXCLUDE USING GIST (
				assembly_id WITH =,
				daterange(effective_from::date, effective_to::date, '[]') WITH &&
			) WHERE (workflow_state IN ('APPROVED', 'ACTIVE'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,

		// At most one ACTIVE BOM per assembly.
		`CREATE UNIQUE INDEX IF NOT EXISTS boms_one_active_per_assembly_idx
			ON boms (assembly_id) WHERE workflow_state = 'ACTIVE'`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
