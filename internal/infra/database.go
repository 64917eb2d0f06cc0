package infra

import (
	"fmt"

	"medicalmuneras/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (check constraints, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the schema and applies patches. Also used by the
// integration tests against a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Remision{},
		&model.RegistroTecnico{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each statement is guarded by an existence check so
// re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"non-negative amounts on remisiones", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_remisiones_montos') THEN
    ALTER TABLE remisiones ADD CONSTRAINT chk_remisiones_montos
      CHECK (total_value >= 0 AND deposit_value >= 0 AND (revision_valor IS NULL OR revision_valor >= 0));
  END IF;
END $$`},
		{"non-negative amounts on registros_tecnicos", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_registros_montos') THEN
    ALTER TABLE registros_tecnicos ADD CONSTRAINT chk_registros_montos
      CHECK (valor >= 0 AND (revision_valor IS NULL OR revision_valor >= 0));
  END IF;
END $$`},
		// A garantía companion always points to a delivered base remission.
		{"garantia FK to base remission", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_remisiones_base') THEN
    ALTER TABLE remisiones ADD CONSTRAINT fk_remisiones_base
      FOREIGN KEY (base_remision_id) REFERENCES remisiones(remission_id);
  END IF;
END $$`},
		// Report queries only look at base remissions.
		{"partial index for report range scans", `
CREATE INDEX IF NOT EXISTS idx_remisiones_base_created
    ON remisiones (created_at) WHERE base_remision_id IS NULL`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
