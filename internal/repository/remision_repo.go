package repository

import (
	"context"
	"errors"
	"time"

	"medicalmuneras/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicate is returned when an insert violates a unique constraint
// (remission id, garantía base id or idempotency key).
var ErrDuplicate = errors.New("registro duplicado")

// RemisionRepository persists remissions and their technical records.
// Methods taking tx run inside the caller's transaction; tx may be nil for
// implementations without a database.
type RemisionRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, tx *gorm.DB, r *model.Remision) error
	FindByID(ctx context.Context, id string) (*model.Remision, error)
	// FindByIDForUpdate loads the remission and its records holding a row lock
	// until tx ends.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Remision, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Remision, error)
	Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, r *model.Remision) error
	CreateRegistro(ctx context.Context, tx *gorm.DB, reg *model.RegistroTecnico) error
	UpdateRegistro(ctx context.Context, tx *gorm.DB, reg *model.RegistroTecnico) error
	ListRegistros(ctx context.Context, remisionID string) ([]model.RegistroTecnico, error)
	// ListCreadasEntre returns base remissions (no garantías) created in [from, to]
	// with their records preloaded.
	ListCreadasEntre(ctx context.Context, from, to time.Time) ([]model.Remision, error)
}

type remisionRepo struct{ db *gorm.DB }

func NewRemisionRepository(db *gorm.DB) RemisionRepository { return &remisionRepo{db: db} }

func (r *remisionRepo) DB() *gorm.DB { return r.db }

func (r *remisionRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *remisionRepo) Create(ctx context.Context, tx *gorm.DB, rem *model.Remision) error {
	// Remission and records go in one INSERT batch through the association.
	return mapDuplicate(r.conn(ctx, tx).Create(rem).Error)
}

func (r *remisionRepo) FindByID(ctx context.Context, id string) (*model.Remision, error) {
	var rem model.Remision
	err := r.db.WithContext(ctx).
		Preload("Registros", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("remission_id = ?", id).
		First(&rem).Error
	return &rem, err
}

func (r *remisionRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Remision, error) {
	var rem model.Remision
	db := r.conn(ctx, tx)
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("remission_id = ?", id).
		First(&rem).Error
	if err != nil {
		return nil, err
	}
	// Records are covered by the parent row lock: every writer locks the parent first.
	err = db.Where("remision_id = ?", id).Order("created_at ASC").Find(&rem.Registros).Error
	return &rem, err
}

func (r *remisionRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Remision, error) {
	var rem model.Remision
	err := r.db.WithContext(ctx).
		Preload("Registros", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("idempotency_key = ?", key).
		First(&rem).Error
	return &rem, err
}

func (r *remisionRepo) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var n int64
	err := r.conn(ctx, tx).Model(&model.Remision{}).Where("remission_id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *remisionRepo) Update(ctx context.Context, tx *gorm.DB, rem *model.Remision) error {
	// Omit associations: records are written explicitly through Create/UpdateRegistro.
	return r.conn(ctx, tx).Omit(clause.Associations).Save(rem).Error
}

func (r *remisionRepo) CreateRegistro(ctx context.Context, tx *gorm.DB, reg *model.RegistroTecnico) error {
	return mapDuplicate(r.conn(ctx, tx).Create(reg).Error)
}

func (r *remisionRepo) UpdateRegistro(ctx context.Context, tx *gorm.DB, reg *model.RegistroTecnico) error {
	return r.conn(ctx, tx).Save(reg).Error
}

func (r *remisionRepo) ListRegistros(ctx context.Context, remisionID string) ([]model.RegistroTecnico, error) {
	var regs []model.RegistroTecnico
	err := r.db.WithContext(ctx).Where("remision_id = ?", remisionID).Order("created_at ASC").Find(&regs).Error
	return regs, err
}

func (r *remisionRepo) ListCreadasEntre(ctx context.Context, from, to time.Time) ([]model.Remision, error) {
	var rems []model.Remision
	err := r.db.WithContext(ctx).
		Preload("Registros").
		Where("base_remision_id IS NULL AND created_at BETWEEN ? AND ?", from, to).
		Order("created_at ASC").
		Find(&rems).Error
	return rems, err
}

// mapDuplicate converts a Postgres unique_violation into ErrDuplicate.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
