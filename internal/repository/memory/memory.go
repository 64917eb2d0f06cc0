// Package memory provides goroutine-safe in-memory repositories used by unit
// tests and by the service when no database is configured. Values are copied
// on every read and write so callers never share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"medicalmuneras/internal/model"
	"medicalmuneras/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Remisiones ───────────────────────────────────────────────────────────────

type RemisionRepo struct {
	mu        sync.RWMutex
	remisions map[string]model.Remision
	registros map[string][]model.RegistroTecnico
}

var _ repository.RemisionRepository = (*RemisionRepo)(nil)

func NewRemisionRepo() *RemisionRepo {
	return &RemisionRepo{
		remisions: make(map[string]model.Remision),
		registros: make(map[string][]model.RegistroTecnico),
	}
}

// DB returns nil: callers run their transaction function directly.
func (r *RemisionRepo) DB() *gorm.DB { return nil }

func (r *RemisionRepo) Create(_ context.Context, _ *gorm.DB, rem *model.Remision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.remisions[rem.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, other := range r.remisions {
		if sameKey(other.IdempotencyKey, rem.IdempotencyKey) || sameKey(other.BaseRemisionID, rem.BaseRemisionID) {
			return repository.ErrDuplicate
		}
	}
	regs := make([]model.RegistroTecnico, 0, len(rem.Registros))
	for i := range rem.Registros {
		if rem.Registros[i].ID == uuid.Nil {
			rem.Registros[i].ID = uuid.New()
		}
		rem.Registros[i].RemisionID = rem.ID
		stamp(&rem.Registros[i].CreatedAt, &rem.Registros[i].UpdatedAt)
		regs = append(regs, copyRegistro(rem.Registros[i]))
	}
	stamp(&rem.CreatedAt, &rem.UpdatedAt)
	r.remisions[rem.ID] = copyRemision(*rem)
	r.registros[rem.ID] = regs
	return nil
}

func (r *RemisionRepo) FindByID(_ context.Context, id string) (*model.Remision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load(id)
}

func (r *RemisionRepo) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id string) (*model.Remision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load(id)
}

func (r *RemisionRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.Remision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, rem := range r.remisions {
		if rem.IdempotencyKey != nil && *rem.IdempotencyKey == key {
			return r.load(id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *RemisionRepo) Exists(_ context.Context, _ *gorm.DB, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.remisions[id]
	return ok, nil
}

func (r *RemisionRepo) Update(_ context.Context, _ *gorm.DB, rem *model.Remision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.remisions[rem.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	rem.UpdatedAt = time.Now()
	r.remisions[rem.ID] = copyRemision(*rem)
	return nil
}

func (r *RemisionRepo) CreateRegistro(_ context.Context, _ *gorm.DB, reg *model.RegistroTecnico) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.remisions[reg.RemisionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	for _, existing := range r.registros[reg.RemisionID] {
		if existing.ID == reg.ID {
			return repository.ErrDuplicate
		}
	}
	stamp(&reg.CreatedAt, &reg.UpdatedAt)
	r.registros[reg.RemisionID] = append(r.registros[reg.RemisionID], copyRegistro(*reg))
	return nil
}

func (r *RemisionRepo) UpdateRegistro(_ context.Context, _ *gorm.DB, reg *model.RegistroTecnico) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := r.registros[reg.RemisionID]
	for i := range regs {
		if regs[i].ID == reg.ID {
			reg.UpdatedAt = time.Now()
			regs[i] = copyRegistro(*reg)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *RemisionRepo) ListRegistros(_ context.Context, remisionID string) ([]model.RegistroTecnico, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRegistros(r.registros[remisionID]), nil
}

func (r *RemisionRepo) ListCreadasEntre(_ context.Context, from, to time.Time) ([]model.Remision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Remision, 0)
	for id, rem := range r.remisions {
		if rem.BaseRemisionID != nil || rem.CreatedAt.Before(from) || rem.CreatedAt.After(to) {
			continue
		}
		full, _ := r.load(id)
		out = append(out, *full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// load must be called with mu held.
func (r *RemisionRepo) load(id string) (*model.Remision, error) {
	rem, ok := r.remisions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := copyRemision(rem)
	out.Registros = copyRegistros(r.registros[id])
	return &out, nil
}

// ── Usuarios ─────────────────────────────────────────────────────────────────

type UsuarioRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.Usuario
}

var _ repository.UsuarioRepository = (*UsuarioRepo)(nil)

func NewUsuarioRepo() *UsuarioRepo {
	return &UsuarioRepo{users: make(map[uuid.UUID]model.Usuario)}
}

func (r *UsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	r.users[u.ID] = *u
	return nil
}

func (r *UsuarioRepo) Upsert(ctx context.Context, u *model.Usuario) error {
	r.mu.Lock()
	for id, existing := range r.users {
		if existing.Username == u.Username {
			u.ID = id
			u.CreatedAt = existing.CreatedAt
			u.UpdatedAt = time.Now()
			r.users[id] = *u
			r.mu.Unlock()
			return nil
		}
	}
	r.mu.Unlock()
	return r.Create(ctx, u)
}

func (r *UsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if !u.Activo {
			continue
		}
		if u.Username == username || (u.Email != nil && *u.Email == username) {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *UsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

// ── copy helpers ─────────────────────────────────────────────────────────────

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func sameKey(a, b *string) bool { return a != nil && b != nil && *a == *b }

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func copyUUID(u *uuid.UUID) *uuid.UUID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

// copyRemision copies the remission row; Registros are tracked separately.
func copyRemision(r model.Remision) model.Remision {
	out := r
	out.BaseRemisionID = copyString(r.BaseRemisionID)
	out.MetodoSaldo = copyString(r.MetodoSaldo)
	out.FechaSalida = copyTime(r.FechaSalida)
	out.RevisionValor = copyDecimal(r.RevisionValor)
	out.IdempotencyKey = copyString(r.IdempotencyKey)
	out.ClienteNombre = copyString(r.ClienteNombre)
	out.ClienteEmail = copyString(r.ClienteEmail)
	out.CreadoPor = copyUUID(r.CreadoPor)
	out.CerradoPor = copyUUID(r.CerradoPor)
	out.Registros = nil
	return out
}

func copyRegistro(r model.RegistroTecnico) model.RegistroTecnico {
	out := r
	out.FechaBaja = copyTime(r.FechaBaja)
	out.RevisionValor = copyDecimal(r.RevisionValor)
	return out
}

func copyRegistros(regs []model.RegistroTecnico) []model.RegistroTecnico {
	out := make([]model.RegistroTecnico, len(regs))
	for i := range regs {
		out[i] = copyRegistro(regs[i])
	}
	return out
}
