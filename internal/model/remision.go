package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SufijoGarantia marks the companion warranty remission of a base remission.
const SufijoGarantia = "-G"

// Estados reported for a remission.
const (
	EstadoPendiente  = "pendiente"
	EstadoEntregada  = "entregada"
	EstadoDadaDeBaja = "dada_de_baja"
)

// Remision is one equipment-intake transaction. Garantía companions are
// Remision rows too, with ID "{base}-G" and BaseRemisionID pointing to the base.
//
// TotalValue is never taken from the client: it is recomputed from the
// technical records and write-off fees (see RecalcularTotal).
type Remision struct {
	ID             string          `gorm:"column:remission_id;type:varchar(64);primaryKey"`
	BaseRemisionID *string         `gorm:"type:varchar(64);uniqueIndex"`
	TotalValue     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DepositValue   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DepositMethod  string          `gorm:"type:varchar(20);not null;default:''"`
	MetodoSaldo    *string         `gorm:"type:varchar(20)"`
	FechaSalida    *time.Time      `gorm:"index"`
	DadaDeBaja     bool            `gorm:"not null;default:false"`
	// RevisionValor is the fee charged when the whole remission is written off.
	RevisionValor  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	IdempotencyKey *string          `gorm:"type:varchar(128);uniqueIndex"`
	ClienteNombre  *string          `gorm:"type:varchar(120)"`
	ClienteEmail   *string          `gorm:"type:varchar(254)"`
	CreadoPor      *uuid.UUID       `gorm:"type:uuid"`
	CerradoPor     *uuid.UUID       `gorm:"type:uuid"`
	CreatedAt      time.Time        `gorm:"index;not null"`
	UpdatedAt      time.Time

	Registros []RegistroTecnico `gorm:"foreignKey:RemisionID;references:ID"`
}

func (Remision) TableName() string { return "remisiones" }

// EsGarantia reports whether r is a warranty companion.
func (r *Remision) EsGarantia() bool { return r.BaseRemisionID != nil }

// Entregada reports whether the remission left the shop (delivered or written off).
func (r *Remision) Entregada() bool { return r.FechaSalida != nil }

func (r *Remision) Estado() string {
	switch {
	case r.DadaDeBaja:
		return EstadoDadaDeBaja
	case r.FechaSalida != nil:
		return EstadoEntregada
	default:
		return EstadoPendiente
	}
}

// Saldo is the outstanding balance due (TotalValue - DepositValue), never negative.
func (r *Remision) Saldo() decimal.Decimal {
	s := r.TotalValue.Sub(r.DepositValue)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

// RecalcularTotal sets TotalValue from the persisted parts: active record
// values plus fees charged on written-off records. A whole-remission write-off
// replaces all of that with its own fee (zero when not charged).
func (r *Remision) RecalcularTotal() {
	if r.DadaDeBaja {
		r.TotalValue = decimal.Zero
		if r.RevisionValor != nil {
			r.TotalValue = *r.RevisionValor
		}
		return
	}
	total := decimal.Zero
	for _, reg := range r.Registros {
		total = total.Add(reg.Aporte())
	}
	r.TotalValue = total
}

// IDGarantia returns the companion id for a base remission id.
func IDGarantia(baseID string) string { return baseID + SufijoGarantia }

// EsIDGarantia reports whether id carries the warranty suffix.
func EsIDGarantia(id string) bool { return strings.HasSuffix(id, SufijoGarantia) }
