package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegistroTecnico is one physical equipment unit attached to a remission.
// Diagnostic fields are empty until a technician fills them in.
type RegistroTecnico struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RemisionID       string          `gorm:"type:varchar(64);index;not null"`
	Equipo           string          `gorm:"type:varchar(60);not null"`
	Valor            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Marca            string          `gorm:"type:varchar(80);not null;default:''"`
	Serial           string          `gorm:"type:varchar(80);not null;default:''"`
	Brazalete        string          `gorm:"type:varchar(20);not null;default:''"`
	Pilas            string          `gorm:"type:varchar(20);not null;default:''"`
	Revision         string          `gorm:"type:varchar(20);not null;default:''"`
	Mantenimiento    string          `gorm:"type:varchar(20);not null;default:''"`
	Limpieza         string          `gorm:"type:varchar(20);not null;default:''"`
	Calibracion      string          `gorm:"type:varchar(20);not null;default:''"`
	NotasDiagnostico string          `gorm:"type:varchar(100);not null;default:''"`

	DadoBaja      bool             `gorm:"not null;default:false"`
	FechaBaja     *time.Time
	RevisionValor *decimal.Decimal `gorm:"type:decimal(12,2)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RegistroTecnico) TableName() string { return "registros_tecnicos" }

// Aporte is what the unit contributes to its remission total: its valor while
// active, the charged revision fee (or zero) once written off.
func (r RegistroTecnico) Aporte() decimal.Decimal {
	if !r.DadoBaja {
		return r.Valor
	}
	if r.RevisionValor != nil {
		return *r.RevisionValor
	}
	return decimal.Zero
}
