package dto

import "github.com/shopspring/decimal"

// JSON field names follow the contract the front-end already consumes.

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LineaEquipoRequest is one equipment line submitted at intake.
// Valor is a pointer so that a missing value is distinguishable from zero.
type LineaEquipoRequest struct {
	Equipo string           `json:"equipo" validate:"required"`
	Valor  *decimal.Decimal `json:"valor"`
	Marca  string           `json:"marca"  validate:"max=80"`
	Serial string           `json:"serial" validate:"max=80"`
}

type CrearRemisionRequest struct {
	RemissionID   string               `json:"remissionId"   validate:"required,max=60"`
	Equipos       []LineaEquipoRequest `json:"equipos"       validate:"dive"`
	DepositValue  decimal.Decimal      `json:"depositValue"`
	DepositMethod string               `json:"depositMethod" validate:"required"`
	// TotalValue is optional; when sent it must match the sum of the lines.
	TotalValue    *decimal.Decimal `json:"totalValue"`
	ClienteNombre *string          `json:"clienteNombre" validate:"omitempty,max=120"`
	ClienteEmail  *string          `json:"clienteEmail"  validate:"omitempty,email"`
}

// RegistroTecnicoRequest carries the editable fields of a technical record.
type RegistroTecnicoRequest struct {
	Equipo           string           `json:"equipo"           validate:"required"`
	Valor            *decimal.Decimal `json:"valor"`
	Marca            string           `json:"marca"            validate:"max=80"`
	Serial           string           `json:"serial"           validate:"max=80"`
	Brazalete        string           `json:"brazalete"`
	Pilas            string           `json:"pilas"`
	Revision         string           `json:"revision"`
	Mantenimiento    string           `json:"mantenimiento"`
	Limpieza         string           `json:"limpieza"`
	Calibracion      string           `json:"calibracion"`
	NotasDiagnostico string           `json:"notasDiagnostico"`
}

type EntregarRequest struct {
	MetodoSaldo *string `json:"metodoSaldo"`
}

// DarDeBajaRequest is shared by the whole-remission and single-record write-offs.
type DarDeBajaRequest struct {
	CobrarRevision bool             `json:"cobrarRevision"`
	RevisionValue  *decimal.Decimal `json:"revisionValue"`
	// MetodoSaldo is recorded when the write-off closes the remission with a balance.
	MetodoSaldo *string `json:"metodoSaldo"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RegistroTecnicoResponse struct {
	ID               string           `json:"id"`
	RemissionID      string           `json:"remissionId"`
	Equipo           string           `json:"equipo"`
	Valor            decimal.Decimal  `json:"valor"`
	Marca            string           `json:"marca"`
	Serial           string           `json:"serial"`
	Brazalete        string           `json:"brazalete"`
	Pilas            string           `json:"pilas"`
	Revision         string           `json:"revision"`
	Mantenimiento    string           `json:"mantenimiento"`
	Limpieza         string           `json:"limpieza"`
	Calibracion      string           `json:"calibracion"`
	NotasDiagnostico string           `json:"notasDiagnostico"`
	DadoBaja         bool             `json:"dadoBaja"`
	FechaBaja        *string          `json:"fechaBaja"`
	RevisionValor    *decimal.Decimal `json:"revisionValor"`
	CreatedAt        string           `json:"createdAt"`
}

type RemisionResponse struct {
	RemissionID      string                    `json:"remissionId"`
	BaseRemissionID  *string                   `json:"baseRemissionId"`
	EsGarantia       bool                      `json:"esGarantia"`
	GarantiaID       *string                   `json:"garantiaId"`
	Estado           string                    `json:"estado"`
	TotalValue       decimal.Decimal           `json:"totalValue"`
	DepositValue     decimal.Decimal           `json:"depositValue"`
	DepositMethod    string                    `json:"depositMethod"`
	Saldo            decimal.Decimal           `json:"saldo"`
	MetodoSaldo      *string                   `json:"metodoSaldo"`
	DadaDeBaja       bool                      `json:"dadaDeBaja"`
	RevisionValor    *decimal.Decimal          `json:"revisionValor"`
	ClienteNombre    *string                   `json:"clienteNombre"`
	ClienteEmail     *string                   `json:"clienteEmail"`
	CreatedAt        string                    `json:"createdAt"`
	FechaSalida      *string                   `json:"fechaSalida"`
	TechnicalRecords []RegistroTecnicoResponse `json:"technicalRecords"`
	// Replayed is true when an idempotent create returned an existing remission.
	Replayed bool `json:"-"`
}
