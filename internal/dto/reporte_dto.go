package dto

import "github.com/shopspring/decimal"

// ReporteFilter is bound from the query string of GET /v1/reports/remissions/summary.
// Periodo selects which of the other fields is read.
type ReporteFilter struct {
	Periodo string `form:"periodo,default=custom" validate:"oneof=day week month custom"`
	Fecha   string `form:"fecha"`  // day: YYYY-MM-DD
	Semana  string `form:"semana"` // week: YYYY-Www (ISO week)
	Mes     string `form:"mes"`    // month: YYYY-MM
	From    string `form:"from"`   // custom: YYYY-MM-DD or YYYY-MM-DDTHH:MM
	To      string `form:"to"`
}

type ResumenRemisiones struct {
	TotalRemisiones        int64           `json:"totalRemisiones"`
	TotalEquipos           int64           `json:"totalEquipos"`
	TotalValorRemisiones   decimal.Decimal `json:"totalValorRemisiones"`
	TicketPromedioRemision decimal.Decimal `json:"ticketPromedioRemision"`
}

type ResumenResponse struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	Remisiones ResumenRemisiones `json:"remisiones"`
}

type MesRemisiones struct {
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	TotalRemisiones    int64           `json:"totalRemisiones"`
	IngresosRemisiones decimal.Decimal `json:"ingresosRemisiones"`
	TicketPromedio     decimal.Decimal `json:"ticketPromedio"`
}

type MensualResponse struct {
	GeneradoEn string          `json:"generadoEn"`
	Remisiones []MesRemisiones `json:"remisiones"`
}
