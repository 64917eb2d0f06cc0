package infra

// pdf.go: delivery receipt ("comprobante de entrega") using go-pdf/fpdf.
// One A5 page: business header, remission id and dates, a table with one row
// per technical record, and the money block (total, abono, saldo).

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"medicalmuneras/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// comprobanteNS namespaces the name-based UUIDs that tell receipt files apart.
var comprobanteNS = uuid.MustParse("8f3b6c2e-4d1a-5e7b-9c0d-2a6f1e4b7d93")

// ComprobanteFileName returns the receipt file name for a remission id: the
// id reduced to [A-Za-z0-9_-] plus a digest of the raw id, so ids that
// sanitize alike ("R.100", "R_100") never share a file.
func ComprobanteFileName(remisionID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, remisionID)
	digest := strings.ReplaceAll(uuid.NewSHA1(comprobanteNS, []byte(remisionID)).String(), "-", "")
	return "comprobante_" + safe + "_" + digest[:12] + ".pdf"
}

// GenerateComprobanteEntregaPDF renders the receipt of a closed remission into
// storagePath (created if needed) and returns the file path.
func GenerateComprobanteEntregaPDF(rem *model.Remision, businessName string, loc *time.Location, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	filePath := filepath.Join(storagePath, ComprobanteFileName(rem.ID))

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(businessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	titulo := "Comprobante de Entrega"
	if rem.EsGarantia() {
		titulo = "Comprobante de Entrega - Garantía"
	}
	pdf.CellFormat(contentW, 5, tr(titulo), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, tr("Remisión N° "+rem.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, "Ingreso: "+rem.CreatedAt.In(loc).Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if rem.FechaSalida != nil {
		pdf.CellFormat(contentW, 4, "Salida: "+rem.FechaSalida.In(loc).Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	if rem.ClienteNombre != nil {
		pdf.CellFormat(contentW, 4, tr("Cliente: "+*rem.ClienteNombre), "", 1, "L", false, 0, "")
	}
	if rem.DadaDeBaja {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 4, tr("Remisión dada de baja"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// ── Records ──────────────────────────────────────────────────────────────
	col1 := contentW * 0.40
	col2 := contentW * 0.25
	col3 := contentW * 0.15
	col4 := contentW * 0.20

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "Equipo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Serial", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "Estado", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col4, 5, "Valor", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, reg := range rem.Registros {
		equipo := reg.Equipo
		if reg.Marca != "" {
			equipo += " " + reg.Marca
		}
		if len([]rune(equipo)) > 30 {
			equipo = string([]rune(equipo)[:29]) + "."
		}
		estado := "Activo"
		if reg.DadoBaja {
			estado = "Baja"
		}
		pdf.CellFormat(col1, 5, tr(equipo), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, tr(reg.Serial), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, estado, "", 0, "C", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+reg.Aporte().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	label := col1 + col2 + col3
	if rem.RevisionValor != nil {
		pdf.CellFormat(label, 5, tr("Revisión:"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+rem.RevisionValor.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(label, 5, "Abono ("+rem.DepositMethod+"):", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 5, "$"+rem.DepositValue.StringFixed(2), "", 1, "R", false, 0, "")
	saldo := "Saldo:"
	if rem.MetodoSaldo != nil {
		saldo = "Saldo (" + *rem.MetodoSaldo + "):"
	}
	pdf.CellFormat(label, 5, saldo, "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 5, "$"+rem.Saldo().StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(label, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+rem.TotalValue.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Gracias por confiar en nosotros"), "", 1, "C", false, 0, "")

	// Render next to the target and rename, so a reader never sees a partial file.
	tmp, err := os.CreateTemp(storagePath, ".comprobante-*.tmp")
	if err != nil {
		return "", fmt.Errorf("pdf: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	if err := pdf.OutputFileAndClose(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("pdf: move file: %w", err)
	}
	return filePath, nil
}
