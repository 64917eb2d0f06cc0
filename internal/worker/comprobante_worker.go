package worker

// comprobante_worker.go
// Renders the delivery receipt of a closed remission and, when the client
// left an e-mail, hands it to the email queue.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RemisionFinder is the read side the worker needs; repository.RemisionRepository satisfies it.
type RemisionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Remision, error)
}

// EmailEnqueuer is satisfied by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ComprobanteWorker struct {
	repo         RemisionFinder
	emails       EmailEnqueuer
	storagePath  string
	businessName string
	loc          *time.Location
}

func NewComprobanteWorker(repo RemisionFinder, emails EmailEnqueuer, storagePath, businessName string, loc *time.Location) *ComprobanteWorker {
	return &ComprobanteWorker{
		repo:         repo,
		emails:       emails,
		storagePath:  storagePath,
		businessName: businessName,
		loc:          loc,
	}
}

func (w *ComprobanteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ComprobanteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RemisionID == "" {
		log.Error().Err(err).Msg("comprobante_worker: invalid payload")
		return nil
	}

	rem, err := w.repo.FindByID(ctx, payload.RemisionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Str("remission_id", payload.RemisionID).Msg("comprobante_worker: remission not found")
		return nil
	}
	if err != nil {
		return err
	}
	if !rem.Entregada() {
		log.Warn().Str("remission_id", rem.ID).Msg("comprobante_worker: remission still pending, skipping")
		return nil
	}

	pdfPath, err := infra.GenerateComprobanteEntregaPDF(rem, w.businessName, w.loc, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("pdf", pdfPath).Str("remission_id", rem.ID).Msg("comprobante_worker: PDF generated")

	if rem.ClienteEmail == nil || *rem.ClienteEmail == "" || w.emails == nil {
		return nil
	}
	job := EmailJobPayload{
		ToEmail: *rem.ClienteEmail,
		Subject: fmt.Sprintf("%s - Comprobante de entrega remisión %s", w.businessName, rem.ID),
		Body:    cuerpoComprobante(rem),
		PDFPath: pdfPath,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	log.Info().Str("email", job.ToEmail).Str("remission_id", rem.ID).Msg("comprobante_worker: email job enqueued")
	return nil
}

func cuerpoComprobante(rem *model.Remision) string {
	saludo := "Hola"
	if rem.ClienteNombre != nil {
		saludo += " " + *rem.ClienteNombre
	}
	if rem.DadaDeBaja {
		return fmt.Sprintf("%s,\nAdjuntamos el comprobante de cierre de la remisión %s (dada de baja).\nTotal: $%s\n",
			saludo, rem.ID, rem.TotalValue.StringFixed(2))
	}
	return fmt.Sprintf("%s,\nAdjuntamos el comprobante de entrega de la remisión %s.\nTotal: $%s\nSaldo pagado: $%s\n",
		saludo, rem.ID, rem.TotalValue.StringFixed(2), rem.Saldo().StringFixed(2))
}
