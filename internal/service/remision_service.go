package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"medicalmuneras/internal/dto"
	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/model"
	"medicalmuneras/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JobDispatcher enqueues the asynchronous work triggered by a remission
// leaving the shop. Implemented by worker.Dispatcher.
type JobDispatcher interface {
	EnqueueComprobante(ctx context.Context, remisionID string) error
}

// ReportCache drops cached reports once remission totals change.
type ReportCache interface {
	InvalidarMensual(ctx context.Context)
}

type RemisionService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, idempotencyKey string, req dto.CrearRemisionRequest) (*dto.RemisionResponse, error)
	Obtener(ctx context.Context, id string) (*dto.RemisionResponse, error)
	ListarRegistros(ctx context.Context, remisionID string) ([]dto.RegistroTecnicoResponse, error)
	AgregarRegistro(ctx context.Context, remisionID string, req dto.RegistroTecnicoRequest) (*dto.RegistroTecnicoResponse, error)
	ActualizarRegistro(ctx context.Context, remisionID, registroID string, req dto.RegistroTecnicoRequest) (*dto.RegistroTecnicoResponse, error)
	DarDeBajaRegistro(ctx context.Context, remisionID, registroID string, req dto.DarDeBajaRequest) (*dto.RemisionResponse, error)
	Entregar(ctx context.Context, usuarioID uuid.UUID, id string, req dto.EntregarRequest) (*dto.RemisionResponse, error)
	DarDeBaja(ctx context.Context, usuarioID uuid.UUID, id string, req dto.DarDeBajaRequest) (*dto.RemisionResponse, error)
	IngresarGarantia(ctx context.Context, usuarioID uuid.UUID, id string) (*dto.RemisionResponse, error)
	SacarGarantia(ctx context.Context, usuarioID uuid.UUID, id string) (*dto.RemisionResponse, error)
	// Comprobante returns the path of the delivery receipt PDF of a closed
	// remission, rendering it only when it is not on disk yet.
	Comprobante(ctx context.Context, id string) (string, error)
}

// ComprobanteConfig tells the service where delivery receipts live.
type ComprobanteConfig struct {
	StoragePath  string
	BusinessName string
	Location     *time.Location
}

type remisionService struct {
	repo   repository.RemisionRepository
	locker infra.Locker
	jobs   JobDispatcher
	cache  ReportCache
	comp   ComprobanteConfig
	now    func() time.Time
}

// NewRemisionService wires the lifecycle manager. jobs may be nil (no async
// receipts) and so may cache (no report cache to invalidate).
func NewRemisionService(
	repo repository.RemisionRepository,
	locker infra.Locker,
	jobs JobDispatcher,
	cache ReportCache,
	comp ComprobanteConfig,
) RemisionService {
	return &remisionService{
		repo:   repo,
		locker: locker,
		jobs:   jobs,
		cache:  cache,
		comp:   comp,
		now:    time.Now,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// mutar serializes a state transition on one remission: per-id lock, then a
// transaction holding the row lock while fn validates and writes.
// fn must finish validating before its first write so that a rejected
// operation leaves nothing behind when there is no transaction to roll back.
func (s *remisionService) mutar(ctx context.Context, id string, fn func(tx *gorm.DB, rem *model.Remision) error) (*model.Remision, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, infra.ErrLockTimeout) {
			return nil, errConflicto("la remisión %s está siendo modificada, intente de nuevo", id)
		}
		return nil, err
	}
	defer unlock()

	var out *model.Remision
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rem, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNoEncontrada("remisión %s no encontrada", id)
		}
		if err != nil {
			return err
		}
		if err := fn(tx, rem); err != nil {
			return err
		}
		out = rem
		return nil
	})
	if err == nil {
		s.invalidarReportes(ctx)
	}
	return out, err
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// The total is computed here from the lines; a client-sent totalValue is only
// checked against it.

func (s *remisionService) Crear(ctx context.Context, usuarioID uuid.UUID, idempotencyKey string, req dto.CrearRemisionRequest) (*dto.RemisionResponse, error) {
	id := strings.TrimSpace(req.RemissionID)
	idempotencyKey = strings.TrimSpace(idempotencyKey)

	f := campos{}
	switch {
	case id == "":
		f.add("remissionId", "es requerido")
	case model.EsIDGarantia(id):
		f.add("remissionId", fmt.Sprintf("el sufijo %s está reservado para garantías", model.SufijoGarantia))
	}
	total := decimal.Zero
	for i, linea := range req.Equipos {
		prefix := fmt.Sprintf("equipos[%d].", i)
		if !model.Equipos.Contiene(linea.Equipo) {
			f.add(prefix+"equipo", "equipo no reconocido")
		}
		switch {
		case linea.Valor == nil:
			f.add(prefix+"valor", "es requerido")
		case linea.Valor.IsNegative():
			f.add(prefix+"valor", "no puede ser negativo")
		default:
			total = total.Add(*linea.Valor)
		}
	}
	if req.DepositValue.IsNegative() {
		f.add("depositValue", "no puede ser negativo")
	}
	if !model.MetodosPago.Contiene(req.DepositMethod) {
		f.add("depositMethod", "método de pago no válido")
	}
	if len(f) == 0 && req.TotalValue != nil && !req.TotalValue.Equal(total) {
		f.add("totalValue", fmt.Sprintf("no coincide con la suma de los equipos (%s)", total.StringFixed(2)))
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, infra.ErrLockTimeout) {
			return nil, errConflicto("la remisión %s está siendo creada, intente de nuevo", id)
		}
		return nil, err
	}
	defer unlock()

	// Checked under the id lock so a retry racing its original sees the committed row.
	if idempotencyKey != "" {
		if resp, err := s.replay(ctx, idempotencyKey, id); resp != nil || err != nil {
			return resp, err
		}
	}

	now := s.now()
	rem := &model.Remision{
		ID:             id,
		DepositValue:   req.DepositValue,
		DepositMethod:  req.DepositMethod,
		ClienteNombre:  trimmed(req.ClienteNombre),
		ClienteEmail:   trimmed(req.ClienteEmail),
		IdempotencyKey: trimmed(&idempotencyKey),
		CreadoPor:      nonNilUUID(usuarioID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, linea := range req.Equipos {
		rem.Registros = append(rem.Registros, model.RegistroTecnico{
			ID:         uuid.New(),
			RemisionID: id,
			Equipo:     linea.Equipo,
			Valor:      *linea.Valor,
			Marca:      strings.TrimSpace(linea.Marca),
			Serial:     strings.TrimSpace(linea.Serial),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	rem.RecalcularTotal()

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		exists, err := s.repo.Exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if exists {
			return errConflicto("ya existe una remisión con id %s", id)
		}
		return s.repo.Create(ctx, tx, rem)
	})
	if errors.Is(txErr, repository.ErrDuplicate) {
		// Lost a race with a concurrent create: either our own retry or a real duplicate.
		if idempotencyKey != "" {
			if resp, err := s.replay(ctx, idempotencyKey, id); resp != nil || err != nil {
				return resp, err
			}
		}
		return nil, errConflicto("ya existe una remisión con id %s", id)
	}
	if txErr != nil {
		return nil, txErr
	}

	s.invalidarReportes(ctx)
	log.Info().Str("remission_id", id).Str("total", rem.TotalValue.StringFixed(2)).
		Int("equipos", len(rem.Registros)).Msg("remision creada")
	return toRemisionResponse(rem, nil), nil
}

// replay resolves a create retried with an already-used idempotency key. It
// returns (nil, nil) when the key is unknown.
func (s *remisionService) replay(ctx context.Context, key, id string) (*dto.RemisionResponse, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.ID != id {
		return nil, errConflicto("la clave de idempotencia ya fue usada para la remisión %s", existing.ID)
	}
	resp, err := s.respuesta(ctx, existing)
	if err != nil {
		return nil, err
	}
	resp.Replayed = true
	return resp, nil
}

// ── Lookup ────────────────────────────────────────────────────────────────────

func (s *remisionService) Obtener(ctx context.Context, id string) (*dto.RemisionResponse, error) {
	rem, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respuesta(ctx, rem)
}

func (s *remisionService) ListarRegistros(ctx context.Context, remisionID string) ([]dto.RegistroTecnicoResponse, error) {
	exists, err := s.repo.Exists(ctx, nil, remisionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errNoEncontrada("remisión %s no encontrada", remisionID)
	}
	regs, err := s.repo.ListRegistros(ctx, remisionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RegistroTecnicoResponse, len(regs))
	for i := range regs {
		out[i] = toRegistroResponse(&regs[i])
	}
	return out, nil
}

// ── Registros técnicos ────────────────────────────────────────────────────────

func (s *remisionService) AgregarRegistro(ctx context.Context, remisionID string, req dto.RegistroTecnicoRequest) (*dto.RegistroTecnicoResponse, error) {
	if err := validarRegistro(req); err != nil {
		return nil, err
	}
	var reg model.RegistroTecnico
	_, err := s.mutar(ctx, remisionID, func(tx *gorm.DB, rem *model.Remision) error {
		if err := editable(rem); err != nil {
			return err
		}
		now := s.now()
		reg = model.RegistroTecnico{ID: uuid.New(), RemisionID: rem.ID, CreatedAt: now, UpdatedAt: now}
		aplicarRegistro(&reg, req)
		rem.Registros = append(rem.Registros, reg)
		rem.RecalcularTotal()
		if err := s.repo.CreateRegistro(ctx, tx, &reg); err != nil {
			return err
		}
		return s.repo.Update(ctx, tx, rem)
	})
	if err != nil {
		return nil, err
	}
	resp := toRegistroResponse(&reg)
	return &resp, nil
}

func (s *remisionService) ActualizarRegistro(ctx context.Context, remisionID, registroID string, req dto.RegistroTecnicoRequest) (*dto.RegistroTecnicoResponse, error) {
	if err := validarRegistro(req); err != nil {
		return nil, err
	}
	var reg model.RegistroTecnico
	_, err := s.mutar(ctx, remisionID, func(tx *gorm.DB, rem *model.Remision) error {
		if err := editable(rem); err != nil {
			return err
		}
		target, err := buscarRegistro(rem, registroID)
		if err != nil {
			return err
		}
		if target.DadoBaja {
			return errBloqueada("el equipo %s fue dado de baja y no se puede modificar", registroID)
		}
		aplicarRegistro(target, req)
		target.UpdatedAt = s.now()
		rem.RecalcularTotal()
		reg = *target
		if err := s.repo.UpdateRegistro(ctx, tx, target); err != nil {
			return err
		}
		return s.repo.Update(ctx, tx, rem)
	})
	if err != nil {
		return nil, err
	}
	resp := toRegistroResponse(&reg)
	return &resp, nil
}

func (s *remisionService) DarDeBajaRegistro(ctx context.Context, remisionID, registroID string, req dto.DarDeBajaRequest) (*dto.RemisionResponse, error) {
	fee, err := validarCobro(req)
	if err != nil {
		return nil, err
	}
	rem, err := s.mutar(ctx, remisionID, func(tx *gorm.DB, rem *model.Remision) error {
		if err := editable(rem); err != nil {
			return err
		}
		target, err := buscarRegistro(rem, registroID)
		if err != nil {
			return err
		}
		if target.DadoBaja {
			return errConflicto("el equipo %s ya fue dado de baja", registroID)
		}
		now := s.now()
		target.DadoBaja = true
		target.FechaBaja = &now
		target.RevisionValor = fee
		target.UpdatedAt = now
		rem.RecalcularTotal()
		if err := s.repo.UpdateRegistro(ctx, tx, target); err != nil {
			return err
		}
		return s.repo.Update(ctx, tx, rem)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("remission_id", remisionID).Str("registro_id", registroID).
		Bool("cobrar_revision", req.CobrarRevision).Str("total", rem.TotalValue.StringFixed(2)).
		Msg("equipo dado de baja")
	return s.respuesta(ctx, rem)
}

// ── Cierre ────────────────────────────────────────────────────────────────────

func (s *remisionService) Entregar(ctx context.Context, usuarioID uuid.UUID, id string, req dto.EntregarRequest) (*dto.RemisionResponse, error) {
	if model.EsIDGarantia(id) {
		return nil, errValidacion("las garantías se cierran con sacar garantía", map[string]string{"remissionId": "es una garantía"})
	}
	metodo := trimmed(req.MetodoSaldo)
	if metodo != nil && !model.MetodosPago.Contiene(*metodo) {
		return nil, errValidacion("Error de validacion", map[string]string{"metodoSaldo": "método de pago no válido"})
	}
	rem, err := s.mutar(ctx, id, func(tx *gorm.DB, rem *model.Remision) error {
		if rem.Entregada() {
			return errConflicto("la remisión %s ya fue entregada", id)
		}
		saldo := rem.Saldo()
		if saldo.IsPositive() && metodo == nil {
			return errValidacion("Error de validacion", map[string]string{
				"metodoSaldo": fmt.Sprintf("es requerido cuando hay saldo pendiente (%s)", saldo.StringFixed(2)),
			})
		}
		if saldo.IsPositive() {
			rem.MetodoSaldo = metodo
		}
		s.cerrar(rem, usuarioID)
		return s.repo.Update(ctx, tx, rem)
	})
	if err != nil {
		return nil, err
	}
	s.despachar(ctx, rem.ID)
	log.Info().Str("remission_id", id).Msg("remision entregada")
	return s.respuesta(ctx, rem)
}

func (s *remisionService) DarDeBaja(ctx context.Context, usuarioID uuid.UUID, id string, req dto.DarDeBajaRequest) (*dto.RemisionResponse, error) {
	fee, err := validarCobro(req)
	if err != nil {
		return nil, err
	}
	metodo := trimmed(req.MetodoSaldo)
	if metodo != nil && !model.MetodosPago.Contiene(*metodo) {
		return nil, errValidacion("Error de validacion", map[string]string{"metodoSaldo": "método de pago no válido"})
	}
	rem, err := s.mutar(ctx, id, func(tx *gorm.DB, rem *model.Remision) error {
		if rem.Entregada() {
			return errConflicto("la remisión %s ya fue cerrada", id)
		}
		now := s.now()
		var bajas []*model.RegistroTecnico
		for i := range rem.Registros {
			reg := &rem.Registros[i]
			if reg.DadoBaja {
				continue
			}
			reg.DadoBaja = true
			reg.FechaBaja = &now
			reg.UpdatedAt = now
			bajas = append(bajas, reg)
		}
		rem.DadaDeBaja = true
		rem.RevisionValor = fee
		rem.RecalcularTotal()
		if rem.Saldo().IsPositive() {
			rem.MetodoSaldo = metodo
		}
		s.cerrar(rem, usuarioID)
		for _, reg := range bajas {
			if err := s.repo.UpdateRegistro(ctx, tx, reg); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, tx, rem)
	})
	if err != nil {
		return nil, err
	}
	s.despachar(ctx, rem.ID)
	log.Info().Str("remission_id", id).Bool("cobrar_revision", req.CobrarRevision).
		Str("total", rem.TotalValue.StringFixed(2)).Msg("remision dada de baja")
	return s.respuesta(ctx, rem)
}

// ── Garantía ──────────────────────────────────────────────────────────────────

func (s *remisionService) IngresarGarantia(ctx context.Context, usuarioID uuid.UUID, id string) (*dto.RemisionResponse, error) {
	if model.EsIDGarantia(id) {
		return nil, errValidacion("una garantía no puede tener garantía", map[string]string{"remissionId": "es una garantía"})
	}
	garantiaID := model.IDGarantia(id)
	var garantia *model.Remision
	_, err := s.mutar(ctx, id, func(tx *gorm.DB, base *model.Remision) error {
		if !base.Entregada() {
			return errConflicto("la remisión %s aún no ha sido entregada", id)
		}
		exists, err := s.repo.Exists(ctx, tx, garantiaID)
		if err != nil {
			return err
		}
		if exists {
			return errConflicto("la remisión %s ya tiene garantía", id)
		}
		now := s.now()
		baseID := base.ID
		garantia = &model.Remision{
			ID:             garantiaID,
			BaseRemisionID: &baseID,
			ClienteNombre:  base.ClienteNombre,
			ClienteEmail:   base.ClienteEmail,
			CreadoPor:      nonNilUUID(usuarioID),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = s.repo.Create(ctx, tx, garantia)
		if errors.Is(err, repository.ErrDuplicate) {
			return errConflicto("la remisión %s ya tiene garantía", id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("remission_id", garantiaID).Msg("garantia ingresada")
	return toRemisionResponse(garantia, nil), nil
}

// SacarGarantia accepts either the base id or the companion id.
func (s *remisionService) SacarGarantia(ctx context.Context, usuarioID uuid.UUID, id string) (*dto.RemisionResponse, error) {
	garantiaID := id
	if !model.EsIDGarantia(id) {
		garantiaID = model.IDGarantia(id)
	}
	rem, err := s.mutar(ctx, garantiaID, func(tx *gorm.DB, rem *model.Remision) error {
		if rem.Entregada() {
			return errConflicto("la garantía %s ya fue entregada", garantiaID)
		}
		s.cerrar(rem, usuarioID)
		return s.repo.Update(ctx, tx, rem)
	})
	if err != nil {
		return nil, err
	}
	s.despachar(ctx, rem.ID)
	log.Info().Str("remission_id", garantiaID).Msg("garantia entregada")
	return s.respuesta(ctx, rem)
}

// ── Comprobante ───────────────────────────────────────────────────────────────

func (s *remisionService) Comprobante(ctx context.Context, id string) (string, error) {
	rem, err := s.buscar(ctx, id)
	if err != nil {
		return "", err
	}
	if !rem.Entregada() {
		return "", errConflicto("la remisión %s aún no ha sido entregada", id)
	}
	path := filepath.Join(s.comp.StoragePath, infra.ComprobanteFileName(rem.ID))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return infra.GenerateComprobanteEntregaPDF(rem, s.comp.BusinessName, s.comp.Location, s.comp.StoragePath)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *remisionService) buscar(ctx context.Context, id string) (*model.Remision, error) {
	rem, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNoEncontrada("remisión %s no encontrada", id)
	}
	if err != nil {
		return nil, err
	}
	return rem, nil
}

// respuesta builds the response, looking up the garantía companion of a base remission.
func (s *remisionService) respuesta(ctx context.Context, rem *model.Remision) (*dto.RemisionResponse, error) {
	var garantiaID *string
	if !rem.EsGarantia() {
		gid := model.IDGarantia(rem.ID)
		exists, err := s.repo.Exists(ctx, nil, gid)
		if err != nil {
			return nil, err
		}
		if exists {
			garantiaID = &gid
		}
	}
	return toRemisionResponse(rem, garantiaID), nil
}

func (s *remisionService) cerrar(rem *model.Remision, usuarioID uuid.UUID) {
	now := s.now()
	rem.FechaSalida = &now
	rem.CerradoPor = nonNilUUID(usuarioID)
	rem.UpdatedAt = now
}

// despachar enqueues the receipt job. Best effort: the transition is already committed.
func (s *remisionService) despachar(ctx context.Context, id string) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueComprobante(ctx, id); err != nil {
		log.Warn().Err(err).Str("remission_id", id).Msg("no se pudo encolar el comprobante")
	}
}

func (s *remisionService) invalidarReportes(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidarMensual(ctx)
	}
}

func editable(rem *model.Remision) error {
	if rem.Entregada() {
		return errBloqueada("no se puede modificar una remisión entregada (%s)", rem.ID)
	}
	return nil
}

func buscarRegistro(rem *model.Remision, registroID string) (*model.RegistroTecnico, error) {
	rid, err := uuid.Parse(registroID)
	if err == nil {
		for i := range rem.Registros {
			if rem.Registros[i].ID == rid {
				return &rem.Registros[i], nil
			}
		}
	}
	return nil, errNoEncontrada("registro técnico %s no encontrado en la remisión %s", registroID, rem.ID)
}

func validarRegistro(req dto.RegistroTecnicoRequest) error {
	f := campos{}
	if !model.Equipos.Contiene(req.Equipo) {
		f.add("equipo", "equipo no reconocido")
	}
	switch {
	case req.Valor == nil:
		f.add("valor", "es requerido")
	case req.Valor.IsNegative():
		f.add("valor", "no puede ser negativo")
	}
	diagnosticos := []struct {
		campo, valor string
		catalogo     model.Catalogo
	}{
		{"brazalete", req.Brazalete, model.EstadosBrazalete},
		{"pilas", req.Pilas, model.EstadosPilas},
		{"revision", req.Revision, model.EstadosChequeo},
		{"mantenimiento", req.Mantenimiento, model.EstadosChequeo},
		{"limpieza", req.Limpieza, model.EstadosChequeo},
		{"calibracion", req.Calibracion, model.EstadosChequeo},
	}
	for _, d := range diagnosticos {
		// Empty means not diagnosed yet.
		if d.valor != "" && !d.catalogo.Contiene(d.valor) {
			f.add(d.campo, "valor no permitido")
		}
	}
	if utf8.RuneCountInString(req.NotasDiagnostico) > model.MaxNotasDiagnostico {
		f.add("notasDiagnostico", fmt.Sprintf("máximo %d caracteres", model.MaxNotasDiagnostico))
	}
	return f.err()
}

// validarCobro returns the fee to store for a write-off: nil when not charged.
func validarCobro(req dto.DarDeBajaRequest) (*decimal.Decimal, error) {
	if !req.CobrarRevision {
		return nil, nil
	}
	switch {
	case req.RevisionValue == nil:
		return nil, errValidacion("Error de validacion", map[string]string{"revisionValue": "es requerido cuando se cobra la revisión"})
	case req.RevisionValue.IsNegative():
		return nil, errValidacion("Error de validacion", map[string]string{"revisionValue": "no puede ser negativo"})
	}
	fee := *req.RevisionValue
	return &fee, nil
}

func aplicarRegistro(reg *model.RegistroTecnico, req dto.RegistroTecnicoRequest) {
	reg.Equipo = req.Equipo
	reg.Valor = *req.Valor
	reg.Marca = strings.TrimSpace(req.Marca)
	reg.Serial = strings.TrimSpace(req.Serial)
	reg.Brazalete = req.Brazalete
	reg.Pilas = req.Pilas
	reg.Revision = req.Revision
	reg.Mantenimiento = req.Mantenimiento
	reg.Limpieza = req.Limpieza
	reg.Calibracion = req.Calibracion
	reg.NotasDiagnostico = strings.TrimSpace(req.NotasDiagnostico)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nonNilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toRegistroResponse(r *model.RegistroTecnico) dto.RegistroTecnicoResponse {
	return dto.RegistroTecnicoResponse{
		ID:               r.ID.String(),
		RemissionID:      r.RemisionID,
		Equipo:           r.Equipo,
		Valor:            r.Valor,
		Marca:            r.Marca,
		Serial:           r.Serial,
		Brazalete:        r.Brazalete,
		Pilas:            r.Pilas,
		Revision:         r.Revision,
		Mantenimiento:    r.Mantenimiento,
		Limpieza:         r.Limpieza,
		Calibracion:      r.Calibracion,
		NotasDiagnostico: r.NotasDiagnostico,
		DadoBaja:         r.DadoBaja,
		FechaBaja:        formatTime(r.FechaBaja),
		RevisionValor:    r.RevisionValor,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

func toRemisionResponse(r *model.Remision, garantiaID *string) *dto.RemisionResponse {
	regs := make([]dto.RegistroTecnicoResponse, len(r.Registros))
	for i := range r.Registros {
		regs[i] = toRegistroResponse(&r.Registros[i])
	}
	return &dto.RemisionResponse{
		RemissionID:      r.ID,
		BaseRemissionID:  r.BaseRemisionID,
		EsGarantia:       r.EsGarantia(),
		GarantiaID:       garantiaID,
		Estado:           r.Estado(),
		TotalValue:       r.TotalValue,
		DepositValue:     r.DepositValue,
		DepositMethod:    r.DepositMethod,
		Saldo:            r.Saldo(),
		MetodoSaldo:      r.MetodoSaldo,
		DadaDeBaja:       r.DadaDeBaja,
		RevisionValor:    r.RevisionValor,
		ClienteNombre:    r.ClienteNombre,
		ClienteEmail:     r.ClienteEmail,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		FechaSalida:      formatTime(r.FechaSalida),
		TechnicalRecords: regs,
	}
}
