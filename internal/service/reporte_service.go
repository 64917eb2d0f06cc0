package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"medicalmuneras/internal/dto"
	"medicalmuneras/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	CacheKeyReporteMensual = "reportes:remisiones:mensual"
	cacheTTLReporteMensual = 2 * time.Hour
	mesesReporteMensual    = 12
)

// ReporteService aggregates remission volume. Garantía companions are never
// counted: they carry no intake money.
type ReporteService interface {
	// ResolverRango turns a period filter into a closed [from, to] interval in
	// the business timezone.
	ResolverRango(f dto.ReporteFilter) (time.Time, time.Time, error)
	Resumen(ctx context.Context, f dto.ReporteFilter) (*dto.ResumenResponse, error)
	// Mensual serves the last 12 months from cache when possible.
	Mensual(ctx context.Context) (*dto.MensualResponse, error)
	// RefrescarMensual recomputes the monthly report and stores it in the cache.
	RefrescarMensual(ctx context.Context) error
	// InvalidarMensual drops the cached monthly report so the next read
	// recomputes it.
	InvalidarMensual(ctx context.Context)
}

type reporteService struct {
	repo repository.RemisionRepository
	rdb  *redis.Client // nil disables caching
	loc  *time.Location
	now  func() time.Time
}

func NewReporteService(repo repository.RemisionRepository, rdb *redis.Client, loc *time.Location) ReporteService {
	if loc == nil {
		loc = time.UTC
	}
	return &reporteService{repo: repo, rdb: rdb, loc: loc, now: time.Now}
}

// ── Rangos ────────────────────────────────────────────────────────────────────

func (s *reporteService) ResolverRango(f dto.ReporteFilter) (time.Time, time.Time, error) {
	hoy := s.now().In(s.loc)
	periodo := f.Periodo
	if periodo == "" {
		periodo = "custom"
	}

	switch periodo {
	case "day":
		dia := time.Date(hoy.Year(), hoy.Month(), hoy.Day(), 0, 0, 0, 0, s.loc)
		if f.Fecha != "" {
			d, err := time.ParseInLocation("2006-01-02", f.Fecha, s.loc)
			if err != nil {
				return rangoInvalido("fecha", "formato esperado YYYY-MM-DD")
			}
			dia = d
		}
		return dia, finDe(dia.AddDate(0, 0, 1)), nil

	case "week":
		year, week := hoy.ISOWeek()
		if f.Semana != "" {
			y, w, err := parseSemanaISO(f.Semana)
			if err != nil {
				return rangoInvalido("semana", err.Error())
			}
			year, week = y, w
		}
		lunes := lunesSemanaISO(year, week, s.loc)
		if y, w := lunes.ISOWeek(); y != year || w != week {
			return rangoInvalido("semana", fmt.Sprintf("el año %d no tiene semana %d", year, week))
		}
		return lunes, finDe(lunes.AddDate(0, 0, 7)), nil

	case "month":
		mes := time.Date(hoy.Year(), hoy.Month(), 1, 0, 0, 0, 0, s.loc)
		if f.Mes != "" {
			m, err := time.ParseInLocation("2006-01", f.Mes, s.loc)
			if err != nil {
				return rangoInvalido("mes", "formato esperado YYYY-MM")
			}
			mes = m
		}
		return mes, finDe(mes.AddDate(0, 1, 0)), nil

	case "custom":
		if f.From == "" || f.To == "" {
			return rangoInvalido("from", "from y to son requeridos")
		}
		from, _, err := parseFechaHora(f.From, s.loc)
		if err != nil {
			return rangoInvalido("from", err.Error())
		}
		to, soloFecha, err := parseFechaHora(f.To, s.loc)
		if err != nil {
			return rangoInvalido("to", err.Error())
		}
		if soloFecha {
			to = finDe(to.AddDate(0, 0, 1))
		}
		if to.Before(from) {
			return rangoInvalido("to", "debe ser posterior a from")
		}
		return from, to, nil

	default:
		return rangoInvalido("periodo", "debe ser day, week, month o custom")
	}
}

func rangoInvalido(campo, msg string) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, errValidacion("Rango de fechas inválido", map[string]string{campo: msg})
}

// finDe returns the last representable instant before next (Postgres keeps microseconds).
func finDe(next time.Time) time.Time { return next.Add(-time.Microsecond) }

// parseSemanaISO parses "YYYY-Www".
func parseSemanaISO(v string) (int, int, error) {
	parts := strings.SplitN(v, "-W", 2)
	if len(parts) != 2 {
		return 0, 0, errors.New("formato esperado YYYY-Www")
	}
	year, err1 := strconv.Atoi(parts[0])
	week, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || week < 1 || week > 53 {
		return 0, 0, errors.New("formato esperado YYYY-Www")
	}
	return year, week, nil
}

// lunesSemanaISO returns the Monday of ISO week w of year y. Week 1 is the
// week containing January 4th.
func lunesSemanaISO(y, w int, loc *time.Location) time.Time {
	jan4 := time.Date(y, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	return jan4.AddDate(0, 0, -offset+(w-1)*7)
}

// parseFechaHora accepts YYYY-MM-DD or YYYY-MM-DDTHH:MM; soloFecha reports the former.
func parseFechaHora(v string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, true, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", v, loc); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, errors.New("formato esperado YYYY-MM-DD o YYYY-MM-DDTHH:MM")
}

// ── Resumen ───────────────────────────────────────────────────────────────────

func (s *reporteService) Resumen(ctx context.Context, f dto.ReporteFilter) (*dto.ResumenResponse, error) {
	from, to, err := s.ResolverRango(f)
	if err != nil {
		return nil, err
	}
	rems, err := s.repo.ListCreadasEntre(ctx, from, to)
	if err != nil {
		return nil, err
	}

	resumen := dto.ResumenRemisiones{TotalValorRemisiones: decimal.Zero, TicketPromedioRemision: decimal.Zero}
	for i := range rems {
		if rems[i].EsGarantia() {
			continue
		}
		resumen.TotalRemisiones++
		resumen.TotalEquipos += int64(len(rems[i].Registros))
		resumen.TotalValorRemisiones = resumen.TotalValorRemisiones.Add(rems[i].TotalValue)
	}
	resumen.TicketPromedioRemision = promedio(resumen.TotalValorRemisiones, resumen.TotalRemisiones)

	return &dto.ResumenResponse{
		From:       from.Format(time.RFC3339),
		To:         to.Format(time.RFC3339),
		Remisiones: resumen,
	}, nil
}

func promedio(total decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(n)).Round(2)
}

// ── Mensual ───────────────────────────────────────────────────────────────────

func (s *reporteService) Mensual(ctx context.Context) (*dto.MensualResponse, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, CacheKeyReporteMensual).Bytes()
		if err == nil {
			var cached dto.MensualResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("reporte mensual: cache no disponible")
		}
	}
	resp, err := s.calcularMensual(ctx)
	if err != nil {
		return nil, err
	}
	s.guardarCache(ctx, resp)
	return resp, nil
}

func (s *reporteService) RefrescarMensual(ctx context.Context) error {
	resp, err := s.calcularMensual(ctx)
	if err != nil {
		return err
	}
	s.guardarCache(ctx, resp)
	return nil
}

func (s *reporteService) InvalidarMensual(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, CacheKeyReporteMensual).Err(); err != nil {
		log.Warn().Err(err).Msg("reporte mensual: no se pudo invalidar la cache")
	}
}

func (s *reporteService) calcularMensual(ctx context.Context) (*dto.MensualResponse, error) {
	now := s.now().In(s.loc)
	inicio := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -(mesesReporteMensual - 1), 0)
	fin := finDe(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 1, 0))

	rems, err := s.repo.ListCreadasEntre(ctx, inicio, fin)
	if err != nil {
		return nil, err
	}

	meses := make([]dto.MesRemisiones, mesesReporteMensual)
	for i := range meses {
		m := inicio.AddDate(0, i, 0)
		meses[i] = dto.MesRemisiones{
			Year:               m.Year(),
			Month:              int(m.Month()),
			IngresosRemisiones: decimal.Zero,
			TicketPromedio:     decimal.Zero,
		}
	}
	for i := range rems {
		if rems[i].EsGarantia() {
			continue
		}
		idx := indiceMes(inicio, rems[i].CreatedAt.In(s.loc))
		if idx < 0 || idx >= len(meses) {
			continue
		}
		meses[idx].TotalRemisiones++
		meses[idx].IngresosRemisiones = meses[idx].IngresosRemisiones.Add(rems[i].TotalValue)
	}
	for i := range meses {
		meses[i].TicketPromedio = promedio(meses[i].IngresosRemisiones, meses[i].TotalRemisiones)
	}
	return &dto.MensualResponse{GeneradoEn: now.Format(time.RFC3339), Remisiones: meses}, nil
}

func indiceMes(inicio, t time.Time) int {
	return (t.Year()-inicio.Year())*12 + int(t.Month()) - int(inicio.Month())
}

func (s *reporteService) guardarCache(ctx context.Context, resp *dto.MensualResponse) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, CacheKeyReporteMensual, data, cacheTTLReporteMensual).Err(); err != nil {
		log.Warn().Err(err).Msg("reporte mensual: no se pudo guardar en cache")
	}
}
