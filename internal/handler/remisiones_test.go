package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medicalmuneras/internal/apierror"
	"medicalmuneras/internal/dto"
	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/middleware"
	"medicalmuneras/internal/model"
	"medicalmuneras/internal/repository/memory"
	"medicalmuneras/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Helpers ───────────────────────────────────────────────────────────────────

const testUserID = "0e7c0f6e-2b4f-4d55-9a57-2f7f5f1c9a10"

func asUser(rol string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{UserID: testUserID, Username: "test", Rol: rol})
		c.Next()
	}
}

func remisionesRouter(t *testing.T, svc service.RemisionService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(asUser(model.RolRecepcion))

	h := NewRemisionesHandler(svc)
	r.POST("/v1/remissions", h.Crear)
	r.GET("/v1/remissions/:id", h.Obtener)
	r.GET("/v1/remissions/:id/comprobante", h.DescargarComprobante)
	r.GET("/v1/remissions/:id/technical-records", h.ListarRegistros)
	r.POST("/v1/remissions/:id/technical-records", h.AgregarRegistro)
	r.PUT("/v1/remissions/:id/technical-records/:recordId", h.ActualizarRegistro)
	r.PUT("/v1/remissions/:id/technical-records/:recordId/drop", h.DarDeBajaRegistro)
	r.PUT("/v1/remissions/deliver/:id", h.Entregar)
	r.PUT("/v1/remissions/:id/dar-baja", h.DarDeBaja)
	r.PUT("/v1/remissions/:id/garantia", h.IngresarGarantia)
	r.PUT("/v1/remissions/:id/garantia/sacar", h.SacarGarantia)
	return r
}

func newRemisionService(t *testing.T) service.RemisionService {
	t.Helper()
	return service.NewRemisionService(memory.NewRemisionRepo(), infra.NewMemoryLocker(time.Second), nil, nil, service.ComprobanteConfig{
		StoragePath:  t.TempDir(),
		BusinessName: "Medical Muñeras",
		Location:     time.UTC,
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func r100() map[string]any {
	return map[string]any{
		"remissionId":   "R100",
		"equipos":       []map[string]any{{"equipo": "Glucometro", "valor": "50000"}},
		"depositValue":  "20000",
		"depositMethod": "Efectivo",
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCrear_Created(t *testing.T) {
	r := remisionesRouter(t, newRemisionService(t))

	w := doJSON(t, r, http.MethodPost, "/v1/remissions", r100())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get(IdempotentReplayedHeader))

	resp := decode[dto.RemisionResponse](t, w)
	assert.Equal(t, "R100", resp.RemissionID)
	assert.Equal(t, "50000", resp.TotalValue.String())
	assert.Equal(t, "30000", resp.Saldo.String())
	assert.Len(t, resp.TechnicalRecords, 1)
}

func TestCrear_IdempotentReplayHeader(t *testing.T) {
	r := remisionesRouter(t, newRemisionService(t))

	w := doJSON(t, r, http.MethodPost, "/v1/remissions", r100(), IdempotencyKeyHeader, "abc-123")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/remissions", r100(), IdempotencyKeyHeader, "abc-123")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(IdempotentReplayedHeader))

	w = doJSON(t, r, http.MethodPost, "/v1/remissions", r100())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[apierror.APIError](t, w).Kind)
}

func TestCrear_BadRequests(t *testing.T) {
	r := remisionesRouter(t, newRemisionService(t))

	req := httptest.NewRequest(http.MethodPost, "/v1/remissions", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := r100()
	delete(body, "depositMethod")
	w = doJSON(t, r, http.MethodPost, "/v1/remissions", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	verr := decode[apierror.ValidationError](t, w)
	assert.Contains(t, verr.Fields, "depositMethod")

	body = r100()
	body["remissionId"] = "R100-G"
	w = doJSON(t, r, http.MethodPost, "/v1/remissions", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[apierror.ValidationError](t, w).Fields, "remissionId")
}

func TestObtener_NotFound(t *testing.T) {
	r := remisionesRouter(t, newRemisionService(t))

	w := doJSON(t, r, http.MethodGet, "/v1/remissions/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[apierror.APIError](t, w).Kind)
}

func TestLifecycle_StatusMapping(t *testing.T) {
	r := remisionesRouter(t, newRemisionService(t))
	w := doJSON(t, r, http.MethodPost, "/v1/remissions", r100())
	require.Equal(t, http.StatusCreated, w.Code)
	regID := decode[dto.RemisionResponse](t, w).TechnicalRecords[0].ID

	// Garantía before delivery
	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100/garantia", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Balance pending and no method
	w = doJSON(t, r, http.MethodPut, "/v1/remissions/deliver/R100", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/deliver/R100", map[string]any{"metodoSaldo": "Tarjeta"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.EstadoEntregada, decode[dto.RemisionResponse](t, w).Estado)

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/deliver/R100", map[string]any{"metodoSaldo": "Tarjeta"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Records are locked once delivered
	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100/technical-records/"+regID,
		map[string]any{"equipo": "Glucometro", "valor": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode[apierror.APIError](t, w).Kind)

	w = doJSON(t, r, http.MethodGet, "/v1/remissions/R100/comprobante", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), infra.ComprobanteFileName("R100"))

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100/garantia", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "R100-G", decode[dto.RemisionResponse](t, w).RemissionID)

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100/garantia", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100-G/garantia/sacar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[dto.RemisionResponse](t, w).FechaSalida)
}

func TestRegistros_AddAndDrop(t *testing.T) {
	r := remisionesRouter(t, newRemisionService(t))
	body := r100()
	body["depositValue"] = "0"
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/v1/remissions", body).Code)

	w := doJSON(t, r, http.MethodPost, "/v1/remissions/R100/technical-records",
		map[string]any{"equipo": "Oximetro", "valor": "15000", "pilas": "OK"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decode[dto.RegistroTecnicoResponse](t, w)

	w = doJSON(t, r, http.MethodPost, "/v1/remissions/R100/technical-records",
		map[string]any{"equipo": "Oximetro", "valor": "1", "pilas": "Litio"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100/technical-records/"+added.ID+"/drop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "50000", decode[dto.RemisionResponse](t, w).TotalValue.String())

	w = doJSON(t, r, http.MethodGet, "/v1/remissions/R100/technical-records", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.RegistroTecnicoResponse](t, w), 2)

	w = doJSON(t, r, http.MethodPut, "/v1/remissions/R100/dar-baja",
		map[string]any{"cobrarRevision": true, "revisionValue": "5000"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.RemisionResponse](t, w)
	assert.Equal(t, model.EstadoDadaDeBaja, resp.Estado)
	assert.Equal(t, "5000", resp.TotalValue.String())
}

// stubRemisionService fails every call with a non-service error.
type stubRemisionService struct{ service.RemisionService }

func (stubRemisionService) Obtener(context.Context, string) (*dto.RemisionResponse, error) {
	return nil, errors.New("connection reset by peer")
}

func TestUnexpectedError_Is500WithoutDetails(t *testing.T) {
	r := remisionesRouter(t, stubRemisionService{})

	w := doJSON(t, r, http.MethodGet, "/v1/remissions/R1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}
