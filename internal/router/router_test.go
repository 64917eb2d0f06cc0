package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medicalmuneras/internal/config"
	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/model"
	"medicalmuneras/internal/repository/memory"
	"medicalmuneras/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory wiring of the full router: auth, roles and routing without Postgres or Redis.

type memEnv struct {
	engine *gin.Engine
	tokens map[string]string // rol -> access token
}

func newMemEnv(t *testing.T) *memEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", JWTSecret: "router-test-secret", JWTExpirationHours: 1, JWTRefreshHours: 2}

	remisiones := memory.NewRemisionRepo()
	reportes := service.NewReporteService(remisiones, nil, time.UTC)
	auth := service.NewAuthService(memory.NewUsuarioRepo(), cfg)
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })

	engine := New(cfg, Deps{
		Auth: auth,
		Remisions: service.NewRemisionService(remisiones, infra.NewMemoryLocker(time.Second), nil, reportes, service.ComprobanteConfig{
			StoragePath: t.TempDir(), BusinessName: "Medical Muñeras", Location: time.UTC,
		}),
		Reportes: reportes,
		Stop:     stop,
	})

	env := &memEnv{engine: engine, tokens: map[string]string{}}
	for _, rol := range []string{model.RolAdministrador, model.RolRecepcion, model.RolTecnico} {
		_, err := auth.SembrarUsuario(context.Background(), rol+"1", rol, "clave123", rol)
		require.NoError(t, err)

		w := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"username": rol + "1", "password": "clave123"}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var login struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
		env.tokens[rol] = login.AccessToken
	}
	return env
}

func (e *memEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func remisionBody(id string) map[string]any {
	return map[string]any{
		"remissionId":   id,
		"equipos":       []map[string]any{{"equipo": "Nebulizador", "valor": "30000"}},
		"depositValue":  "0",
		"depositMethod": "Transferencia",
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	env := newMemEnv(t)

	w := env.do(t, http.MethodGet, "/v1/remissions/R1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Roles(t *testing.T) {
	env := newMemEnv(t)
	tecnico := env.tokens[model.RolTecnico]
	recepcion := env.tokens[model.RolRecepcion]
	admin := env.tokens[model.RolAdministrador]

	w := env.do(t, http.MethodPost, "/v1/remissions", remisionBody("R1"), tecnico)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/remissions", remisionBody("R1"), recepcion)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Technicians read and diagnose.
	w = env.do(t, http.MethodGet, "/v1/remissions/R1", nil, tecnico)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/v1/remissions/R1/technical-records",
		map[string]any{"equipo": "Termometro", "valor": "5000", "revision": "Ok"}, tecnico)
	assert.Equal(t, http.StatusCreated, w.Code)

	// but do not close remissions.
	w = env.do(t, http.MethodPut, "/v1/remissions/deliver/R1", map[string]any{"metodoSaldo": "Efectivo"}, tecnico)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPut, "/v1/remissions/deliver/R1", map[string]any{"metodoSaldo": "Efectivo"}, recepcion)
	assert.Equal(t, http.StatusOK, w.Code)

	// Reports are admin only.
	w = env.do(t, http.MethodGet, "/v1/reports/remissions/summary?periodo=day", nil, recepcion)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodGet, "/v1/reports/remissions/summary?periodo=day", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var resumen struct {
		Remisiones struct {
			TotalRemisiones int64 `json:"totalRemisiones"`
			TotalEquipos    int64 `json:"totalEquipos"`
		} `json:"remisiones"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resumen))
	assert.Equal(t, int64(1), resumen.Remisiones.TotalRemisiones)
	assert.Equal(t, int64(2), resumen.Remisiones.TotalEquipos)

	w = env.do(t, http.MethodGet, "/v1/reports/remissions/monthly", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ReportValidation(t *testing.T) {
	env := newMemEnv(t)
	admin := env.tokens[model.RolAdministrador]

	w := env.do(t, http.MethodGet, "/v1/reports/remissions/summary?periodo=year", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/reports/remissions/summary?from=2026-03-02&to=2026-03-01", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RefreshTokenCannotCallAPI(t *testing.T) {
	env := newMemEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"username": "recepcion1", "password": "clave123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = env.do(t, http.MethodGet, "/v1/remissions/R1", nil, login.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_HealthWithoutBackends(t *testing.T) {
	env := newMemEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"smtp":"disabled"`)
}
