package router

import (
	"time"

	"medicalmuneras/internal/config"
	"medicalmuneras/internal/handler"
	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/middleware"
	"medicalmuneras/internal/model"
	"medicalmuneras/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-built services and infrastructure the HTTP layer needs.
// The composition root (cmd/server) builds them so workers share the same instances.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	SMTPCB    *infra.CircuitBreaker
	Auth      service.AuthService
	Remisions service.RemisionService
	Reportes  service.ReporteService
	// Stop, when set, ends background housekeeping (rate limiter purge).
	Stop <-chan struct{}
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	loginLimiter := middleware.NewRateLimiter(20, time.Minute, "Demasiados intentos de login. Intente en 1 minuto.")
	apiLimiter := middleware.NewRateLimiter(1000, time.Minute, "Demasiadas solicitudes. Intente nuevamente en un momento.")

	if deps.Stop != nil {
		go loginLimiter.RunPurge(5*time.Minute, deps.Stop)
		go apiLimiter.RunPurge(5*time.Minute, deps.Stop)
	}

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(deps.Auth)
	remisionesH := handler.NewRemisionesHandler(deps.Remisions)
	reportesH := handler.NewReportesHandler(deps.Reportes)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.SMTPCB))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		todos := middleware.RequireRole(model.RolAdministrador, model.RolRecepcion, model.RolTecnico)
		recepcion := middleware.RequireRole(model.RolAdministrador, model.RolRecepcion)

		rem := v1.Group("/remissions")
		{
			rem.POST("", recepcion, remisionesH.Crear)
			rem.GET("/:id", todos, remisionesH.Obtener)
			rem.GET("/:id/comprobante", recepcion, remisionesH.DescargarComprobante)

			// Technicians fill in the diagnosis; reception may correct values.
			rem.GET("/:id/technical-records", todos, remisionesH.ListarRegistros)
			rem.POST("/:id/technical-records", todos, remisionesH.AgregarRegistro)
			rem.PUT("/:id/technical-records/:recordId", todos, remisionesH.ActualizarRegistro)
			rem.PUT("/:id/technical-records/:recordId/drop", recepcion, remisionesH.DarDeBajaRegistro)

			rem.PUT("/deliver/:id", recepcion, remisionesH.Entregar)
			rem.PUT("/:id/dar-baja", recepcion, remisionesH.DarDeBaja)
			rem.PUT("/:id/garantia", recepcion, remisionesH.IngresarGarantia)
			rem.PUT("/:id/garantia/sacar", recepcion, remisionesH.SacarGarantia)
		}

		rep := v1.Group("/reports/remissions", middleware.RequireRole(model.RolAdministrador))
		{
			rep.GET("/summary", reportesH.Resumen)
			rep.GET("/monthly", reportesH.Mensual)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
