package handler

import (
	"net/http"
	"path/filepath"

	"medicalmuneras/internal/dto"
	"medicalmuneras/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

type RemisionesHandler struct{ svc service.RemisionService }

func NewRemisionesHandler(svc service.RemisionService) *RemisionesHandler {
	return &RemisionesHandler{svc: svc}
}

// Crear godoc
// @Summary      Crear remisión
// @Description  Registra la remisión y un registro técnico por equipo. El total se calcula en el servidor.
// @Tags         remisiones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "Clave para reintentos seguros"
// @Param        body body dto.CrearRemisionRequest true "Remisión"
// @Success      201  {object} dto.RemisionResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions [post]
func (h *RemisionesHandler) Crear(c *gin.Context) {
	var req dto.CrearRemisionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), currentUser(c), c.GetHeader(IdempotencyKeyHeader), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp.Replayed {
		c.Header(IdempotentReplayedHeader, "true")
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Consultar remisión
// @Tags         remisiones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "ID de la remisión (o {id}-G)"
// @Success      200  {object} dto.RemisionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/remissions/{id} [get]
func (h *RemisionesHandler) Obtener(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarRegistros godoc
// @Summary      Listar registros técnicos
// @Tags         remisiones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "ID de la remisión"
// @Success      200  {array}  dto.RegistroTecnicoResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/remissions/{id}/technical-records [get]
func (h *RemisionesHandler) ListarRegistros(c *gin.Context) {
	resp, err := h.svc.ListarRegistros(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarRegistro godoc
// @Summary      Agregar registro técnico
// @Tags         remisiones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "ID de la remisión"
// @Param        body body     dto.RegistroTecnicoRequest true "Registro"
// @Success      201  {object} dto.RegistroTecnicoResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      403  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/remissions/{id}/technical-records [post]
func (h *RemisionesHandler) AgregarRegistro(c *gin.Context) {
	var req dto.RegistroTecnicoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarRegistro(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ActualizarRegistro godoc
// @Summary      Actualizar registro técnico
// @Tags         remisiones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string true "ID de la remisión"
// @Param        recordId path string true "ID del registro"
// @Param        body     body dto.RegistroTecnicoRequest true "Registro"
// @Success      200  {object} dto.RegistroTecnicoResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      403  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/remissions/{id}/technical-records/{recordId} [put]
func (h *RemisionesHandler) ActualizarRegistro(c *gin.Context) {
	var req dto.RegistroTecnicoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarRegistro(c.Request.Context(), c.Param("id"), c.Param("recordId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DarDeBajaRegistro godoc
// @Summary      Dar de baja un equipo
// @Description  Retira un equipo del total; si se cobra revisión, su valor se reemplaza por la tarifa.
// @Tags         remisiones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string true "ID de la remisión"
// @Param        recordId path string true "ID del registro"
// @Param        body     body dto.DarDeBajaRequest true "Cobro"
// @Success      200  {object} dto.RemisionResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions/{id}/technical-records/{recordId}/drop [put]
func (h *RemisionesHandler) DarDeBajaRegistro(c *gin.Context) {
	var req dto.DarDeBajaRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.DarDeBajaRegistro(c.Request.Context(), c.Param("id"), c.Param("recordId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Entregar godoc
// @Summary      Entregar remisión
// @Description  Cierra la remisión. metodoSaldo es obligatorio si queda saldo.
// @Tags         remisiones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de la remisión"
// @Param        body body dto.EntregarRequest false "Método de pago del saldo"
// @Success      200  {object} dto.RemisionResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions/deliver/{id} [put]
func (h *RemisionesHandler) Entregar(c *gin.Context) {
	var req dto.EntregarRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.Entregar(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DarDeBaja godoc
// @Summary      Dar de baja la remisión
// @Description  Cierre terminal. Con cobrarRevision la tarifa pasa a ser el nuevo total.
// @Tags         remisiones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de la remisión"
// @Param        body body dto.DarDeBajaRequest true "Cobro"
// @Success      200  {object} dto.RemisionResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions/{id}/dar-baja [put]
func (h *RemisionesHandler) DarDeBaja(c *gin.Context) {
	var req dto.DarDeBajaRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.DarDeBaja(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// IngresarGarantia godoc
// @Summary      Ingresar garantía
// @Description  Crea la remisión {id}-G para una remisión ya entregada.
// @Tags         remisiones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de la remisión base"
// @Success      200  {object} dto.RemisionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions/{id}/garantia [put]
func (h *RemisionesHandler) IngresarGarantia(c *gin.Context) {
	resp, err := h.svc.IngresarGarantia(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SacarGarantia godoc
// @Summary      Sacar garantía
// @Tags         remisiones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ID de la remisión base o de la garantía"
// @Success      200  {object} dto.RemisionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions/{id}/garantia/sacar [put]
func (h *RemisionesHandler) SacarGarantia(c *gin.Context) {
	resp, err := h.svc.SacarGarantia(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DescargarComprobante godoc
// @Summary      Descargar comprobante de entrega
// @Tags         remisiones
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path string true "ID de la remisión"
// @Success      200  {file} file
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/remissions/{id}/comprobante [get]
func (h *RemisionesHandler) DescargarComprobante(c *gin.Context) {
	path, err := h.svc.Comprobante(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
