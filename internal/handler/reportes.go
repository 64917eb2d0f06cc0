package handler

import (
	"net/http"

	"medicalmuneras/internal/apierror"
	"medicalmuneras/internal/dto"
	"medicalmuneras/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// Resumen godoc
// @Summary      Volumen de remisiones en un rango
// @Tags         reportes
// @Produce      json
// @Security     BearerAuth
// @Param        periodo query string false "day | week | month | custom" default(custom)
// @Param        fecha   query string false "YYYY-MM-DD (day)"
// @Param        semana  query string false "YYYY-Www (week)"
// @Param        mes     query string false "YYYY-MM (month)"
// @Param        from    query string false "YYYY-MM-DD[THH:MM] (custom)"
// @Param        to      query string false "YYYY-MM-DD[THH:MM] (custom)"
// @Success      200  {object} dto.ResumenResponse
// @Failure      400  {object} apierror.ValidationError
// @Router       /v1/reports/remissions/summary [get]
func (h *ReportesHandler) Resumen(c *gin.Context) {
	var f dto.ReporteFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewKind("validation", "Parametros invalidos: "+err.Error()))
		return
	}
	if !validateStruct(c, &f) {
		return
	}
	resp, err := h.svc.Resumen(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Mensual godoc
// @Summary      Remisiones de los últimos 12 meses
// @Tags         reportes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.MensualResponse
// @Router       /v1/reports/remissions/monthly [get]
func (h *ReportesHandler) Mensual(c *gin.Context) {
	resp, err := h.svc.Mensual(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
