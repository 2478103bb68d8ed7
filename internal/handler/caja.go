package handler

import (
	"net/http"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre la caja de una sucursal
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.CajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la caja con el monto declarado y clasifica el desvio
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Declaracion de cierre"
// @Success 200 {object} dto.CajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o egreso manual en caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoManualRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerReporte godoc
// @Summary Reporte de una caja con sus movimientos
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de caja"
// @Success 200 {object} dto.CajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id} [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerReporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerAbierta godoc
// @Summary Caja abierta de una sucursal
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param sucursal_id path string true "ID de sucursal"
// @Success 200 {object} dto.CajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/sucursal/{sucursal_id}/abierta [get]
func (h *CajaHandler) ObtenerAbierta(c *gin.Context) {
	sucursalID, ok := paramUUID(c, "sucursal_id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerAbierta(c.Request.Context(), sucursalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recalcular godoc
// @Summary Recalcula los agregados de una caja desde sus movimientos
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de caja"
// @Success 200 {object} dto.CajaResponse
// @Router /v1/caja/{id}/recalcular [post]
func (h *CajaHandler) Recalcular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Recalcular(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
