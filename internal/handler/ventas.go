package handler

import (
	"net/http"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct {
	ventas      service.VentaService
	anulaciones service.AnulacionService
	facturacion service.FacturacionService
}

func NewVentasHandler(ventas service.VentaService, anulaciones service.AnulacionService, facturacion service.FacturacionService) *VentasHandler {
	return &VentasHandler{ventas: ventas, anulaciones: anulaciones, facturacion: facturacion}
}

// Crear godoc
// @Summary      Registrar una venta o un presupuesto
// @Description  Una venta activa descuenta stock, registra los pagos en caja y en cuenta corriente en una sola transaccion. Un presupuesto queda en borrador sin efectos.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) Crear(c *gin.Context) {
	var req dto.CrearVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.ventas.CrearVenta(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Obtener una venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ventas.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar ventas
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        sucursal_id      query string false "Sucursal"
// @Param        fecha            query string false "YYYY-MM-DD"
// @Param        estado           query string false "borrador | activa | anulada | cancelada | all"
// @Param        tipo_comprobante query string false "Tipo de comprobante"
// @Param        page             query int    false "Pagina"
// @Param        limit            query int    false "Tamano de pagina"
// @Success      200 {object} dto.VentaListResponse
// @Router       /v1/ventas [get]
func (h *VentasHandler) Listar(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.ventas.ListVentas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular godoc
// @Summary      Anular una venta
// @Description  Revierte stock, caja y cuenta corriente con movimientos compensatorios y marca la venta como anulada.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID de la venta"
// @Param        body body dto.AnularVentaRequest true "Motivo"
// @Success      200  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/ventas/{id}/anular [post]
func (h *VentasHandler) Anular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.anulaciones.Anular(c.Request.Context(), uid, id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Autorizar godoc
// @Summary      Reintentar la autorizacion fiscal de una venta
// @Description  La venta ya esta confirmada; un fallo no la revierte y queda programado para reintento.
// @Tags         facturacion
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {object} dto.FacturacionResponse
// @Failure      502 {object} apierror.APIError
// @Router       /v1/ventas/{id}/autorizar [post]
func (h *VentasHandler) Autorizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.facturacion.Autorizar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
