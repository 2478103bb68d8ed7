package handler

import (
	"net/http"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// Ajustar godoc
// @Summary Ajuste manual de stock
// @Description Delta positivo incrementa, negativo decrementa. Respeta la politica de stock negativo.
// @Tags stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AjusteStockRequest true "Ajuste"
// @Success 201 {object} dto.MovimientoStockResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/stock/ajuste [post]
func (h *StockHandler) Ajustar(c *gin.Context) {
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Ajustar(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarMovimientos godoc
// @Summary Historial de movimientos de stock
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param producto_id query string false "Producto"
// @Param sucursal_id query string false "Sucursal"
// @Param tipo        query string false "venta | anulacion_venta | ajuste_manual"
// @Param page        query int    false "Pagina"
// @Param limit       query int    false "Tamano de pagina"
// @Success 200 {object} dto.MovimientoStockListResponse
// @Router /v1/stock/movimientos [get]
func (h *StockHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoStockFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
