package handler

import (
	"net/http"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

type CuentasHandler struct{ svc service.CuentaCorrienteService }

func NewCuentasHandler(svc service.CuentaCorrienteService) *CuentasHandler {
	return &CuentasHandler{svc: svc}
}

// Obtener godoc
// @Summary Saldo y ultimos movimientos de una cuenta corriente
// @Tags cuentas-corrientes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de cuenta"
// @Success 200 {object} dto.CuentaCorrienteResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cuentas-corrientes/{id} [get]
func (h *CuentasHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarPago godoc
// @Summary Registra un pago a cuenta
// @Description Reduce el saldo y, si el medio mueve dinero en caja, registra el cobro en la caja abierta de la sucursal.
// @Tags cuentas-corrientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string                         true "ID de cuenta"
// @Param body body dto.PagoCuentaCorrienteRequest true "Pago"
// @Success 201 {object} dto.MovimientoCuentaCorrienteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas-corrientes/{id}/pagos [post]
func (h *CuentasHandler) RegistrarPago(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.PagoCuentaCorrienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ProcesarPago(c.Request.Context(), uid, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
