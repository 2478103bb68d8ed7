package handler

import (
	"net/http"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

type PresupuestosHandler struct{ svc service.PresupuestoService }

func NewPresupuestosHandler(svc service.PresupuestoService) *PresupuestosHandler {
	return &PresupuestosHandler{svc: svc}
}

// Convertir godoc
// @Summary      Convertir un presupuesto en venta
// @Description  Crea una venta activa con los precios vigentes del catalogo. El presupuesto queda marcado como convertido.
// @Tags         presupuestos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                          true "UUID del presupuesto"
// @Param        body body dto.ConvertirPresupuestoRequest true "Datos de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/presupuestos/{id}/convertir [post]
func (h *PresupuestosHandler) Convertir(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ConvertirPresupuestoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uid, ok := usuarioID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Convertir(c.Request.Context(), uid, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cancelar godoc
// @Summary      Cancelar un presupuesto
// @Tags         presupuestos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del presupuesto"
// @Success      200 {object} dto.VentaResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/presupuestos/{id}/cancelar [post]
func (h *PresupuestosHandler) Cancelar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
