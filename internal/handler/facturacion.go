package handler

import (
	"net/http"
	"strconv"

	"github.com/resguarit/pos-system-sub006/internal/service"
	"github.com/resguarit/pos-system-sub006/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type FacturacionHandler struct {
	svc service.FacturacionService
	rdb *redis.Client
}

func NewFacturacionHandler(svc service.FacturacionService, rdb *redis.Client) *FacturacionHandler {
	return &FacturacionHandler{svc: svc, rdb: rdb}
}

// ObtenerComprobante godoc
// @Summary Estado de la autorizacion fiscal de una venta
// @Tags facturacion
// @Produce json
// @Security BearerAuth
// @Param venta_id path string true "UUID de la venta"
// @Success 200 {object} dto.FacturacionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/facturacion/{venta_id} [get]
func (h *FacturacionHandler) ObtenerComprobante(c *gin.Context) {
	ventaID, ok := paramUUID(c, "venta_id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerComprobante(c.Request.Context(), ventaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarDLQ godoc
// @Summary Autorizaciones agotadas en la dead letter queue
// @Tags facturacion
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximo de entradas (50 por defecto)"
// @Success 200 {array} worker.DLQEntry
// @Router /v1/facturacion/dlq [get]
func (h *FacturacionHandler) ListarDLQ(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	entries, err := worker.ListDLQ(c.Request.Context(), h.rdb, worker.QueueAutorizacion, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "total": len(entries)})
}
