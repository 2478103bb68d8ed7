package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const precioCachePrefix = "precio:"

var cien = decimal.NewFromInt(100)

// ConsultaPreciosHandler serves the public price check. Read-only: it never
// touches stock or any ledger.
type ConsultaPreciosHandler struct {
	catalogo repository.CatalogoRepository
	rdb      *redis.Client
	ttl      time.Duration
}

func NewConsultaPreciosHandler(catalogo repository.CatalogoRepository, rdb *redis.Client, ttl time.Duration) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{catalogo: catalogo, rdb: rdb, ttl: ttl}
}

// GetPrecioPorCodigo godoc
// @Summary Consulta de precio por codigo de barras (sin autenticacion)
// @Tags precio
// @Produce json
// @Param codigo path string true "Codigo de barras"
// @Success 200 {object} dto.ConsultaPreciosResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{codigo} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorCodigo(c *gin.Context) {
	codigo := c.Param("codigo")
	ctx := c.Request.Context()
	cacheKey := precioCachePrefix + codigo

	if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var resp dto.ConsultaPreciosResponse
		if json.Unmarshal(cached, &resp) == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	producto, err := h.catalogo.FindProductoByBarcode(ctx, codigo)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.FromError(apierror.NotFound("producto", codigo)))
		return
	}

	resp := dto.ConsultaPreciosResponse{
		Nombre:      producto.Nombre,
		PrecioVenta: producto.PrecioVenta,
		AlicuotaIVA: producto.AlicuotaIVA,
		PrecioFinal: producto.PrecioVenta.Mul(cien.Add(producto.AlicuotaIVA)).Div(cien).Round(2),
	}

	// best effort; a cache write failure never fails the lookup
	if b, err := json.Marshal(resp); err == nil {
		_ = h.rdb.Set(context.Background(), cacheKey, b, h.ttl).Err()
	}
	c.JSON(http.StatusOK, resp)
}
