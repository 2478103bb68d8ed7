package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AjusteStockRequest applies a manual signed delta to one (product, branch).
type AjusteStockRequest struct {
	ProductoID string          `json:"producto_id" validate:"required,uuid"`
	SucursalID string          `json:"sucursal_id" validate:"required,uuid"`
	Delta      decimal.Decimal `json:"delta"       validate:"required"`
	Motivo     string          `json:"motivo"      validate:"required,min=3"`
}

// ─── Movimiento Stock ─────────────────────────────────────────────────────────

type MovimientoStockResponse struct {
	ID                 string          `json:"id"`
	ProductoID         string          `json:"producto_id"`
	ProductoNombre     string          `json:"producto_nombre,omitempty"`
	SucursalID         string          `json:"sucursal_id"`
	Tipo               string          `json:"tipo"`
	Cantidad           decimal.Decimal `json:"cantidad"`
	StockAnterior      decimal.Decimal `json:"stock_anterior"`
	StockResultante    decimal.Decimal `json:"stock_resultante"`
	PrecioCosto        decimal.Decimal `json:"precio_costo"`
	PrecioVenta        decimal.Decimal `json:"precio_venta"`
	ReferenciaTipo     string          `json:"referencia_tipo,omitempty"`
	ReferenciaID       *string         `json:"referencia_id,omitempty"`
	MovimientoOrigenID *string         `json:"movimiento_origen_id,omitempty"`
	Motivo             string          `json:"motivo"`
	CreatedAt          string          `json:"created_at"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

type MovimientoStockFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"`
	Page       int    `form:"page,default=1"    validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}
