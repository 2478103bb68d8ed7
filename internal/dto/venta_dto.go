package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	SucursalID      string `form:"sucursal_id"      validate:"omitempty,uuid"`
	Fecha           string `form:"fecha"`                 // YYYY-MM-DD; empty = all dates
	Estado          string `form:"estado,default=all"`    // borrador | activa | anulada | cancelada | all
	TipoComprobante string `form:"tipo_comprobante"`
	Page            int    `form:"page,default=1"   validate:"min=1"`
	Limit           int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DescuentoRequest is a line or header discount: a percentage of its base or
// a fixed amount.
type DescuentoRequest struct {
	Tipo  string          `json:"tipo"  validate:"required,oneof=porcentaje monto"`
	Valor decimal.Decimal `json:"valor" validate:"min=0"`
}

type ItemVentaRequest struct {
	ProductoID string          `json:"producto_id" validate:"required,uuid"`
	Cantidad   decimal.Decimal `json:"cantidad"    validate:"required,gt=0"`
	// PrecioUnitario overrides the catalog price (net of VAT)
	PrecioUnitario *decimal.Decimal  `json:"precio_unitario" validate:"omitempty,min=0"`
	Descuento      *DescuentoRequest `json:"descuento"       validate:"omitempty"`
}

type PagoRequest struct {
	MetodoPagoID string          `json:"metodo_pago_id" validate:"required,uuid"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
}

type CrearVentaRequest struct {
	SucursalID      string             `json:"sucursal_id"      validate:"required,uuid"`
	ClienteID       *string            `json:"cliente_id"       validate:"omitempty,uuid"`
	CajaID          *string            `json:"caja_id"          validate:"omitempty,uuid"`
	TipoComprobante string             `json:"tipo_comprobante" validate:"required,oneof=factura_a factura_b factura_c ticket presupuesto"`
	Items           []ItemVentaRequest `json:"items"            validate:"required,min=1,dive"`
	Descuento       *DescuentoRequest  `json:"descuento"        validate:"omitempty"`
	ImpuestoIIBB    decimal.Decimal    `json:"impuesto_iibb"    validate:"min=0"`
	ImpuestoInterno decimal.Decimal    `json:"impuesto_interno" validate:"min=0"`
	Pagos           []PagoRequest      `json:"pagos"            validate:"omitempty,dive"`
	// CreditoTienda is the amount of the customer's store credit to apply
	CreditoTienda decimal.Decimal `json:"credito_tienda" validate:"min=0"`
}

type AnularVentaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

type ConvertirPresupuestoRequest struct {
	TipoComprobante string  `json:"tipo_comprobante" validate:"required,oneof=factura_a factura_b factura_c ticket"`
	CajaID          *string `json:"caja_id"          validate:"omitempty,uuid"`
	MetodoPagoID    string  `json:"metodo_pago_id"   validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto,omitempty"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	DescuentoMonto decimal.Decimal `json:"descuento_monto"`
	AlicuotaIVA    decimal.Decimal `json:"alicuota_iva"`
	Neto           decimal.Decimal `json:"neto"`
	IVA            decimal.Decimal `json:"iva"`
	Total          decimal.Decimal `json:"total"`
}

type IvaDesgloseResponse struct {
	Alicuota      decimal.Decimal `json:"alicuota"`
	BaseImponible decimal.Decimal `json:"base_imponible"`
	Importe       decimal.Decimal `json:"importe"`
}

type PagoResponse struct {
	MetodoPagoID    string          `json:"metodo_pago_id"`
	Metodo          string          `json:"metodo,omitempty"`
	Monto           decimal.Decimal `json:"monto"`
	EsCreditoTienda bool            `json:"es_credito_tienda"`
}

type VentaResponse struct {
	ID                  string                `json:"id"`
	Numero              int64                 `json:"numero"`
	Fecha               string                `json:"fecha"`
	SucursalID          string                `json:"sucursal_id"`
	ClienteID           *string               `json:"cliente_id"`
	CajaID              *string               `json:"caja_id"`
	TipoComprobante     string                `json:"tipo_comprobante"`
	Estado              string                `json:"estado"`
	Items               []ItemVentaResponse   `json:"items"`
	Desglose            []IvaDesgloseResponse `json:"desglose_iva"`
	SubtotalNeto        decimal.Decimal       `json:"subtotal_neto"`
	TotalIVA            decimal.Decimal       `json:"total_iva"`
	Descuento           decimal.Decimal       `json:"descuento"`
	ImpuestoIIBB        decimal.Decimal       `json:"impuesto_iibb"`
	ImpuestoInterno     decimal.Decimal       `json:"impuesto_interno"`
	Total               decimal.Decimal       `json:"total"`
	Pagos               []PagoResponse        `json:"pagos"`
	EstadoPago          string                `json:"estado_pago"`
	MontoPagado         decimal.Decimal       `json:"monto_pagado"`
	CreditoAplicado     decimal.Decimal       `json:"credito_aplicado"`
	CAE                 *string               `json:"cae"`
	EstadoAutorizacion  *string               `json:"estado_autorizacion"`
	PresupuestoOrigenID *string               `json:"presupuesto_origen_id"`
	VentaConvertidaID   *string               `json:"venta_convertida_id"`
	AnuladaAt           *string               `json:"anulada_at"`
	MotivoAnulacion     *string               `json:"motivo_anulacion"`
	CreatedAt           string                `json:"created_at"`
}
