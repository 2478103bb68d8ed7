package dto

import "github.com/shopspring/decimal"

// ConsultaPreciosResponse is returned by the public price check endpoint (no auth required).
type ConsultaPreciosResponse struct {
	Nombre      string          `json:"nombre"`
	PrecioVenta decimal.Decimal `json:"precio_venta"`
	AlicuotaIVA decimal.Decimal `json:"alicuota_iva"`
	// PrecioFinal includes VAT
	PrecioFinal decimal.Decimal `json:"precio_final"`
}
