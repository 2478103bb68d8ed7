package dto

import "github.com/shopspring/decimal"

type FacturacionResponse struct {
	ID             string          `json:"id"`
	VentaID        string          `json:"venta_id"`
	Tipo           string          `json:"tipo"`
	Numero         *int64          `json:"numero"`
	PuntoDeVenta   int             `json:"punto_de_venta"`
	CAE            *string         `json:"cae"`
	CAEVencimiento *string         `json:"cae_vencimiento"`
	MontoNeto      decimal.Decimal `json:"monto_neto"`
	MontoIVA       decimal.Decimal `json:"monto_iva"`
	MontoTotal     decimal.Decimal `json:"monto_total"`
	Estado         string          `json:"estado"`
	RetryCount     int             `json:"retry_count"`
	LastError      *string         `json:"last_error"`
	CreatedAt      string          `json:"created_at"`
}
