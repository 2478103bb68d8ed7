package dto

import "github.com/shopspring/decimal"

type PagoCuentaCorrienteRequest struct {
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	MetodoPagoID string          `json:"metodo_pago_id" validate:"required,uuid"`
	SucursalID   string          `json:"sucursal_id"    validate:"required,uuid"`
	Descripcion  string          `json:"descripcion"`
}

type MovimientoCuentaCorrienteResponse struct {
	ID               string          `json:"id"`
	Monto            decimal.Decimal `json:"monto"`
	Descripcion      string          `json:"descripcion"`
	ReferenciaTipo   string          `json:"referencia_tipo,omitempty"`
	ReferenciaID     *string         `json:"referencia_id,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	MovimientoCajaID *string         `json:"movimiento_caja_id,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

type CuentaCorrienteResponse struct {
	ID            string          `json:"id"`
	TitularTipo   string          `json:"titular_tipo"`
	TitularID     string          `json:"titular_id"`
	LimiteCredito decimal.Decimal `json:"limite_credito"`
	// Saldo > 0: the holder owes; Saldo < 0: store credit in the holder's favour
	Saldo              decimal.Decimal                     `json:"saldo"`
	CreditoDisponible  decimal.Decimal                     `json:"credito_disponible"`
	UltimosMovimientos []MovimientoCuentaCorrienteResponse `json:"ultimos_movimientos"`
}
