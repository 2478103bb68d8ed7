package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	SucursalID   string          `json:"sucursal_id"   validate:"required,uuid"`
	MontoInicial decimal.Decimal `json:"monto_inicial" validate:"min=0"`
}

type CerrarCajaRequest struct {
	CajaID         string          `json:"caja_id"         validate:"required,uuid"`
	MontoDeclarado decimal.Decimal `json:"monto_declarado" validate:"min=0"`
	Observaciones  *string         `json:"observaciones"`
}

type MovimientoManualRequest struct {
	CajaID       string          `json:"caja_id"        validate:"required,uuid"`
	Tipo         string          `json:"tipo"           validate:"required,oneof=ingreso_manual egreso_manual gasto pago_proveedor"`
	MetodoPagoID string          `json:"metodo_pago_id" validate:"required,uuid"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Descripcion  string          `json:"descripcion"    validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DesvioResponse struct {
	Monto         decimal.Decimal `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

type MovimientoCajaResponse struct {
	ID                 string          `json:"id"`
	TipoMovimiento     string          `json:"tipo_movimiento"`
	Direccion          string          `json:"direccion"`
	MetodoPagoID       *string         `json:"metodo_pago_id"`
	Monto              decimal.Decimal `json:"monto"`
	AfectaSaldo        bool            `json:"afecta_saldo"`
	Descripcion        string          `json:"descripcion"`
	ReferenciaTipo     string          `json:"referencia_tipo,omitempty"`
	ReferenciaID       *string         `json:"referencia_id,omitempty"`
	Referencia         string          `json:"referencia,omitempty"`
	MovimientoOrigenID *string         `json:"movimiento_origen_id,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

type CajaResponse struct {
	ID                    string                     `json:"id"`
	SucursalID            string                     `json:"sucursal_id"`
	UsuarioID             string                     `json:"usuario_id"`
	Estado                string                     `json:"estado"`
	MontoInicial          decimal.Decimal            `json:"monto_inicial"`
	SaldoEfectivoEsperado decimal.Decimal            `json:"saldo_efectivo_esperado"`
	TotalesPorMetodo      map[string]decimal.Decimal `json:"totales_por_metodo"`
	MontoFinal            *decimal.Decimal           `json:"monto_final"`
	Desvio                *DesvioResponse            `json:"desvio"`
	Observaciones         *string                    `json:"observaciones"`
	AbiertaAt             string                     `json:"abierta_at"`
	CerradaAt             *string                    `json:"cerrada_at"`
	Movimientos           []MovimientoCajaResponse   `json:"movimientos,omitempty"`
}
