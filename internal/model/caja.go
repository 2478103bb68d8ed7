package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Estado de caja.
const (
	CajaAbierta = "abierta"
	CajaCerrada = "cerrada"
)

// Direccion de un movimiento de caja.
const (
	Entrada = "entrada"
	Salida  = "salida"
)

// Códigos de tipo de movimiento de caja sembrados por la migración.
const (
	TipoMovVenta                = "venta"
	TipoMovAnulacionVenta       = "anulacion_venta"
	TipoMovIngresoManual        = "ingreso_manual"
	TipoMovEgresoManual         = "egreso_manual"
	TipoMovGasto                = "gasto"
	TipoMovCobroCuentaCorriente = "cobro_cuenta_corriente"
	TipoMovPagoProveedor        = "pago_proveedor"
)

// Caja is a per-branch cash register. SaldoEfectivoEsperado and
// TotalesPorMetodo are caches derived from the register's movements and are
// rewritten after every posting; they are never a source of truth.
type Caja struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SucursalID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	UsuarioID    uuid.UUID        `gorm:"type:uuid;not null"`
	AbiertaAt    time.Time        `gorm:"not null"`
	CerradaAt    *time.Time
	MontoInicial decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	MontoFinal   *decimal.Decimal `gorm:"type:decimal(14,2)"`
	Diferencia   *decimal.Decimal `gorm:"type:decimal(14,2)"`
	// ClasificacionDiferencia: "normal" | "advertencia" | "critico"
	ClasificacionDiferencia *string `gorm:"type:varchar(20)"`
	Observaciones           *string
	Estado                  string `gorm:"type:varchar(20);not null;default:'abierta'"`

	SaldoEfectivoEsperado decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	// TotalesPorMetodo maps metodo_pago codigo -> signed total.
	TotalesPorMetodo datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	RecalculadoAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:CajaID"`
}

func (Caja) TableName() string { return "cajas" }

// TipoMovimientoCaja names the business reason of a cash movement and its
// default direction.
type TipoMovimientoCaja struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo    string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	Nombre    string    `gorm:"not null"`
	Direccion string    `gorm:"type:varchar(10);not null"`
	Activo    bool      `gorm:"not null;default:true"`
}

func (TipoMovimientoCaja) TableName() string { return "tipos_movimiento_caja" }

// MovimientoCaja is an immutable entry of the cash drawer ledger. Monto is
// the unsigned magnitude; Direccion carries the sign. Annulments create an
// inverse entry pointing at the original through MovimientoOrigenID.
type MovimientoCaja struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CajaID             uuid.UUID       `gorm:"type:uuid;index;not null"`
	TipoMovimiento     string          `gorm:"type:varchar(40);not null"`
	Direccion          string          `gorm:"type:varchar(10);not null"`
	MetodoPagoID       *uuid.UUID      `gorm:"type:uuid"`
	Monto              decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Referencia         Referencia      `gorm:"embedded;embeddedPrefix:referencia_"`
	UsuarioID          uuid.UUID       `gorm:"type:uuid;not null"`
	AfectaSaldo        bool            `gorm:"not null"`
	Descripcion        string          `gorm:"not null"`
	MovimientoOrigenID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	CreatedAt          time.Time

	MetodoPago *MetodoPago `gorm:"foreignKey:MetodoPagoID"`
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

// MontoFirmado applies the direction to the stored magnitude.
func (m MovimientoCaja) MontoFirmado() decimal.Decimal {
	if m.Direccion == Salida {
		return m.Monto.Neg()
	}
	return m.Monto
}

// DireccionOpuesta returns the inverse direction.
func DireccionOpuesta(d string) string {
	if d == Salida {
		return Entrada
	}
	return Salida
}
