package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovStockVenta          = "venta"
	MovStockAnulacionVenta = "anulacion_venta"
	MovStockAjusteManual   = "ajuste_manual"
)

// MovimientoStock registra cada cambio de stock de un producto en una
// sucursal. Append-only: una anulación crea un movimiento compensatorio que
// apunta al original, nunca edita el original.
type MovimientoStock struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SucursalID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo            string          `gorm:"type:varchar(30);not null"`
	Cantidad        decimal.Decimal `gorm:"type:decimal(12,3);not null"` // positive = entrada, negative = salida
	StockAnterior   decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	StockResultante decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	// Price snapshots at the time of the movement
	PrecioCosto        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	PrecioVenta        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Referencia         Referencia      `gorm:"embedded;embeddedPrefix:referencia_"`
	MovimientoOrigenID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	UsuarioID          uuid.UUID       `gorm:"type:uuid;not null"`
	Motivo             string
	CreatedAt          time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
