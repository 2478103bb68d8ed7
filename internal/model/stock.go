package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock is the quantity of one product at one branch. The row is created on
// first touch and locked FOR UPDATE before every change.
type Stock struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_producto_sucursal"`
	SucursalID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_producto_sucursal"`
	StockActual decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	StockMinimo decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	StockMaximo decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Stock) TableName() string { return "stocks" }
