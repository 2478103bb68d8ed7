package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is the read-only catalog view used to price sales.
// PrecioVenta is net of VAT; AlicuotaIVA is a percentage (21 means 21%).
type Producto struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras string          `gorm:"uniqueIndex;not null"`
	Nombre       string          `gorm:"index;not null"`
	PrecioCosto  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	AlicuotaIVA  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:21;column:alicuota_iva"`
	UnidadMedida string          `gorm:"not null;default:'unidad'"`
	Activo       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
