package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Titular de una cuenta corriente.
const (
	TitularCliente   = "cliente"
	TitularProveedor = "proveedor"
)

// CuentaCorriente is a running-credit account of a customer or supplier.
// The balance is never stored: it is always the sum of its movements.
// A positive balance means the holder owes the business; a negative one is
// store credit in the holder's favour.
type CuentaCorriente struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TitularTipo   string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_cc_titular"`
	TitularID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cc_titular"`
	LimiteCredito decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"` // 0 = sin límite
	Activa        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (CuentaCorriente) TableName() string { return "cuentas_corrientes" }

// MovimientoCuentaCorriente is an immutable signed posting.
type MovimientoCuentaCorriente struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuentaCorrienteID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Monto             decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Descripcion       string          `gorm:"not null"`
	Referencia        Referencia      `gorm:"embedded;embeddedPrefix:referencia_"`
	Metadata          datatypes.JSON  `gorm:"type:jsonb"`
	MovimientoCajaID  *uuid.UUID      `gorm:"type:uuid"`
	UsuarioID         uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt         time.Time
}

func (MovimientoCuentaCorriente) TableName() string { return "movimientos_cuenta_corriente" }
