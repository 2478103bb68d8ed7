package model

import "github.com/google/uuid"

// Códigos de los métodos de pago sembrados por la migración.
const (
	MetodoEfectivo        = "efectivo"
	MetodoDebito          = "debito"
	MetodoCredito         = "credito"
	MetodoTransferencia   = "transferencia"
	MetodoQR              = "qr"
	MetodoCuentaCorriente = "cuenta_corriente"
	MetodoCreditoTienda   = "credito_tienda"
)

// MetodoPago is the read-only payment-method registry.
//   - AfectaCaja: moves physical cash, drives the expected cash balance.
//   - CuentaCorriente: deferred; posts to the customer's running account
//     and does not count as paid.
//   - CreditoTienda: virtual store credit; never reaches the cash drawer.
type MetodoPago struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo          string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	Nombre          string    `gorm:"not null"`
	AfectaCaja      bool      `gorm:"not null;default:false"`
	CuentaCorriente bool      `gorm:"not null;default:false"`
	CreditoTienda   bool      `gorm:"not null;default:false"`
	Activo          bool      `gorm:"not null;default:true"`
}

func (MetodoPago) TableName() string { return "metodos_pago" }
