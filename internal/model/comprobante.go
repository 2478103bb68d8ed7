package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado de un intento de autorización fiscal.
const (
	ComprobantePendiente = "pendiente"
	ComprobanteEmitido   = "emitido"
	ComprobanteRechazado = "rechazado"
	ComprobanteError     = "error"
	// ComprobanteAnulado closes a pending attempt whose sale was annulled
	// before AFIP authorized it.
	ComprobanteAnulado = "anulado"
)

// Comprobante tracks the post-commit fiscal authorization of an active sale.
// It lives outside the ledger transaction: a failure here never touches the
// sale's stock, cash or current-account postings.
type Comprobante struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Tipo         string    `gorm:"type:varchar(30);not null"`
	Numero       *int64
	PuntoDeVenta int
	// CAE is the authorization code returned by AFIP
	CAE            *string         `gorm:"type:varchar(20);column:cae"`
	CAEVencimiento *time.Time      `gorm:"column:cae_vencimiento"`
	MontoNeto      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoIVA       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:monto_iva"`
	MontoTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Estado         string          `gorm:"type:varchar(20);not null;default:'pendiente'"`
	Observaciones  *string
	// Retry fields, used by the retry cron to re-attempt failed AFIP calls
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
