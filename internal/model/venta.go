package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado de la venta.
const (
	VentaBorrador  = "borrador"
	VentaActiva    = "activa"
	VentaAnulada   = "anulada"
	VentaCancelada = "cancelada"
)

// Estado de pago.
const (
	PagoPendiente = "pendiente"
	PagoParcial   = "parcial"
	PagoPagado    = "pagado"
)

// Tipos de comprobante.
const (
	ComprobanteFacturaA    = "factura_a"
	ComprobanteFacturaB    = "factura_b"
	ComprobanteFacturaC    = "factura_c"
	ComprobanteTicket      = "ticket"
	ComprobantePresupuesto = "presupuesto"
)

// Tipos de descuento (línea o cabecera).
const (
	DescuentoPorcentaje = "porcentaje"
	DescuentoMonto      = "monto"
)

// EsFiscal reports whether the receipt type needs an external authorization.
func EsFiscal(tipo string) bool {
	switch tipo {
	case ComprobanteFacturaA, ComprobanteFacturaB, ComprobanteFacturaC:
		return true
	}
	return false
}

// Venta is the sale header. Totals are frozen once the sale is active;
// only estado, payment summary, conversion links, annulment fields and the
// external authorization fields are ever updated in place.
type Venta struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero          int64      `gorm:"not null;uniqueIndex"`
	Fecha           time.Time  `gorm:"not null;index"`
	SucursalID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ClienteID       *uuid.UUID `gorm:"type:uuid;index"`
	UsuarioID       uuid.UUID  `gorm:"type:uuid;not null"`
	CajaID          *uuid.UUID `gorm:"type:uuid;index"`
	TipoComprobante string     `gorm:"type:varchar(20);not null"`
	Estado          string     `gorm:"type:varchar(20);not null;default:'activa';index"`

	SubtotalNeto    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalIVA        decimal.Decimal `gorm:"type:decimal(14,2);not null;column:total_iva"`
	DescuentoTipo   *string         `gorm:"type:varchar(20)"`
	DescuentoValor  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	Descuento       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	ImpuestoIIBB    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:impuesto_iibb"`
	ImpuestoInterno decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	EstadoPago      string          `gorm:"type:varchar(20);not null;default:'pendiente'"`
	MontoPagado     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreditoAplicado decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	// External authorization (opaque to the ledger)
	CAE                *string    `gorm:"type:varchar(20);column:cae"`
	CAEVencimiento     *time.Time `gorm:"column:cae_vencimiento"`
	EstadoAutorizacion *string    `gorm:"type:varchar(20)"`

	PresupuestoOrigenID *uuid.UUID `gorm:"type:uuid;index"`
	VentaConvertidaID   *uuid.UUID `gorm:"type:uuid"`
	ConvertidoAt        *time.Time

	AnuladaAt       *time.Time
	AnuladaPor      *uuid.UUID `gorm:"type:uuid"`
	MotivoAnulacion *string

	CreatedAt time.Time
	UpdatedAt time.Time

	Items    []VentaItem        `gorm:"foreignKey:VentaID"`
	Desglose []VentaIvaDesglose `gorm:"foreignKey:VentaID"`
	Pagos    []VentaPago        `gorm:"foreignKey:VentaID"`
}

func (v *Venta) EsPresupuesto() bool { return v.TipoComprobante == ComprobantePresupuesto }

// VentaItem is a frozen line of a sale.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	DescuentoTipo  *string         `gorm:"type:varchar(20)"`
	DescuentoValor decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	DescuentoMonto decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	AlicuotaIVA    decimal.Decimal `gorm:"type:decimal(5,2);not null;column:alicuota_iva"`
	Neto           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	IVA            decimal.Decimal `gorm:"type:decimal(14,2);not null;column:iva"`
	Total          decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// VentaIvaDesglose aggregates VAT per rate.
type VentaIvaDesglose struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Alicuota      decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	BaseImponible decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Importe       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (VentaIvaDesglose) TableName() string { return "venta_iva_desgloses" }

// VentaPago is one payment line. Store credit is recorded here with
// EsCreditoTienda=true and never reaches the cash drawer.
type VentaPago struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	MetodoPagoID    uuid.UUID       `gorm:"type:uuid;not null"`
	Monto           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	EsCreditoTienda bool            `gorm:"not null;default:false"`
	CreatedAt       time.Time

	MetodoPago *MetodoPago `gorm:"foreignKey:MetodoPagoID"`
}
