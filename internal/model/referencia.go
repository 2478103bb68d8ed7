package model

import "github.com/google/uuid"

// Tipos de referencia polimórfica de los movimientos.
const (
	RefVenta                = "venta"
	RefAnulacionVenta       = "anulacion_venta"
	RefGasto                = "gasto"
	RefTransferencia        = "transferencia"
	RefCobroCuentaCorriente = "cobro_cuenta_corriente"
	RefAjuste               = "ajuste"
)

// Referencia is a tagged union {tipo, id} pointing at the business document
// that originated a ledger movement. It is embedded with prefix "referencia_".
type Referencia struct {
	Tipo string     `gorm:"type:varchar(40);index:,composite:referencia"`
	ID   *uuid.UUID `gorm:"type:uuid;index:,composite:referencia"`
}

func NuevaReferencia(tipo string, id uuid.UUID) Referencia {
	return Referencia{Tipo: tipo, ID: &id}
}

func (r Referencia) Vacia() bool { return r.Tipo == "" || r.ID == nil }
