package service

import (
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// sinMetodo keys movements posted without a payment method.
const sinMetodo = "sin_metodo"

// Agregados are the derived figures of a register.
type Agregados struct {
	SaldoEfectivoEsperado decimal.Decimal
	TotalesPorMetodo      map[string]decimal.Decimal
}

// CalcularAgregados is a pure function of the register's movements:
// the expected cash balance is the opening amount plus every signed movement
// whose method moves physical cash; per-method totals include every movement
// flagged afecta_saldo, keyed by method code.
func CalcularAgregados(montoInicial decimal.Decimal, movimientos []model.MovimientoCaja, metodos map[uuid.UUID]model.MetodoPago) Agregados {
	agg := Agregados{
		SaldoEfectivoEsperado: montoInicial,
		TotalesPorMetodo:      map[string]decimal.Decimal{},
	}
	for _, m := range movimientos {
		firmado := m.MontoFirmado()
		clave := sinMetodo
		var metodo *model.MetodoPago
		if m.MetodoPagoID != nil {
			if mp, ok := metodos[*m.MetodoPagoID]; ok {
				metodo = &mp
				clave = mp.Codigo
			}
		}
		if metodo != nil && metodo.AfectaCaja {
			agg.SaldoEfectivoEsperado = agg.SaldoEfectivoEsperado.Add(firmado)
		}
		if m.AfectaSaldo {
			agg.TotalesPorMetodo[clave] = agg.TotalesPorMetodo[clave].Add(firmado)
		}
	}
	return agg
}
