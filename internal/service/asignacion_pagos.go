package service

import (
	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/shopspring/decimal"
)

// PagoSolicitado is one requested payment with its resolved method.
type PagoSolicitado struct {
	Metodo model.MetodoPago
	Monto  decimal.Decimal
}

// EntradaPagos is the input of the payment allocator.
type EntradaPagos struct {
	Total         decimal.Decimal
	Pagos         []PagoSolicitado
	CreditoTienda decimal.Decimal
	// MetodoCreditoTienda is required when CreditoTienda > 0.
	MetodoCreditoTienda *model.MetodoPago
	// AjusteMaximo bounds the discrepancy absorbed into the last payment line.
	AjusteMaximo decimal.Decimal
}

// ResultadoPagos holds the payment rows to persist and the derived summary.
type ResultadoPagos struct {
	Pagos           []model.VentaPago
	CreditoAplicado decimal.Decimal
	MontoPagado     decimal.Decimal
	EstadoPago      string
	// Ajuste is the amount added to the last non-credit line (may be negative).
	Ajuste decimal.Decimal
}

// AsignarPagos reconciles the submitted payments against the sale total.
// Store credit is a virtual payment: it is recorded as a row but settles the
// sale without reaching the cash drawer. A discrepancy up to 0.01 is ignored;
// up to AjusteMaximo it is absorbed by the last non-credit payment; anything
// larger is a payment mismatch.
func AsignarPagos(e EntradaPagos) (*ResultadoPagos, error) {
	if e.CreditoTienda.IsNegative() {
		return nil, apierror.Validation("el crédito de tienda no puede ser negativo",
			map[string]string{"credito_tienda": e.CreditoTienda.String()})
	}
	credito := redondear(e.CreditoTienda)
	if credito.GreaterThan(e.Total) {
		return nil, apierror.Validation("el crédito de tienda supera el total de la venta", map[string]string{
			"credito_tienda": credito.StringFixed(2),
			"total":          e.Total.StringFixed(2),
		})
	}
	if credito.IsPositive() && e.MetodoCreditoTienda == nil {
		return nil, apierror.Validation("método de crédito de tienda no configurado", nil)
	}

	montos := make([]decimal.Decimal, len(e.Pagos))
	recibido := decimal.Zero
	for i, p := range e.Pagos {
		if !p.Metodo.Activo {
			return nil, apierror.Validation("método de pago inactivo: "+p.Metodo.Nombre,
				map[string]string{"metodo_pago_id": p.Metodo.ID.String()})
		}
		if p.Metodo.CreditoTienda {
			return nil, apierror.Validation("el crédito de tienda se informa en credito_tienda, no como pago",
				map[string]string{"metodo_pago_id": p.Metodo.ID.String()})
		}
		if !p.Monto.IsPositive() {
			return nil, apierror.Validation("el monto de cada pago debe ser mayor a cero",
				map[string]string{"metodo_pago_id": p.Metodo.ID.String(), "monto": p.Monto.String()})
		}
		montos[i] = redondear(p.Monto)
		recibido = recibido.Add(montos[i])
	}

	esperado := e.Total.Sub(credito)
	diferencia := esperado.Sub(recibido)
	ajuste := decimal.Zero

	if diferencia.Abs().GreaterThan(tolerancia) {
		ultimo := len(montos) - 1
		if ultimo < 0 || diferencia.Abs().GreaterThan(e.AjusteMaximo) {
			return nil, apierror.PaymentMismatch(esperado, recibido)
		}
		corregido := montos[ultimo].Add(diferencia)
		if !corregido.IsPositive() {
			return nil, apierror.PaymentMismatch(esperado, recibido)
		}
		montos[ultimo] = corregido
		ajuste = diferencia
	}

	res := &ResultadoPagos{CreditoAplicado: credito, Ajuste: ajuste}
	pagado := credito
	for i, p := range e.Pagos {
		res.Pagos = append(res.Pagos, model.VentaPago{
			MetodoPagoID: p.Metodo.ID,
			Monto:        montos[i],
		})
		if !p.Metodo.CuentaCorriente {
			pagado = pagado.Add(montos[i])
		}
	}
	if credito.IsPositive() {
		res.Pagos = append(res.Pagos, model.VentaPago{
			MetodoPagoID:    e.MetodoCreditoTienda.ID,
			Monto:           credito,
			EsCreditoTienda: true,
		})
	}

	res.MontoPagado = pagado
	res.EstadoPago = EstadoPagoDe(pagado, e.Total)
	return res, nil
}

// EstadoPagoDe derives the payment status from the settled amount.
func EstadoPagoDe(pagado, total decimal.Decimal) string {
	switch {
	case pagado.GreaterThanOrEqual(total.Sub(tolerancia)):
		return model.PagoPagado
	case pagado.IsPositive():
		return model.PagoParcial
	default:
		return model.PagoPendiente
	}
}
