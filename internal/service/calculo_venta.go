package service

import (
	"sort"
	"strconv"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	cien       = decimal.NewFromInt(100)
	tolerancia = decimal.New(1, -2) // 0.01
)

// redondear rounds half-up to cents. Only final values are rounded.
func redondear(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// LineaCalculo is one requested sale line.
type LineaCalculo struct {
	ProductoID uuid.UUID
	Cantidad   decimal.Decimal
	// PrecioUnitario overrides the catalog price when set.
	PrecioUnitario *decimal.Decimal
	DescuentoTipo  *string
	DescuentoValor decimal.Decimal
}

// EntradaCalculo is the raw input of the sale aggregate builder.
type EntradaCalculo struct {
	TipoComprobante string
	Lineas          []LineaCalculo
	DescuentoTipo   *string
	DescuentoValor  decimal.Decimal
	ImpuestoIIBB    decimal.Decimal
	ImpuestoInterno decimal.Decimal
}

// ResultadoCalculo holds the frozen amounts of a sale.
type ResultadoCalculo struct {
	Items           []model.VentaItem
	Desglose        []model.VentaIvaDesglose
	SubtotalNeto    decimal.Decimal
	TotalIVA        decimal.Decimal
	DescuentoTipo   *string
	DescuentoValor  decimal.Decimal
	Descuento       decimal.Decimal
	ImpuestoIIBB    decimal.Decimal
	ImpuestoInterno decimal.Decimal
	Total           decimal.Decimal
}

// AplicarA copies the computed amounts onto the sale header.
func (r *ResultadoCalculo) AplicarA(v *model.Venta) {
	v.Items = r.Items
	v.Desglose = r.Desglose
	v.SubtotalNeto = r.SubtotalNeto
	v.TotalIVA = r.TotalIVA
	v.DescuentoTipo = r.DescuentoTipo
	v.DescuentoValor = r.DescuentoValor
	v.Descuento = r.Descuento
	v.ImpuestoIIBB = r.ImpuestoIIBB
	v.ImpuestoInterno = r.ImpuestoInterno
	v.Total = r.Total
}

type acumuladoAlicuota struct {
	alicuota decimal.Decimal
	base     decimal.Decimal
	iva      decimal.Decimal
}

// CalcularVenta computes line totals, the VAT breakdown by rate and the sale
// total. Per line: base = cantidad × precio; the discount is a percentage of
// base or a fixed amount never above base; neto = base − descuento;
// iva = neto × alícuota / 100. The header discount applies once over
// subtotal_neto + total_iva, then IIBB and internal taxes are added.
func CalcularVenta(entrada EntradaCalculo, productos map[uuid.UUID]model.Producto) (*ResultadoCalculo, error) {
	if !tipoComprobanteValido(entrada.TipoComprobante) {
		return nil, apierror.Validation("tipo de comprobante inválido",
			map[string]string{"tipo_comprobante": entrada.TipoComprobante})
	}
	if len(entrada.Lineas) == 0 {
		return nil, apierror.Validation("la venta debe tener al menos un ítem", nil)
	}
	if entrada.ImpuestoIIBB.IsNegative() || entrada.ImpuestoInterno.IsNegative() {
		return nil, apierror.Validation("los impuestos manuales no pueden ser negativos", map[string]string{
			"impuesto_iibb":    entrada.ImpuestoIIBB.String(),
			"impuesto_interno": entrada.ImpuestoInterno.String(),
		})
	}

	res := &ResultadoCalculo{Items: make([]model.VentaItem, 0, len(entrada.Lineas))}
	netoSinRedondear := decimal.Zero
	porAlicuota := map[string]*acumuladoAlicuota{}

	for i, l := range entrada.Lineas {
		p, ok := productos[l.ProductoID]
		if !ok {
			return nil, apierror.Validation("producto inexistente", map[string]string{
				"producto_id": l.ProductoID.String(),
			})
		}
		if !p.Activo {
			return nil, apierror.Validation("producto inactivo: "+p.Nombre, map[string]string{
				"producto_id": l.ProductoID.String(),
			})
		}
		if !l.Cantidad.IsPositive() {
			return nil, apierror.Validation("la cantidad debe ser mayor a cero", map[string]string{
				"producto_id": l.ProductoID.String(),
				"cantidad":    l.Cantidad.String(),
			})
		}

		precio := p.PrecioVenta
		if l.PrecioUnitario != nil {
			if l.PrecioUnitario.IsNegative() {
				return nil, apierror.Validation("el precio unitario no puede ser negativo", map[string]string{
					"producto_id": l.ProductoID.String(),
				})
			}
			// stored as decimal(14,2): finer overrides could not be reproduced
			if !l.PrecioUnitario.Equal(l.PrecioUnitario.Truncate(2)) {
				return nil, apierror.Validation("el precio unitario admite hasta dos decimales", map[string]string{
					"producto_id":     l.ProductoID.String(),
					"precio_unitario": l.PrecioUnitario.String(),
				})
			}
			precio = *l.PrecioUnitario
		}

		base := l.Cantidad.Mul(precio)
		descuento, err := calcularDescuento(l.DescuentoTipo, l.DescuentoValor, base)
		if err != nil {
			err.Fields["linea"] = strconv.Itoa(i + 1)
			err.Fields["producto_id"] = l.ProductoID.String()
			return nil, err
		}

		neto := base.Sub(descuento)
		iva := neto.Mul(p.AlicuotaIVA).Div(cien)
		netoR := redondear(neto)
		ivaR := redondear(iva)

		res.Items = append(res.Items, model.VentaItem{
			ProductoID:     l.ProductoID,
			Cantidad:       l.Cantidad,
			PrecioUnitario: precio,
			DescuentoTipo:  l.DescuentoTipo,
			DescuentoValor: l.DescuentoValor,
			DescuentoMonto: redondear(descuento),
			AlicuotaIVA:    p.AlicuotaIVA,
			Neto:           netoR,
			IVA:            ivaR,
			Total:          netoR.Add(ivaR),
		})

		netoSinRedondear = netoSinRedondear.Add(neto)
		clave := p.AlicuotaIVA.String()
		acc, ok := porAlicuota[clave]
		if !ok {
			acc = &acumuladoAlicuota{alicuota: p.AlicuotaIVA}
			porAlicuota[clave] = acc
		}
		acc.base = acc.base.Add(neto)
		acc.iva = acc.iva.Add(iva)
	}

	res.SubtotalNeto = redondear(netoSinRedondear)
	res.TotalIVA = decimal.Zero
	for _, acc := range porAlicuota {
		d := model.VentaIvaDesglose{
			Alicuota:      acc.alicuota,
			BaseImponible: redondear(acc.base),
			Importe:       redondear(acc.iva),
		}
		res.Desglose = append(res.Desglose, d)
		res.TotalIVA = res.TotalIVA.Add(d.Importe)
	}
	sort.Slice(res.Desglose, func(i, j int) bool {
		return res.Desglose[i].Alicuota.LessThan(res.Desglose[j].Alicuota)
	})

	bruto := res.SubtotalNeto.Add(res.TotalIVA)
	descuento, derr := calcularDescuento(entrada.DescuentoTipo, entrada.DescuentoValor, bruto)
	if derr != nil {
		derr.Fields["nivel"] = "cabecera"
		return nil, derr
	}

	res.DescuentoTipo = entrada.DescuentoTipo
	res.DescuentoValor = entrada.DescuentoValor
	res.Descuento = redondear(descuento)
	res.ImpuestoIIBB = redondear(entrada.ImpuestoIIBB)
	res.ImpuestoInterno = redondear(entrada.ImpuestoInterno)
	res.Total = bruto.Sub(res.Descuento).Add(res.ImpuestoIIBB).Add(res.ImpuestoInterno)
	return res, nil
}

// calcularDescuento returns the unrounded discount over base.
func calcularDescuento(tipo *string, valor, base decimal.Decimal) (decimal.Decimal, *apierror.Error) {
	if tipo == nil || *tipo == "" {
		return decimal.Zero, nil
	}
	campos := map[string]string{
		"descuento_tipo":  *tipo,
		"descuento_valor": valor.String(),
		"base":            redondear(base).String(),
	}
	if valor.IsNegative() {
		return decimal.Zero, apierror.Validation("el descuento no puede ser negativo", campos)
	}
	switch *tipo {
	case model.DescuentoPorcentaje:
		if valor.GreaterThan(cien) {
			return decimal.Zero, apierror.Validation("el porcentaje de descuento no puede superar 100", campos)
		}
		return base.Mul(valor).Div(cien), nil
	case model.DescuentoMonto:
		if valor.GreaterThan(base) {
			return decimal.Zero, apierror.Validation("el descuento supera su base", campos)
		}
		return valor, nil
	default:
		return decimal.Zero, apierror.Validation("tipo de descuento inválido", campos)
	}
}

func tipoComprobanteValido(tipo string) bool {
	switch tipo {
	case model.ComprobanteFacturaA, model.ComprobanteFacturaB, model.ComprobanteFacturaC,
		model.ComprobanteTicket, model.ComprobantePresupuesto:
		return true
	}
	return false
}
