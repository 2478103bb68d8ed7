package service

import (
	"context"
	"testing"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) pagoCuenta(metodo, monto string) dto.PagoCuentaCorrienteRequest {
	return dto.PagoCuentaCorrienteRequest{
		Monto:        dec(monto),
		MetodoPagoID: f.metodos[metodo].ID.String(),
		SucursalID:   f.sucursal.String(),
	}
}

func (f *fixture) deuda(monto string) {
	f.db.movsCuenta = append(f.db.movsCuenta, model.MovimientoCuentaCorriente{
		ID: uuid.New(), CuentaCorrienteID: f.cuenta, Monto: dec(monto), Descripcion: "saldo inicial",
	})
}

func TestProcesarPago_ConCajaAbierta(t *testing.T) {
	f := newFixture(t)
	f.deuda("500")
	cajaID := f.abrirCaja(t, "100")

	resp, err := f.cuentas.ProcesarPago(context.Background(), f.usuario, f.cuenta, f.pagoCuenta(model.MetodoEfectivo, "200"))
	require.NoError(t, err)

	requireDec(t, "-200", resp.Monto)
	assert.Equal(t, "Cobro de cuenta corriente", resp.Descripcion)
	assert.Equal(t, model.RefCobroCuentaCorriente, resp.ReferenciaTipo)
	assert.Equal(t, model.MetodoEfectivo, resp.Metadata["metodo_pago"])
	require.NotNil(t, resp.MovimientoCajaID)
	requireDec(t, "300", f.saldoCuenta())

	require.Len(t, f.db.movsCaja, 1)
	mov := f.db.movsCaja[0]
	assert.Equal(t, *resp.MovimientoCajaID, mov.ID.String())
	assert.Equal(t, model.TipoMovCobroCuentaCorriente, mov.TipoMovimiento)
	assert.Equal(t, model.Entrada, mov.Direccion)
	assert.True(t, mov.AfectaSaldo)
	requireDec(t, "300", f.cajaDB(cajaID).SaldoEfectivoEsperado)
}

func TestProcesarPago_EfectivoSinCaja(t *testing.T) {
	f := newFixture(t)
	f.deuda("500")

	_, err := f.cuentas.ProcesarPago(context.Background(), f.usuario, f.cuenta, f.pagoCuenta(model.MetodoEfectivo, "200"))
	require.Error(t, err)
	assert.Equal(t, apierror.KindRegisterClosed, apierror.KindOf(err))
	requireDec(t, "500", f.saldoCuenta())
}

func TestProcesarPago_ElectronicoSinCaja(t *testing.T) {
	f := newFixture(t)
	f.deuda("500")

	resp, err := f.cuentas.ProcesarPago(context.Background(), f.usuario, f.cuenta, f.pagoCuenta(model.MetodoTransferencia, "500"))
	require.NoError(t, err)
	assert.Nil(t, resp.MovimientoCajaID)
	assert.True(t, f.saldoCuenta().IsZero())
	assert.Empty(t, f.db.movsCaja)
}

func TestProcesarPago_GeneraCredito(t *testing.T) {
	f := newFixture(t)
	f.deuda("50")

	_, err := f.cuentas.ProcesarPago(context.Background(), f.usuario, f.cuenta, f.pagoCuenta(model.MetodoDebito, "80"))
	require.NoError(t, err)

	cuenta, err := f.cuentas.Obtener(context.Background(), f.cuenta)
	require.NoError(t, err)
	requireDec(t, "-30", cuenta.Saldo)
	requireDec(t, "30", cuenta.CreditoDisponible)
}

func TestProcesarPago_Rechazos(t *testing.T) {
	f := newFixture(t)
	f.abrirCaja(t, "0")
	ctx := context.Background()

	for _, metodo := range []string{model.MetodoCuentaCorriente, model.MetodoCreditoTienda} {
		_, err := f.cuentas.ProcesarPago(ctx, f.usuario, f.cuenta, f.pagoCuenta(metodo, "10"))
		assert.Equal(t, apierror.KindValidation, apierror.KindOf(err), metodo)
	}

	_, err := f.cuentas.ProcesarPago(ctx, f.usuario, f.cuenta, f.pagoCuenta(model.MetodoEfectivo, "0"))
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	_, err = f.cuentas.ProcesarPago(ctx, f.usuario, uuid.New(), f.pagoCuenta(model.MetodoEfectivo, "10"))
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))

	assert.Empty(t, f.db.movsCuenta)
	assert.Empty(t, f.db.movsCaja)
}

func TestObtenerCuenta(t *testing.T) {
	f := newFixture(t, conLimiteCredito("1000"))
	f.abrirCaja(t, "0")
	ctx := context.Background()

	_, err := f.ventas.CrearVenta(ctx, f.usuario,
		f.conCliente(f.ventaReq(model.ComprobanteTicket, []dto.ItemVentaRequest{item(f.prodB, "2")},
			f.pago(model.MetodoCuentaCorriente, "110.5"))))
	require.NoError(t, err)
	_, err = f.cuentas.ProcesarPago(ctx, f.usuario, f.cuenta, f.pagoCuenta(model.MetodoEfectivo, "10.5"))
	require.NoError(t, err)

	resp, err := f.cuentas.Obtener(ctx, f.cuenta)
	require.NoError(t, err)
	assert.Equal(t, model.TitularCliente, resp.TitularTipo)
	assert.Equal(t, f.cliente.String(), resp.TitularID)
	requireDec(t, "1000", resp.LimiteCredito)
	requireDec(t, "100", resp.Saldo)
	assert.True(t, resp.CreditoDisponible.IsZero())
	require.Len(t, resp.UltimosMovimientos, 2)
	// newest first
	requireDec(t, "-10.5", resp.UltimosMovimientos[0].Monto)
	assert.Equal(t, float64(1), resp.UltimosMovimientos[1].Metadata["venta_numero"])

	_, err = f.cuentas.Obtener(ctx, uuid.New())
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestCuentaInactivaNoOpera(t *testing.T) {
	f := newFixture(t)
	f.abrirCaja(t, "0")
	c := f.db.cuentas[f.cuenta]
	c.Activa = false
	f.db.cuentas[f.cuenta] = c

	_, err := f.ventas.CrearVenta(context.Background(), f.usuario,
		f.conCliente(f.ventaReq(model.ComprobanteTicket, []dto.ItemVentaRequest{item(f.prodA, "1")},
			f.pago(model.MetodoCuentaCorriente, "121"))))
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Empty(t, f.db.movsCuenta)
}

func TestCreditoDe(t *testing.T) {
	requireDec(t, "0", creditoDe(dec("10")))
	requireDec(t, "0", creditoDe(dec("0")))
	requireDec(t, "25.5", creditoDe(dec("-25.5")))
}
