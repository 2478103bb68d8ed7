package service

import (
	"context"
	"testing"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixtureConfig struct {
	bloquearNegativo bool
	ajusteMaximo     decimal.Decimal
	limiteCredito    decimal.Decimal
	facturacion      FacturacionService
}

type fixture struct {
	db  *memDB
	txr *memTx

	stock        StockService
	caja         CajaService
	cuentas      CuentaCorrienteService
	ventas       VentaService
	anulaciones  AnulacionService
	presupuestos PresupuestoService

	sucursal uuid.UUID
	usuario  uuid.UUID
	cliente  uuid.UUID
	cuenta   uuid.UUID
	metodos  map[string]model.MetodoPago
	prodA    model.Producto // 100 neto, IVA 21%
	prodB    model.Producto // 50 neto, IVA 10.5%
}

func newFixture(t *testing.T, opts ...func(*fixtureConfig)) *fixture {
	t.Helper()
	cfg := fixtureConfig{ajusteMaximo: decimal.NewFromInt(1)}
	for _, o := range opts {
		o(&cfg)
	}

	db := newMemDB()
	f := &fixture{
		db:       db,
		txr:      &memTx{db: db},
		sucursal: uuid.New(),
		usuario:  uuid.New(),
		cliente:  uuid.New(),
		cuenta:   uuid.New(),
		metodos:  map[string]model.MetodoPago{},
	}
	sembrarCatalogo(db, f)

	db.cuentas[f.cuenta] = model.CuentaCorriente{
		ID:            f.cuenta,
		TitularTipo:   model.TitularCliente,
		TitularID:     f.cliente,
		LimiteCredito: cfg.limiteCredito,
		Activa:        true,
	}

	catalogo := memCatalogoRepo{db}
	ventaRepo := memVentaRepo{db}
	f.stock = NewStockService(memStockRepo{db}, catalogo, f.txr, cfg.bloquearNegativo)
	f.caja = NewCajaService(memCajaRepo{db}, catalogo, f.txr, NewReferenciaResolver(ventaRepo))
	f.cuentas = NewCuentaCorrienteService(memCuentaRepo{db}, catalogo, f.caja, f.txr)
	f.ventas = NewVentaService(ventaRepo, catalogo, f.stock, f.caja, f.cuentas, f.txr, cfg.facturacion, cfg.ajusteMaximo)
	f.anulaciones = NewAnulacionService(ventaRepo, memStockRepo{db}, memCajaRepo{db}, memCuentaRepo{db}, catalogo,
		f.stock, f.caja, f.cuentas, f.txr)
	f.presupuestos = NewPresupuestoService(ventaRepo, catalogo, f.stock, f.caja, f.cuentas, f.txr, cfg.facturacion, cfg.ajusteMaximo)
	return f
}

func conStockBloqueado(c *fixtureConfig) { c.bloquearNegativo = true }

func conLimiteCredito(limite string) func(*fixtureConfig) {
	return func(c *fixtureConfig) { c.limiteCredito = decimal.RequireFromString(limite) }
}

func conFacturacion(svc FacturacionService) func(*fixtureConfig) {
	return func(c *fixtureConfig) { c.facturacion = svc }
}

// sembrarCatalogo loads the same payment methods and movement types the
// schema patches seed.
func sembrarCatalogo(db *memDB, f *fixture) {
	metodos := []model.MetodoPago{
		{Codigo: model.MetodoEfectivo, Nombre: "Efectivo", AfectaCaja: true},
		{Codigo: model.MetodoDebito, Nombre: "Tarjeta de débito"},
		{Codigo: model.MetodoCredito, Nombre: "Tarjeta de crédito"},
		{Codigo: model.MetodoTransferencia, Nombre: "Transferencia"},
		{Codigo: model.MetodoCuentaCorriente, Nombre: "Cuenta corriente", CuentaCorriente: true},
		{Codigo: model.MetodoCreditoTienda, Nombre: "Crédito de tienda", CreditoTienda: true},
	}
	for _, m := range metodos {
		m.ID = uuid.New()
		m.Activo = true
		db.metodos[m.ID] = m
		f.metodos[m.Codigo] = m
	}

	tipos := map[string]string{
		model.TipoMovVenta:                model.Entrada,
		model.TipoMovAnulacionVenta:       model.Salida,
		model.TipoMovIngresoManual:        model.Entrada,
		model.TipoMovEgresoManual:         model.Salida,
		model.TipoMovGasto:                model.Salida,
		model.TipoMovCobroCuentaCorriente: model.Entrada,
		model.TipoMovPagoProveedor:        model.Salida,
	}
	for codigo, dir := range tipos {
		db.tipos[codigo] = model.TipoMovimientoCaja{ID: uuid.New(), Codigo: codigo, Nombre: codigo, Direccion: dir, Activo: true}
	}

	f.prodA = model.Producto{
		ID: uuid.New(), CodigoBarras: "7790001000011", Nombre: "Yerba 1kg",
		PrecioCosto: decimal.NewFromInt(60), PrecioVenta: decimal.NewFromInt(100),
		AlicuotaIVA: decimal.NewFromInt(21), Activo: true,
	}
	f.prodB = model.Producto{
		ID: uuid.New(), CodigoBarras: "7790001000028", Nombre: "Pan lactal",
		PrecioCosto: decimal.NewFromInt(30), PrecioVenta: decimal.NewFromInt(50),
		AlicuotaIVA: decimal.RequireFromString("10.5"), Activo: true,
	}
	db.productos[f.prodA.ID] = f.prodA
	db.productos[f.prodB.ID] = f.prodB
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, esperado string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, dec(esperado).Equal(actual), append([]interface{}{"esperado %s, obtenido %s", esperado, actual.String()}, msgAndArgs...)...)
}

func (f *fixture) abrirCaja(t *testing.T, monto string) uuid.UUID {
	t.Helper()
	resp, err := f.caja.Abrir(context.Background(), f.usuario, dto.AbrirCajaRequest{
		SucursalID:   f.sucursal.String(),
		MontoInicial: dec(monto),
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func (f *fixture) cerrarCaja(t *testing.T, cajaID uuid.UUID, declarado string) {
	t.Helper()
	obs := "cierre de prueba"
	_, err := f.caja.Cerrar(context.Background(), dto.CerrarCajaRequest{
		CajaID:         cajaID.String(),
		MontoDeclarado: dec(declarado),
		Observaciones:  &obs,
	})
	require.NoError(t, err)
}

func (f *fixture) pago(codigo, monto string) dto.PagoRequest {
	return dto.PagoRequest{MetodoPagoID: f.metodos[codigo].ID.String(), Monto: dec(monto)}
}

func item(p model.Producto, cantidad string) dto.ItemVentaRequest {
	return dto.ItemVentaRequest{ProductoID: p.ID.String(), Cantidad: dec(cantidad)}
}

func (f *fixture) ventaReq(tipo string, items []dto.ItemVentaRequest, pagos ...dto.PagoRequest) dto.CrearVentaRequest {
	return dto.CrearVentaRequest{
		SucursalID:      f.sucursal.String(),
		TipoComprobante: tipo,
		Items:           items,
		Pagos:           pagos,
	}
}

func (f *fixture) conCliente(req dto.CrearVentaRequest) dto.CrearVentaRequest {
	id := f.cliente.String()
	req.ClienteID = &id
	return req
}

func (f *fixture) stockDe(p model.Producto) decimal.Decimal {
	s, ok := f.db.stocks[claveStock{p.ID, f.sucursal}]
	if !ok {
		return decimal.Zero
	}
	return s.StockActual
}

func (f *fixture) fijarStock(p model.Producto, cantidad string) {
	k := claveStock{p.ID, f.sucursal}
	s, ok := f.db.stocks[k]
	if !ok {
		s = model.Stock{ID: uuid.New(), ProductoID: p.ID, SucursalID: f.sucursal}
	}
	s.StockActual = dec(cantidad)
	f.db.stocks[k] = s
}

func (f *fixture) saldoCuenta() decimal.Decimal {
	saldo, _ := memCuentaRepo{f.db}.Saldo(context.Background(), nil, f.cuenta)
	return saldo
}

func (f *fixture) cajaDB(id uuid.UUID) model.Caja { return f.db.cajas[id] }

// recomputar derives the register figures from its movements, ignoring the cache.
func (f *fixture) recomputar(id uuid.UUID) Agregados {
	c := f.db.cajas[id]
	movs, _ := memCajaRepo{f.db}.ListMovimientos(context.Background(), nil, id)
	return CalcularAgregados(c.MontoInicial, movs, f.db.metodos)
}

func (f *fixture) movsCajaDe(ref model.Referencia) []model.MovimientoCaja {
	movs, _ := memCajaRepo{f.db}.ListMovimientosPorReferencia(context.Background(), nil, ref)
	return movs
}
