package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"
	"github.com/resguarit/pos-system-sub006/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store ──────────────────────────────────────────────────────────

type claveStock struct{ producto, sucursal uuid.UUID }

// memDB backs every repository stub. Rows are stored by value so a snapshot
// only needs fresh maps and slices.
type memDB struct {
	productos    map[uuid.UUID]model.Producto
	metodos      map[uuid.UUID]model.MetodoPago
	tipos        map[string]model.TipoMovimientoCaja
	cajas        map[uuid.UUID]model.Caja
	movsCaja     []model.MovimientoCaja
	stocks       map[claveStock]model.Stock
	movsStock    []model.MovimientoStock
	cuentas      map[uuid.UUID]model.CuentaCorriente
	movsCuenta   []model.MovimientoCuentaCorriente
	ventas       map[uuid.UUID]model.Venta
	comprobantes map[uuid.UUID]model.Comprobante // by venta id
	numero       int64
}

func newMemDB() *memDB {
	return &memDB{
		productos:    map[uuid.UUID]model.Producto{},
		metodos:      map[uuid.UUID]model.MetodoPago{},
		tipos:        map[string]model.TipoMovimientoCaja{},
		cajas:        map[uuid.UUID]model.Caja{},
		stocks:       map[claveStock]model.Stock{},
		cuentas:      map[uuid.UUID]model.CuentaCorriente{},
		ventas:       map[uuid.UUID]model.Venta{},
		comprobantes: map[uuid.UUID]model.Comprobante{},
	}
}

func copiarMapa[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memDB) clone() *memDB {
	return &memDB{
		productos:    copiarMapa(d.productos),
		metodos:      copiarMapa(d.metodos),
		tipos:        copiarMapa(d.tipos),
		cajas:        copiarMapa(d.cajas),
		movsCaja:     append([]model.MovimientoCaja(nil), d.movsCaja...),
		stocks:       copiarMapa(d.stocks),
		movsStock:    append([]model.MovimientoStock(nil), d.movsStock...),
		cuentas:      copiarMapa(d.cuentas),
		movsCuenta:   append([]model.MovimientoCuentaCorriente(nil), d.movsCuenta...),
		ventas:       copiarMapa(d.ventas),
		comprobantes: copiarMapa(d.comprobantes),
		numero:       d.numero,
	}
}

// memTx rolls the whole store back when fn fails, so atomicity is observable.
type memTx struct {
	db       *memDB
	llamadas int
	// antesDelReintento, when set, discards the next successful attempt as a
	// serialization failure would, runs once, and retries.
	antesDelReintento func()
}

func (m *memTx) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.llamadas++
	snapshot := m.db.clone()
	if err := fn(nil); err != nil {
		*m.db = *snapshot
		return err
	}
	if hook := m.antesDelReintento; hook != nil {
		m.antesDelReintento = nil
		*m.db = *snapshot
		hook()
		return m.RunInTx(ctx, fn)
	}
	return nil
}

var _ repository.TxRunner = (*memTx)(nil)

func mismaReferencia(a, b model.Referencia) bool {
	return a.Tipo == b.Tipo && a.ID != nil && b.ID != nil && *a.ID == *b.ID
}

// ── Catalogo ─────────────────────────────────────────────────────────────────

type memCatalogoRepo struct{ *memDB }

func (r memCatalogoRepo) FindProductoByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r memCatalogoRepo) FindProductosByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]model.Producto, error) {
	var out []model.Producto
	for _, id := range ids {
		if p, ok := r.productos[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memCatalogoRepo) FindProductoByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	for _, p := range r.productos {
		if p.CodigoBarras == barcode && p.Activo {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memCatalogoRepo) FindMetodoPagoByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.MetodoPago, error) {
	m, ok := r.metodos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r memCatalogoRepo) FindMetodoPagoByCodigo(_ context.Context, _ *gorm.DB, codigo string) (*model.MetodoPago, error) {
	for _, m := range r.metodos {
		if m.Codigo == codigo {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memCatalogoRepo) ListMetodosPago(_ context.Context, _ *gorm.DB) ([]model.MetodoPago, error) {
	out := make([]model.MetodoPago, 0, len(r.metodos))
	for _, m := range r.metodos {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out, nil
}

var _ repository.CatalogoRepository = memCatalogoRepo{}

// ── Stock ────────────────────────────────────────────────────────────────────

type memStockRepo struct{ *memDB }

func (r memStockRepo) LockOrCreate(_ context.Context, _ *gorm.DB, productoID, sucursalID uuid.UUID) (*model.Stock, error) {
	k := claveStock{productoID, sucursalID}
	s, ok := r.stocks[k]
	if !ok {
		s = model.Stock{ID: uuid.New(), ProductoID: productoID, SucursalID: sucursalID}
		r.stocks[k] = s
	}
	return &s, nil
}

func (r memStockRepo) UpdateCantidad(_ context.Context, _ *gorm.DB, id uuid.UUID, cantidad decimal.Decimal) error {
	for k, s := range r.stocks {
		if s.ID == id {
			s.StockActual = cantidad
			r.stocks[k] = s
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r memStockRepo) Find(_ context.Context, productoID, sucursalID uuid.UUID) (*model.Stock, error) {
	s, ok := r.stocks[claveStock{productoID, sucursalID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r memStockRepo) CreateMovimiento(_ context.Context, _ *gorm.DB, m *model.MovimientoStock) error {
	if m.MovimientoOrigenID != nil {
		for _, x := range r.movsStock {
			if x.MovimientoOrigenID != nil && *x.MovimientoOrigenID == *m.MovimientoOrigenID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	r.movsStock = append(r.movsStock, *m)
	return nil
}

func (r memStockRepo) ListMovimientosPorReferencia(_ context.Context, _ *gorm.DB, ref model.Referencia) ([]model.MovimientoStock, error) {
	var out []model.MovimientoStock
	for _, m := range r.movsStock {
		if mismaReferencia(m.Referencia, ref) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memStockRepo) ListMovimientos(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	var filtrados []model.MovimientoStock
	for i := len(r.movsStock) - 1; i >= 0; i-- {
		m := r.movsStock[i]
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.SucursalID != nil && m.SucursalID != *f.SucursalID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		filtrados = append(filtrados, m)
	}
	total := int64(len(filtrados))
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	desde := (page - 1) * limit
	if desde >= len(filtrados) {
		return nil, total, nil
	}
	hasta := min(desde+limit, len(filtrados))
	return filtrados[desde:hasta], total, nil
}

var _ repository.StockRepository = memStockRepo{}

// ── Caja ─────────────────────────────────────────────────────────────────────

type memCajaRepo struct{ *memDB }

func (r memCajaRepo) Create(_ context.Context, _ *gorm.DB, c *model.Caja) error {
	for _, x := range r.cajas {
		if x.SucursalID == c.SucursalID && x.Estado == model.CajaAbierta && c.Estado == model.CajaAbierta {
			return gorm.ErrDuplicatedKey
		}
	}
	r.cajas[c.ID] = *c
	return nil
}

func (r memCajaRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Caja, error) {
	c, ok := r.cajas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memCajaRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caja, error) {
	return r.FindByID(ctx, tx, id)
}

func (r memCajaRepo) FindAbiertaPorSucursal(_ context.Context, _ *gorm.DB, sucursalID uuid.UUID) (*model.Caja, error) {
	for _, c := range r.cajas {
		if c.SucursalID == sucursalID && c.Estado == model.CajaAbierta {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memCajaRepo) Update(_ context.Context, _ *gorm.DB, c *model.Caja) error {
	if _, ok := r.cajas[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.cajas[c.ID] = *c
	return nil
}

func (r memCajaRepo) FindTipoMovimiento(_ context.Context, _ *gorm.DB, codigo string) (*model.TipoMovimientoCaja, error) {
	t, ok := r.tipos[codigo]
	if !ok || !t.Activo {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r memCajaRepo) CreateMovimiento(_ context.Context, _ *gorm.DB, m *model.MovimientoCaja) error {
	if m.MovimientoOrigenID != nil {
		for _, x := range r.movsCaja {
			if x.MovimientoOrigenID != nil && *x.MovimientoOrigenID == *m.MovimientoOrigenID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	r.movsCaja = append(r.movsCaja, *m)
	return nil
}

func (r memCajaRepo) ListMovimientos(_ context.Context, _ *gorm.DB, cajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, m := range r.movsCaja {
		if m.CajaID == cajaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memCajaRepo) ListMovimientosPorReferencia(_ context.Context, _ *gorm.DB, ref model.Referencia) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, m := range r.movsCaja {
		if mismaReferencia(m.Referencia, ref) {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.CajaRepository = memCajaRepo{}

// ── Cuenta corriente ─────────────────────────────────────────────────────────

type memCuentaRepo struct{ *memDB }

func (r memCuentaRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.CuentaCorriente, error) {
	c, ok := r.cuentas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memCuentaRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CuentaCorriente, error) {
	return r.FindByID(ctx, tx, id)
}

func (r memCuentaRepo) FindByTitularForUpdate(_ context.Context, _ *gorm.DB, titularTipo string, titularID uuid.UUID) (*model.CuentaCorriente, error) {
	for _, c := range r.cuentas {
		if c.TitularTipo == titularTipo && c.TitularID == titularID && c.Activa {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memCuentaRepo) CreateMovimiento(_ context.Context, _ *gorm.DB, m *model.MovimientoCuentaCorriente) error {
	r.movsCuenta = append(r.movsCuenta, *m)
	return nil
}

func (r memCuentaRepo) Saldo(_ context.Context, _ *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error) {
	saldo := decimal.Zero
	for _, m := range r.movsCuenta {
		if m.CuentaCorrienteID == cuentaID {
			saldo = saldo.Add(m.Monto)
		}
	}
	return saldo, nil
}

func (r memCuentaRepo) ListMovimientos(_ context.Context, cuentaID uuid.UUID, limit int) ([]model.MovimientoCuentaCorriente, error) {
	var out []model.MovimientoCuentaCorriente
	for i := len(r.movsCuenta) - 1; i >= 0 && len(out) < limit; i-- {
		if r.movsCuenta[i].CuentaCorrienteID == cuentaID {
			out = append(out, r.movsCuenta[i])
		}
	}
	return out, nil
}

func (r memCuentaRepo) ListMovimientosPorReferencia(_ context.Context, _ *gorm.DB, ref model.Referencia) ([]model.MovimientoCuentaCorriente, error) {
	var out []model.MovimientoCuentaCorriente
	for _, m := range r.movsCuenta {
		if mismaReferencia(m.Referencia, ref) {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.CuentaCorrienteRepository = memCuentaRepo{}

// ── Venta ────────────────────────────────────────────────────────────────────

type memVentaRepo struct{ *memDB }

func (r memVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	if _, ok := r.ventas[v.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	v.CreatedAt = time.Now()
	r.ventas[v.ID] = *v
	return nil
}

// FindByID mimics the preloads of the real repository.
func (r memVentaRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	items := make([]model.VentaItem, len(v.Items))
	for i, it := range v.Items {
		if p, ok := r.productos[it.ProductoID]; ok {
			it.Producto = &p
		}
		items[i] = it
	}
	pagos := make([]model.VentaPago, len(v.Pagos))
	for i, p := range v.Pagos {
		if m, ok := r.metodos[p.MetodoPagoID]; ok {
			p.MetodoPago = &m
		}
		pagos[i] = p
	}
	v.Items, v.Pagos = items, pagos
	return &v, nil
}

func (r memVentaRepo) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r memVentaRepo) UpdateCampos(_ context.Context, _ *gorm.DB, id uuid.UUID, campos map[string]any) error {
	v, ok := r.ventas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, val := range campos {
		switch k {
		case "estado":
			v.Estado = val.(string)
		case "anulada_at":
			t := val.(time.Time)
			v.AnuladaAt = &t
		case "anulada_por":
			u := val.(uuid.UUID)
			v.AnuladaPor = &u
		case "motivo_anulacion":
			s := val.(string)
			v.MotivoAnulacion = &s
		case "venta_convertida_id":
			u := val.(uuid.UUID)
			v.VentaConvertidaID = &u
		case "convertido_at":
			t := val.(time.Time)
			v.ConvertidoAt = &t
		case "cae":
			s := val.(string)
			v.CAE = &s
		case "cae_vencimiento":
			v.CAEVencimiento = val.(*time.Time)
		case "estado_autorizacion":
			s := val.(string)
			v.EstadoAutorizacion = &s
		default:
			return fmt.Errorf("columna desconocida %q", k)
		}
	}
	v.UpdatedAt = time.Now()
	r.ventas[id] = v
	return nil
}

func (r memVentaRepo) NextNumero(_ context.Context, _ *gorm.DB) (int64, error) {
	r.numero++
	return r.numero, nil
}

func (r memVentaRepo) List(ctx context.Context, f dto.VentaFilter) ([]model.Venta, int64, error) {
	var filtradas []model.Venta
	for id, v := range r.ventas {
		if f.Estado != "" && f.Estado != "all" && v.Estado != f.Estado {
			continue
		}
		if f.SucursalID != "" && v.SucursalID.String() != f.SucursalID {
			continue
		}
		if f.TipoComprobante != "" && v.TipoComprobante != f.TipoComprobante {
			continue
		}
		completa, _ := r.FindByID(ctx, nil, id)
		filtradas = append(filtradas, *completa)
	}
	sort.Slice(filtradas, func(i, j int) bool { return filtradas[i].Numero > filtradas[j].Numero })
	total := int64(len(filtradas))
	desde := (f.Page - 1) * f.Limit
	if desde >= len(filtradas) {
		return nil, total, nil
	}
	hasta := min(desde+f.Limit, len(filtradas))
	return filtradas[desde:hasta], total, nil
}

var _ repository.VentaRepository = memVentaRepo{}

// ── Comprobante ──────────────────────────────────────────────────────────────

type memComprobanteRepo struct{ *memDB }

func (r memComprobanteRepo) Create(_ context.Context, c *model.Comprobante) error {
	if _, ok := r.comprobantes[c.VentaID]; ok {
		return gorm.ErrDuplicatedKey
	}
	c.CreatedAt = time.Now()
	r.comprobantes[c.VentaID] = *c
	return nil
}

func (r memComprobanteRepo) FindByVentaID(_ context.Context, ventaID uuid.UUID) (*model.Comprobante, error) {
	c, ok := r.comprobantes[ventaID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memComprobanteRepo) Update(_ context.Context, c *model.Comprobante) error {
	r.comprobantes[c.VentaID] = *c
	return nil
}

func (r memComprobanteRepo) ListPendingRetries(_ context.Context, now time.Time, limit int) ([]model.Comprobante, error) {
	var out []model.Comprobante
	for _, c := range r.comprobantes {
		if c.Estado == model.ComprobantePendiente && c.NextRetryAt != nil && !c.NextRetryAt.After(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRetryAt.Before(*out[j].NextRetryAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.ComprobanteRepository = memComprobanteRepo{}
