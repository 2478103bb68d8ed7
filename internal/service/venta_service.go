package service

import (
	"context"
	"fmt"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"
	"github.com/resguarit/pos-system-sub006/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VentaService interface {
	CrearVenta(ctx context.Context, usuarioID uuid.UUID, req dto.CrearVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

// pipelineVenta posts an active sale to every ledger. It is shared by sale
// creation and budget conversion so both run the exact same stages.
type pipelineVenta struct {
	ventas       repository.VentaRepository
	catalogo     repository.CatalogoRepository
	stock        StockService
	caja         CajaService
	cuentas      CuentaCorrienteService
	ajusteMaximo decimal.Decimal
}

func nuevoPipeline(
	ventas repository.VentaRepository,
	catalogo repository.CatalogoRepository,
	stock StockService,
	caja CajaService,
	cuentas CuentaCorrienteService,
	ajusteMaximo decimal.Decimal,
) *pipelineVenta {
	return &pipelineVenta{
		ventas:       ventas,
		catalogo:     catalogo,
		stock:        stock,
		caja:         caja,
		cuentas:      cuentas,
		ajusteMaximo: ajusteMaximo,
	}
}

type pagoPedido struct {
	metodoID uuid.UUID
	monto    decimal.Decimal
}

// activarTx persists v as an active sale and posts its side effects:
//  1. payment methods resolved and reconciled by the allocator
//  2. stock decremented per line
//  3. one cash movement per non-credit payment
//  4. current-account postings for deferred payments and consumed store credit
//
// v must carry the builder's amounts, Numero and SucursalID.
func (p *pipelineVenta) activarTx(ctx context.Context, tx *gorm.DB, v *model.Venta, pedidos []pagoPedido, credito decimal.Decimal, cajaID *uuid.UUID) error {
	solicitados := make([]PagoSolicitado, 0, len(pedidos))
	usaCuenta := credito.IsPositive()
	for _, pp := range pedidos {
		metodo, err := p.catalogo.FindMetodoPagoByID(ctx, tx, pp.metodoID)
		if err != nil {
			if esNoEncontrado(err) {
				return apierror.Validation("método de pago inexistente",
					map[string]string{"metodo_pago_id": pp.metodoID.String()})
			}
			return err
		}
		if metodo.CuentaCorriente {
			usaCuenta = true
		}
		solicitados = append(solicitados, PagoSolicitado{Metodo: *metodo, Monto: pp.monto})
	}

	var cuenta *model.CuentaCorriente
	if usaCuenta {
		if v.ClienteID == nil {
			return apierror.Validation("el pago en cuenta corriente o con crédito de tienda requiere un cliente", nil)
		}
		c, err := p.cuentas.CuentaDeClienteTx(ctx, tx, *v.ClienteID)
		if err != nil {
			return err
		}
		cuenta = c
	}

	var metodoCredito *model.MetodoPago
	if credito.IsPositive() {
		disponible, err := p.cuentas.CreditoDisponibleTx(ctx, tx, cuenta.ID)
		if err != nil {
			return err
		}
		if redondear(credito).GreaterThan(disponible) {
			return apierror.Validation("crédito de tienda insuficiente", map[string]string{
				"disponible": disponible.StringFixed(2),
				"solicitado": credito.StringFixed(2),
			})
		}
		metodoCredito, err = p.catalogo.FindMetodoPagoByCodigo(ctx, tx, model.MetodoCreditoTienda)
		if err != nil {
			if esNoEncontrado(err) {
				return apierror.Validation("método de crédito de tienda no configurado", nil)
			}
			return err
		}
	}

	asignacion, err := AsignarPagos(EntradaPagos{
		Total:               v.Total,
		Pagos:               solicitados,
		CreditoTienda:       credito,
		MetodoCreditoTienda: metodoCredito,
		AjusteMaximo:        p.ajusteMaximo,
	})
	if err != nil {
		return err
	}

	diferido := decimal.Zero
	for i, pago := range asignacion.Pagos {
		if !pago.EsCreditoTienda && solicitados[i].Metodo.CuentaCorriente {
			diferido = diferido.Add(pago.Monto)
		}
	}
	if diferido.IsPositive() {
		// Consumed store credit moves the balance up as well
		if err := p.cuentas.VerificarLimiteTx(ctx, tx, cuenta, diferido.Add(asignacion.CreditoAplicado)); err != nil {
			return err
		}
	}

	caja, err := p.caja.ResolverCajaAbiertaTx(ctx, tx, cajaID, v.SucursalID)
	if err != nil {
		return err
	}

	v.CajaID = &caja.ID
	v.Estado = model.VentaActiva
	v.Pagos = asignacion.Pagos
	v.MontoPagado = asignacion.MontoPagado
	v.CreditoAplicado = asignacion.CreditoAplicado
	v.EstadoPago = asignacion.EstadoPago
	if err := p.ventas.Create(ctx, tx, v); err != nil {
		return fmt.Errorf("crear venta: %w", err)
	}

	ref := model.NuevaReferencia(model.RefVenta, v.ID)
	descripcion := fmt.Sprintf("Venta #%d", v.Numero)

	for _, item := range v.Items {
		if _, err := p.stock.Decrementar(ctx, tx, MovimientoStockInput{
			ProductoID: item.ProductoID,
			SucursalID: v.SucursalID,
			Cantidad:   item.Cantidad,
			Tipo:       model.MovStockVenta,
			Referencia: ref,
			UsuarioID:  v.UsuarioID,
			Motivo:     descripcion,
		}); err != nil {
			return err
		}
	}

	for i, pago := range asignacion.Pagos {
		if pago.EsCreditoTienda {
			continue
		}
		metodo := solicitados[i].Metodo
		mov, err := p.caja.RegistrarMovimientoTx(ctx, tx, MovimientoCajaInput{
			CajaID:         caja.ID,
			TipoMovimiento: model.TipoMovVenta,
			Direccion:      model.Entrada,
			Metodo:         &metodo,
			Monto:          pago.Monto,
			Referencia:     ref,
			UsuarioID:      v.UsuarioID,
			Descripcion:    descripcion,
		})
		if err != nil {
			return err
		}
		if metodo.CuentaCorriente {
			if _, err := p.cuentas.RegistrarTx(ctx, tx, MovimientoCuentaInput{
				CuentaID:         cuenta.ID,
				Monto:            pago.Monto,
				Descripcion:      descripcion + " (cuenta corriente)",
				Referencia:       ref,
				Metadata:         map[string]any{"venta_numero": v.Numero},
				MovimientoCajaID: &mov.ID,
				UsuarioID:        v.UsuarioID,
			}); err != nil {
				return err
			}
		}
	}

	if asignacion.CreditoAplicado.IsPositive() {
		if _, err := p.cuentas.RegistrarTx(ctx, tx, MovimientoCuentaInput{
			CuentaID:    cuenta.ID,
			Monto:       asignacion.CreditoAplicado,
			Descripcion: descripcion + " (crédito de tienda)",
			Referencia:  ref,
			Metadata:    map[string]any{"venta_numero": v.Numero, "credito_tienda": true},
			UsuarioID:   v.UsuarioID,
		}); err != nil {
			return err
		}
	}
	return nil
}

type ventaService struct {
	pipeline    *pipelineVenta
	txr         repository.TxRunner
	facturacion FacturacionService
}

// NewVentaService wires the sale pipeline. facturacion may be nil, in which
// case fiscal sales are never sent for authorization.
func NewVentaService(
	ventas repository.VentaRepository,
	catalogo repository.CatalogoRepository,
	stock StockService,
	caja CajaService,
	cuentas CuentaCorrienteService,
	txr repository.TxRunner,
	facturacion FacturacionService,
	ajusteMaximo decimal.Decimal,
) VentaService {
	return &ventaService{
		pipeline:    nuevoPipeline(ventas, catalogo, stock, caja, cuentas, ajusteMaximo),
		txr:         txr,
		facturacion: facturacion,
	}
}

// ── CrearVenta ────────────────────────────────────────────────────────────────
// One unit of work: builder → allocator → stock + cash + current account.
// A presupuesto stops after the builder and is stored as borrador.
// Fiscal authorization is requested only after commit.

func (s *ventaService) CrearVenta(ctx context.Context, usuarioID uuid.UUID, req dto.CrearVentaRequest) (*dto.VentaResponse, error) {
	sucursalID, err := parseUUID("sucursal_id", req.SucursalID)
	if err != nil {
		return nil, err
	}
	clienteID, err := parseUUIDOpcional("cliente_id", req.ClienteID)
	if err != nil {
		return nil, err
	}
	cajaID, err := parseUUIDOpcional("caja_id", req.CajaID)
	if err != nil {
		return nil, err
	}
	entrada, err := entradaCalculoDe(req)
	if err != nil {
		return nil, err
	}
	pedidos := make([]pagoPedido, 0, len(req.Pagos))
	for _, p := range req.Pagos {
		id, err := parseUUID("metodo_pago_id", p.MetodoPagoID)
		if err != nil {
			return nil, err
		}
		pedidos = append(pedidos, pagoPedido{metodoID: id, monto: p.Monto})
	}

	var venta *model.Venta
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		productos, txErr := s.pipeline.productosDe(ctx, tx, entrada.Lineas)
		if txErr != nil {
			return txErr
		}
		calculo, txErr := CalcularVenta(entrada, productos)
		if txErr != nil {
			return txErr
		}
		numero, txErr := s.pipeline.ventas.NextNumero(ctx, tx)
		if txErr != nil {
			return fmt.Errorf("numerar venta: %w", txErr)
		}

		v := &model.Venta{
			ID:              uuid.New(),
			Numero:          numero,
			Fecha:           time.Now(),
			SucursalID:      sucursalID,
			ClienteID:       clienteID,
			UsuarioID:       usuarioID,
			TipoComprobante: req.TipoComprobante,
			EstadoPago:      model.PagoPendiente,
		}
		calculo.AplicarA(v)

		if v.EsPresupuesto() {
			// Budgets have no ledger side effects; requested payments are ignored
			v.Estado = model.VentaBorrador
			if err := s.pipeline.ventas.Create(ctx, tx, v); err != nil {
				return fmt.Errorf("crear presupuesto: %w", err)
			}
			venta = v
			return nil
		}

		if err := s.pipeline.activarTx(ctx, tx, v, pedidos, req.CreditoTienda, cajaID); err != nil {
			return err
		}
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("venta_id", venta.ID.String()).Int64("numero", venta.Numero).
		Str("tipo", venta.TipoComprobante).Str("estado", venta.Estado).
		Str("total", venta.Total.StringFixed(2)).Msg("venta: registrada")

	solicitarAutorizacion(ctx, s.facturacion, venta)
	return s.ObtenerVenta(ctx, venta.ID)
}

func solicitarAutorizacion(ctx context.Context, facturacion FacturacionService, v *model.Venta) {
	if facturacion == nil || v.Estado != model.VentaActiva || !model.EsFiscal(v.TipoComprobante) {
		return
	}
	// Best effort: the sale is committed whatever happens here
	if err := facturacion.Encolar(ctx, v); err != nil {
		log.Warn().Err(err).Str("venta_id", v.ID.String()).Msg("venta: no se pudo encolar la autorización")
	}
}

func (p *pipelineVenta) productosDe(ctx context.Context, tx *gorm.DB, lineas []LineaCalculo) (map[uuid.UUID]model.Producto, error) {
	ids := make([]uuid.UUID, 0, len(lineas))
	for _, l := range lineas {
		ids = append(ids, l.ProductoID)
	}
	lista, err := p.catalogo.FindProductosByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	productos := make(map[uuid.UUID]model.Producto, len(lista))
	for _, p := range lista {
		productos[p.ID] = p
	}
	return productos, nil
}

func entradaCalculoDe(req dto.CrearVentaRequest) (EntradaCalculo, error) {
	entrada := EntradaCalculo{
		TipoComprobante: req.TipoComprobante,
		Lineas:          make([]LineaCalculo, 0, len(req.Items)),
		ImpuestoIIBB:    req.ImpuestoIIBB,
		ImpuestoInterno: req.ImpuestoInterno,
	}
	if req.Descuento != nil {
		tipo := req.Descuento.Tipo
		entrada.DescuentoTipo = &tipo
		entrada.DescuentoValor = req.Descuento.Valor
	}
	for _, item := range req.Items {
		pid, err := parseUUID("producto_id", item.ProductoID)
		if err != nil {
			return entrada, err
		}
		linea := LineaCalculo{
			ProductoID:     pid,
			Cantidad:       item.Cantidad,
			PrecioUnitario: item.PrecioUnitario,
		}
		if item.Descuento != nil {
			tipo := item.Descuento.Tipo
			linea.DescuentoTipo = &tipo
			linea.DescuentoValor = item.Descuento.Valor
		}
		entrada.Lineas = append(entrada.Lineas, linea)
	}
	return entrada, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.pipeline.ventas.FindByID(ctx, nil, id)
	if err != nil {
		return nil, noEncontradoO(err, "venta", id)
	}
	return ventaToResponse(v), nil
}

// ListVentas returns a paginated list of sales. Default filter: all states.
func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Estado == "" {
		filter.Estado = "all"
	}
	ventas, total, err := s.pipeline.ventas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, item := range v.Items {
		nombre := ""
		if item.Producto != nil {
			nombre = item.Producto.Nombre
		}
		items = append(items, dto.ItemVentaResponse{
			ProductoID:     item.ProductoID.String(),
			Producto:       nombre,
			Cantidad:       item.Cantidad,
			PrecioUnitario: item.PrecioUnitario,
			DescuentoMonto: item.DescuentoMonto,
			AlicuotaIVA:    item.AlicuotaIVA,
			Neto:           item.Neto,
			IVA:            item.IVA,
			Total:          item.Total,
		})
	}
	desglose := make([]dto.IvaDesgloseResponse, 0, len(v.Desglose))
	for _, d := range v.Desglose {
		desglose = append(desglose, dto.IvaDesgloseResponse{
			Alicuota:      d.Alicuota,
			BaseImponible: d.BaseImponible,
			Importe:       d.Importe,
		})
	}
	pagos := make([]dto.PagoResponse, 0, len(v.Pagos))
	for _, p := range v.Pagos {
		metodo := ""
		if p.MetodoPago != nil {
			metodo = p.MetodoPago.Codigo
		}
		pagos = append(pagos, dto.PagoResponse{
			MetodoPagoID:    p.MetodoPagoID.String(),
			Metodo:          metodo,
			Monto:           p.Monto,
			EsCreditoTienda: p.EsCreditoTienda,
		})
	}
	return &dto.VentaResponse{
		ID:                  v.ID.String(),
		Numero:              v.Numero,
		Fecha:               v.Fecha.Format(time.RFC3339),
		SucursalID:          v.SucursalID.String(),
		ClienteID:           uuidStr(v.ClienteID),
		CajaID:              uuidStr(v.CajaID),
		TipoComprobante:     v.TipoComprobante,
		Estado:              v.Estado,
		Items:               items,
		Desglose:            desglose,
		SubtotalNeto:        v.SubtotalNeto,
		TotalIVA:            v.TotalIVA,
		Descuento:           v.Descuento,
		ImpuestoIIBB:        v.ImpuestoIIBB,
		ImpuestoInterno:     v.ImpuestoInterno,
		Total:               v.Total,
		Pagos:               pagos,
		EstadoPago:          v.EstadoPago,
		MontoPagado:         v.MontoPagado,
		CreditoAplicado:     v.CreditoAplicado,
		CAE:                 v.CAE,
		EstadoAutorizacion:  v.EstadoAutorizacion,
		PresupuestoOrigenID: uuidStr(v.PresupuestoOrigenID),
		VentaConvertidaID:   uuidStr(v.VentaConvertidaID),
		AnuladaAt:           fechaStr(v.AnuladaAt),
		MotivoAnulacion:     v.MotivoAnulacion,
		CreatedAt:           v.CreatedAt.Format(time.RFC3339),
	}
}
