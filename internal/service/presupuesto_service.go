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

type PresupuestoService interface {
	// Convertir promotes a draft budget into an active sale priced from the
	// current catalog. The budget is kept as borrador and flagged converted.
	Convertir(ctx context.Context, usuarioID, presupuestoID uuid.UUID, req dto.ConvertirPresupuestoRequest) (*dto.VentaResponse, error)
	// Cancelar moves a draft budget to cancelada.
	Cancelar(ctx context.Context, presupuestoID uuid.UUID) (*dto.VentaResponse, error)
}

type presupuestoService struct {
	pipeline    *pipelineVenta
	txr         repository.TxRunner
	facturacion FacturacionService
}

func NewPresupuestoService(
	ventas repository.VentaRepository,
	catalogo repository.CatalogoRepository,
	stock StockService,
	caja CajaService,
	cuentas CuentaCorrienteService,
	txr repository.TxRunner,
	facturacion FacturacionService,
	ajusteMaximo decimal.Decimal,
) PresupuestoService {
	return &presupuestoService{
		pipeline:    nuevoPipeline(ventas, catalogo, stock, caja, cuentas, ajusteMaximo),
		txr:         txr,
		facturacion: facturacion,
	}
}

func (s *presupuestoService) Convertir(ctx context.Context, usuarioID, presupuestoID uuid.UUID, req dto.ConvertirPresupuestoRequest) (*dto.VentaResponse, error) {
	if req.TipoComprobante == model.ComprobantePresupuesto {
		return nil, apierror.ConversionPrecondition("el comprobante destino no puede ser un presupuesto",
			map[string]string{"tipo_comprobante": req.TipoComprobante})
	}
	cajaID, err := parseUUIDOpcional("caja_id", req.CajaID)
	if err != nil {
		return nil, err
	}
	metodoID, err := parseUUID("metodo_pago_id", req.MetodoPagoID)
	if err != nil {
		return nil, err
	}

	var venta *model.Venta
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		p, txErr := s.pipeline.ventas.FindByIDForUpdate(ctx, tx, presupuestoID)
		if txErr != nil {
			return noEncontradoO(txErr, "presupuesto", presupuestoID)
		}
		if err := verificarConvertible(p); err != nil {
			return err
		}

		// Re-price every line; discounts and manual taxes are kept
		entrada := entradaDesdePresupuesto(p, req.TipoComprobante)
		productos, txErr := s.pipeline.productosDe(ctx, tx, entrada.Lineas)
		if txErr != nil {
			return txErr
		}
		calculo, txErr := CalcularVenta(entrada, productos)
		if txErr != nil {
			return txErr
		}
		if !calculo.Total.IsPositive() {
			return apierror.ConversionPrecondition("el presupuesto re-cotizado no tiene total positivo", map[string]string{
				"presupuesto_id": p.ID.String(),
				"total":          calculo.Total.StringFixed(2),
			})
		}
		numero, txErr := s.pipeline.ventas.NextNumero(ctx, tx)
		if txErr != nil {
			return fmt.Errorf("numerar venta: %w", txErr)
		}

		v := &model.Venta{
			ID:                  uuid.New(),
			Numero:              numero,
			Fecha:               time.Now(),
			SucursalID:          p.SucursalID,
			ClienteID:           p.ClienteID,
			UsuarioID:           usuarioID,
			TipoComprobante:     req.TipoComprobante,
			EstadoPago:          model.PagoPendiente,
			PresupuestoOrigenID: &p.ID,
		}
		calculo.AplicarA(v)

		pago := []pagoPedido{{metodoID: metodoID, monto: calculo.Total}}
		if err := s.pipeline.activarTx(ctx, tx, v, pago, decimal.Zero, cajaID); err != nil {
			return err
		}

		if err := s.pipeline.ventas.UpdateCampos(ctx, tx, p.ID, map[string]any{
			"venta_convertida_id": v.ID,
			"convertido_at":       time.Now(),
		}); err != nil {
			return fmt.Errorf("vincular presupuesto: %w", err)
		}
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("presupuesto_id", presupuestoID.String()).Str("venta_id", venta.ID.String()).
		Int64("numero", venta.Numero).Str("total", venta.Total.StringFixed(2)).
		Msg("presupuesto: convertido en venta")

	solicitarAutorizacion(ctx, s.facturacion, venta)

	creada, err := s.pipeline.ventas.FindByID(ctx, nil, venta.ID)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(creada), nil
}

func (s *presupuestoService) Cancelar(ctx context.Context, presupuestoID uuid.UUID) (*dto.VentaResponse, error) {
	err := s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		p, txErr := s.pipeline.ventas.FindByIDForUpdate(ctx, tx, presupuestoID)
		if txErr != nil {
			return noEncontradoO(txErr, "presupuesto", presupuestoID)
		}
		campos := map[string]string{"presupuesto_id": p.ID.String(), "estado": p.Estado}
		switch {
		case !p.EsPresupuesto():
			return apierror.ConversionPrecondition("solo se pueden cancelar presupuestos", campos)
		case p.Estado != model.VentaBorrador:
			return apierror.ConversionPrecondition("el presupuesto no está en borrador", campos)
		case p.VentaConvertidaID != nil:
			return apierror.ConversionPrecondition("el presupuesto ya fue convertido", campos)
		}
		return s.pipeline.ventas.UpdateCampos(ctx, tx, p.ID, map[string]any{"estado": model.VentaCancelada})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("presupuesto_id", presupuestoID.String()).Msg("presupuesto: cancelado")

	p, err := s.pipeline.ventas.FindByID(ctx, nil, presupuestoID)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(p), nil
}

func verificarConvertible(p *model.Venta) error {
	campos := map[string]string{
		"presupuesto_id":   p.ID.String(),
		"estado":           p.Estado,
		"tipo_comprobante": p.TipoComprobante,
	}
	switch {
	case !p.EsPresupuesto():
		return apierror.ConversionPrecondition("el comprobante no es un presupuesto", campos)
	case p.VentaConvertidaID != nil:
		campos["venta_convertida_id"] = p.VentaConvertidaID.String()
		return apierror.ConversionPrecondition("el presupuesto ya fue convertido", campos)
	case p.Estado != model.VentaBorrador:
		return apierror.ConversionPrecondition("el presupuesto no está en borrador", campos)
	case len(p.Items) == 0:
		return apierror.ConversionPrecondition("el presupuesto no tiene ítems", campos)
	case !p.Total.IsPositive():
		campos["total"] = p.Total.StringFixed(2)
		return apierror.ConversionPrecondition("el presupuesto no tiene total positivo", campos)
	}
	return nil
}

func entradaDesdePresupuesto(p *model.Venta, tipo string) EntradaCalculo {
	entrada := EntradaCalculo{
		TipoComprobante: tipo,
		Lineas:          make([]LineaCalculo, 0, len(p.Items)),
		DescuentoTipo:   p.DescuentoTipo,
		DescuentoValor:  p.DescuentoValor,
		ImpuestoIIBB:    p.ImpuestoIIBB,
		ImpuestoInterno: p.ImpuestoInterno,
	}
	for _, item := range p.Items {
		entrada.Lineas = append(entrada.Lineas, LineaCalculo{
			ProductoID:     item.ProductoID,
			Cantidad:       item.Cantidad,
			DescuentoTipo:  item.DescuentoTipo,
			DescuentoValor: item.DescuentoValor,
		})
	}
	return entrada
}
