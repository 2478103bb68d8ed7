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
	"gorm.io/gorm"
)

type AnulacionService interface {
	// Anular reverses every ledger effect of an active sale and marks it
	// anulada. activa → anulada is one-way.
	Anular(ctx context.Context, usuarioID, ventaID uuid.UUID, motivo string) (*dto.VentaResponse, error)
}

type anulacionService struct {
	ventas     repository.VentaRepository
	stockRepo  repository.StockRepository
	cajaRepo   repository.CajaRepository
	cuentaRepo repository.CuentaCorrienteRepository
	catalogo   repository.CatalogoRepository
	stock      StockService
	caja       CajaService
	cuentas    CuentaCorrienteService
	txr        repository.TxRunner
}

func NewAnulacionService(
	ventas repository.VentaRepository,
	stockRepo repository.StockRepository,
	cajaRepo repository.CajaRepository,
	cuentaRepo repository.CuentaCorrienteRepository,
	catalogo repository.CatalogoRepository,
	stock StockService,
	caja CajaService,
	cuentas CuentaCorrienteService,
	txr repository.TxRunner,
) AnulacionService {
	return &anulacionService{
		ventas:     ventas,
		stockRepo:  stockRepo,
		cajaRepo:   cajaRepo,
		cuentaRepo: cuentaRepo,
		catalogo:   catalogo,
		stock:      stock,
		caja:       caja,
		cuentas:    cuentas,
		txr:        txr,
	}
}

// ── Anular ────────────────────────────────────────────────────────────────────
// One unit of work, sale row locked FOR UPDATE:
//   1. one stock increase per original decrease, exact original quantity
//   2. one opposite cash movement per original cash movement
//   3. one opposite current-account movement per original posting
//   4. estado=anulada
//   5. forced recompute of every register touched

func (s *anulacionService) Anular(ctx context.Context, usuarioID, ventaID uuid.UUID, motivo string) (*dto.VentaResponse, error) {
	if len(motivo) < 5 {
		return nil, apierror.Validation("el motivo de anulación debe tener al menos 5 caracteres",
			map[string]string{"motivo": motivo})
	}

	var (
		venta     *model.Venta
		afectadas map[uuid.UUID]struct{}
	)
	err := s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		afectadas = map[uuid.UUID]struct{}{}
		v, txErr := s.ventas.FindByIDForUpdate(ctx, tx, ventaID)
		if txErr != nil {
			return noEncontradoO(txErr, "venta", ventaID)
		}
		if err := verificarAnulable(v); err != nil {
			return err
		}
		venta = v

		origen := model.NuevaReferencia(model.RefVenta, v.ID)
		anulacion := model.NuevaReferencia(model.RefAnulacionVenta, v.ID)
		descripcion := fmt.Sprintf("Anulación venta #%d: %s", v.Numero, motivo)

		if err := s.revertirStock(ctx, tx, origen, anulacion, usuarioID, descripcion); err != nil {
			return err
		}
		compensados, err := s.revertirCaja(ctx, tx, v, origen, anulacion, usuarioID, descripcion, afectadas)
		if err != nil {
			return err
		}
		if err := s.revertirCuentas(ctx, tx, origen, anulacion, usuarioID, descripcion, compensados); err != nil {
			return err
		}

		ahora := time.Now()
		if err := s.ventas.UpdateCampos(ctx, tx, v.ID, map[string]any{
			"estado":           model.VentaAnulada,
			"anulada_at":       ahora,
			"anulada_por":      usuarioID,
			"motivo_anulacion": motivo,
		}); err != nil {
			return fmt.Errorf("marcar venta anulada: %w", err)
		}

		for cajaID := range afectadas {
			if _, err := s.caja.RecalcularTx(ctx, tx, cajaID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("venta_id", ventaID.String()).Int64("numero", venta.Numero).
		Int("cajas_afectadas", len(afectadas)).Msg("venta: anulada")

	actualizada, err := s.ventas.FindByID(ctx, nil, ventaID)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(actualizada), nil
}

func verificarAnulable(v *model.Venta) error {
	campos := map[string]string{
		"venta_id":         v.ID.String(),
		"estado":           v.Estado,
		"tipo_comprobante": v.TipoComprobante,
	}
	switch {
	case v.Estado == model.VentaAnulada:
		return apierror.AlreadyAnnulled(v.ID.String())
	case v.EsPresupuesto():
		return apierror.ConversionPrecondition("un presupuesto no se anula, se cancela", campos)
	case v.Estado != model.VentaActiva:
		return apierror.ConversionPrecondition("solo se puede anular una venta activa", campos)
	}
	return nil
}

func (s *anulacionService) revertirStock(ctx context.Context, tx *gorm.DB, origen, anulacion model.Referencia, usuarioID uuid.UUID, descripcion string) error {
	movs, err := s.stockRepo.ListMovimientosPorReferencia(ctx, tx, origen)
	if err != nil {
		return err
	}
	for i := range movs {
		m := &movs[i]
		if !m.Cantidad.IsNegative() {
			continue
		}
		if _, err := s.stock.Incrementar(ctx, tx, MovimientoStockInput{
			ProductoID:         m.ProductoID,
			SucursalID:         m.SucursalID,
			Cantidad:           m.Cantidad.Neg(),
			Tipo:               model.MovStockAnulacionVenta,
			Referencia:         anulacion,
			MovimientoOrigenID: &m.ID,
			UsuarioID:          usuarioID,
			Motivo:             descripcion,
		}); err != nil {
			return err
		}
	}
	return nil
}

// revertirCaja returns original movement id → compensating movement id.
func (s *anulacionService) revertirCaja(
	ctx context.Context,
	tx *gorm.DB,
	v *model.Venta,
	origen, anulacion model.Referencia,
	usuarioID uuid.UUID,
	descripcion string,
	afectadas map[uuid.UUID]struct{},
) (map[uuid.UUID]uuid.UUID, error) {
	movs, err := s.cajaRepo.ListMovimientosPorReferencia(ctx, tx, origen)
	if err != nil {
		return nil, err
	}
	compensados := make(map[uuid.UUID]uuid.UUID, len(movs))
	for i := range movs {
		m := &movs[i]
		destino, err := s.cajaDestino(ctx, tx, m.CajaID, v.SucursalID)
		if err != nil {
			return nil, err
		}
		var metodo *model.MetodoPago
		if m.MetodoPagoID != nil {
			metodo, err = s.catalogo.FindMetodoPagoByID(ctx, tx, *m.MetodoPagoID)
			if err != nil {
				return nil, noEncontradoO(err, "método de pago", *m.MetodoPagoID)
			}
		}
		comp, err := s.caja.RegistrarMovimientoTx(ctx, tx, MovimientoCajaInput{
			CajaID:             destino.ID,
			TipoMovimiento:     model.TipoMovAnulacionVenta,
			Direccion:          model.DireccionOpuesta(m.Direccion),
			Metodo:             metodo,
			Monto:              m.Monto,
			Referencia:         anulacion,
			UsuarioID:          usuarioID,
			Descripcion:        descripcion,
			MovimientoOrigenID: &m.ID,
		})
		if err != nil {
			return nil, err
		}
		compensados[m.ID] = comp.ID
		afectadas[destino.ID] = struct{}{}
	}
	return compensados, nil
}

// cajaDestino prefers the register of the original movement and falls back
// to the branch's currently open register.
func (s *anulacionService) cajaDestino(ctx context.Context, tx *gorm.DB, cajaOriginal, sucursalID uuid.UUID) (*model.Caja, error) {
	caja, err := s.caja.ResolverCajaAbiertaTx(ctx, tx, &cajaOriginal, sucursalID)
	if err == nil {
		return caja, nil
	}
	if !apierror.IsKind(err, apierror.KindRegisterClosed) {
		return nil, err
	}
	return s.caja.ResolverCajaAbiertaTx(ctx, tx, nil, sucursalID)
}

func (s *anulacionService) revertirCuentas(
	ctx context.Context,
	tx *gorm.DB,
	origen, anulacion model.Referencia,
	usuarioID uuid.UUID,
	descripcion string,
	compensados map[uuid.UUID]uuid.UUID,
) error {
	movs, err := s.cuentaRepo.ListMovimientosPorReferencia(ctx, tx, origen)
	if err != nil {
		return err
	}
	for i := range movs {
		m := &movs[i]
		var cajaMovID *uuid.UUID
		if m.MovimientoCajaID != nil {
			if id, ok := compensados[*m.MovimientoCajaID]; ok {
				cajaMovID = &id
			}
		}
		if _, err := s.cuentas.RegistrarTx(ctx, tx, MovimientoCuentaInput{
			CuentaID:         m.CuentaCorrienteID,
			Monto:            m.Monto.Neg(),
			Descripcion:      descripcion,
			Referencia:       anulacion,
			Metadata:         map[string]any{"movimiento_original_id": m.ID.String()},
			MovimientoCajaID: cajaMovID,
			UsuarioID:        usuarioID,
		}); err != nil {
			return err
		}
	}
	return nil
}
