package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"
	"github.com/resguarit/pos-system-sub006/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MovimientoCajaInput describes one posting to a register. Monto is the
// unsigned magnitude; Direccion overrides the movement type's default.
type MovimientoCajaInput struct {
	CajaID             uuid.UUID
	TipoMovimiento     string
	Direccion          string
	Metodo             *model.MetodoPago
	Monto              decimal.Decimal
	Referencia         model.Referencia
	UsuarioID          uuid.UUID
	Descripcion        string
	MovimientoOrigenID *uuid.UUID
}

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.CajaResponse, error)
	Cerrar(ctx context.Context, req dto.CerrarCajaRequest) (*dto.CajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoManualRequest) (*dto.MovimientoCajaResponse, error)
	ObtenerReporte(ctx context.Context, cajaID uuid.UUID) (*dto.CajaResponse, error)
	ObtenerAbierta(ctx context.Context, sucursalID uuid.UUID) (*dto.CajaResponse, error)
	Recalcular(ctx context.Context, cajaID uuid.UUID) (*dto.CajaResponse, error)

	// RegistrarMovimientoTx posts to an open register and refreshes its
	// cached aggregates under the register row lock.
	RegistrarMovimientoTx(ctx context.Context, tx *gorm.DB, in MovimientoCajaInput) (*model.MovimientoCaja, error)
	// ResolverCajaAbiertaTx returns the given register when open, or the open
	// register of the branch when cajaID is nil. Always an explicit query.
	ResolverCajaAbiertaTx(ctx context.Context, tx *gorm.DB, cajaID *uuid.UUID, sucursalID uuid.UUID) (*model.Caja, error)
	RecalcularTx(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) (*model.Caja, error)
}

type cajaService struct {
	repo     repository.CajaRepository
	catalogo repository.CatalogoRepository
	txr      repository.TxRunner
	refs     ReferenciaResolver
}

func NewCajaService(
	repo repository.CajaRepository,
	catalogo repository.CatalogoRepository,
	txr repository.TxRunner,
	refs ReferenciaResolver,
) CajaService {
	return &cajaService{repo: repo, catalogo: catalogo, txr: txr, refs: refs}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.CajaResponse, error) {
	sucursalID, err := parseUUID("sucursal_id", req.SucursalID)
	if err != nil {
		return nil, err
	}
	if req.MontoInicial.IsNegative() {
		return nil, apierror.Validation("el monto inicial no puede ser negativo",
			map[string]string{"monto_inicial": req.MontoInicial.String()})
	}

	var caja *model.Caja
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		// Guard: one open register per branch (also a partial unique index)
		existente, findErr := s.repo.FindAbiertaPorSucursal(ctx, tx, sucursalID)
		if findErr == nil && existente != nil {
			return cajaYaAbierta(sucursalID, existente.ID)
		}
		if findErr != nil && !esNoEncontrado(findErr) {
			return findErr
		}

		caja = &model.Caja{
			ID:                    uuid.New(),
			SucursalID:            sucursalID,
			UsuarioID:             usuarioID,
			AbiertaAt:             time.Now(),
			MontoInicial:          redondear(req.MontoInicial),
			Estado:                model.CajaAbierta,
			SaldoEfectivoEsperado: redondear(req.MontoInicial),
			TotalesPorMetodo:      datatypes.JSON([]byte("{}")),
		}
		if err := s.repo.Create(ctx, tx, caja); err != nil {
			if repository.EsViolacionUnicidad(err) {
				return cajaYaAbierta(sucursalID, uuid.Nil)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("caja_id", caja.ID.String()).Str("sucursal_id", sucursalID.String()).
		Str("monto_inicial", caja.MontoInicial.StringFixed(2)).Msg("caja: abierta")
	return cajaToResponse(caja, nil), nil
}

func cajaYaAbierta(sucursalID, cajaID uuid.UUID) error {
	campos := map[string]string{"sucursal_id": sucursalID.String()}
	if cajaID != uuid.Nil {
		campos["caja_id"] = cajaID.String()
	}
	return apierror.Validation("ya existe una caja abierta en esta sucursal", campos)
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Blind count: the difference is computed after receiving the declared amount.

func (s *cajaService) Cerrar(ctx context.Context, req dto.CerrarCajaRequest) (*dto.CajaResponse, error) {
	cajaID, err := parseUUID("caja_id", req.CajaID)
	if err != nil {
		return nil, err
	}

	var caja *model.Caja
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		c, txErr := s.RecalcularTx(ctx, tx, cajaID)
		if txErr != nil {
			return txErr
		}
		if c.Estado != model.CajaAbierta {
			return apierror.RegisterClosed(cajaID.String())
		}

		declarado := redondear(req.MontoDeclarado)
		diferencia := declarado.Sub(c.SaldoEfectivoEsperado)
		pct := porcentajeDesvio(diferencia, c.SaldoEfectivoEsperado)
		clasificacion := clasificarDesvio(pct)

		// A critical difference needs supervisor observations
		if clasificacion == "critico" && (req.Observaciones == nil || *req.Observaciones == "") {
			return apierror.Validation("desvío crítico: se requieren observaciones del supervisor", map[string]string{
				"esperado":   c.SaldoEfectivoEsperado.StringFixed(2),
				"declarado":  declarado.StringFixed(2),
				"diferencia": diferencia.StringFixed(2),
			})
		}

		ahora := time.Now()
		c.MontoFinal = &declarado
		c.Diferencia = &diferencia
		c.ClasificacionDiferencia = &clasificacion
		c.Observaciones = req.Observaciones
		c.Estado = model.CajaCerrada
		c.CerradaAt = &ahora
		if err := s.repo.Update(ctx, tx, c); err != nil {
			return err
		}
		caja = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("caja_id", caja.ID.String()).Str("diferencia", caja.Diferencia.StringFixed(2)).
		Str("clasificacion", *caja.ClasificacionDiferencia).Msg("caja: cerrada")
	return cajaToResponse(caja, nil), nil
}

// ── Movimientos manuales ──────────────────────────────────────────────────────
// Movements are immutable: no Update/Delete.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoManualRequest) (*dto.MovimientoCajaResponse, error) {
	cajaID, err := parseUUID("caja_id", req.CajaID)
	if err != nil {
		return nil, err
	}
	metodoID, err := parseUUID("metodo_pago_id", req.MetodoPagoID)
	if err != nil {
		return nil, err
	}

	ref := model.Referencia{Tipo: model.RefAjuste}
	if req.Tipo == model.TipoMovGasto || req.Tipo == model.TipoMovPagoProveedor {
		ref.Tipo = model.RefGasto
	}

	var mov *model.MovimientoCaja
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		metodo, txErr := s.catalogo.FindMetodoPagoByID(ctx, tx, metodoID)
		if txErr != nil {
			return noEncontradoO(txErr, "método de pago", metodoID)
		}
		if metodo.CreditoTienda || metodo.CuentaCorriente {
			return apierror.Validation("el método de pago no admite movimientos manuales de caja",
				map[string]string{"metodo_pago_id": metodoID.String()})
		}
		mov, txErr = s.RegistrarMovimientoTx(ctx, tx, MovimientoCajaInput{
			CajaID:         cajaID,
			TipoMovimiento: req.Tipo,
			Metodo:         metodo,
			Monto:          req.Monto,
			Referencia:     ref,
			UsuarioID:      usuarioID,
			Descripcion:    req.Descripcion,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return s.movimientoToResponse(ctx, mov), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerReporte(ctx context.Context, cajaID uuid.UUID) (*dto.CajaResponse, error) {
	caja, err := s.repo.FindByID(ctx, nil, cajaID)
	if err != nil {
		return nil, noEncontradoO(err, "caja", cajaID)
	}
	movs, err := s.repo.ListMovimientos(ctx, nil, cajaID)
	if err != nil {
		return nil, err
	}
	resp := cajaToResponse(caja, nil)
	for i := range movs {
		resp.Movimientos = append(resp.Movimientos, *s.movimientoToResponse(ctx, &movs[i]))
	}
	return resp, nil
}

func (s *cajaService) ObtenerAbierta(ctx context.Context, sucursalID uuid.UUID) (*dto.CajaResponse, error) {
	caja, err := s.repo.FindAbiertaPorSucursal(ctx, nil, sucursalID)
	if err != nil {
		if esNoEncontrado(err) {
			return nil, apierror.RegisterClosed("")
		}
		return nil, err
	}
	return cajaToResponse(caja, nil), nil
}

// Recalcular forces a fresh recompute of the cached aggregates.
func (s *cajaService) Recalcular(ctx context.Context, cajaID uuid.UUID) (*dto.CajaResponse, error) {
	var caja *model.Caja
	err := s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		c, txErr := s.RecalcularTx(ctx, tx, cajaID)
		caja = c
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return cajaToResponse(caja, nil), nil
}

// ── Tx-level ledger operations ───────────────────────────────────────────────

func (s *cajaService) RegistrarMovimientoTx(ctx context.Context, tx *gorm.DB, in MovimientoCajaInput) (*model.MovimientoCaja, error) {
	if !in.Monto.IsPositive() {
		return nil, apierror.Validation("el monto del movimiento de caja debe ser mayor a cero",
			map[string]string{"monto": in.Monto.String()})
	}

	caja, err := s.repo.FindByIDForUpdate(ctx, tx, in.CajaID)
	if err != nil {
		return nil, noEncontradoO(err, "caja", in.CajaID)
	}
	if caja.Estado != model.CajaAbierta {
		return nil, apierror.RegisterClosed(in.CajaID.String())
	}

	tipo, err := s.repo.FindTipoMovimiento(ctx, tx, in.TipoMovimiento)
	if err != nil {
		if esNoEncontrado(err) {
			return nil, apierror.Validation("tipo de movimiento de caja desconocido",
				map[string]string{"tipo_movimiento": in.TipoMovimiento})
		}
		return nil, err
	}
	direccion := in.Direccion
	if direccion == "" {
		direccion = tipo.Direccion
	}

	mov := &model.MovimientoCaja{
		ID:                 uuid.New(),
		CajaID:             caja.ID,
		TipoMovimiento:     tipo.Codigo,
		Direccion:          direccion,
		Monto:              redondear(in.Monto),
		Referencia:         in.Referencia,
		UsuarioID:          in.UsuarioID,
		AfectaSaldo:        true,
		Descripcion:        in.Descripcion,
		MovimientoOrigenID: in.MovimientoOrigenID,
		CreatedAt:          time.Now(),
	}
	if in.Metodo != nil {
		mov.MetodoPagoID = &in.Metodo.ID
		// Deferred payments are recorded for traceability only
		mov.AfectaSaldo = !in.Metodo.CuentaCorriente
	}
	if err := s.repo.CreateMovimiento(ctx, tx, mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento de caja: %w", err)
	}

	if err := s.refrescar(ctx, tx, caja); err != nil {
		return nil, err
	}
	return mov, nil
}

func (s *cajaService) ResolverCajaAbiertaTx(ctx context.Context, tx *gorm.DB, cajaID *uuid.UUID, sucursalID uuid.UUID) (*model.Caja, error) {
	if cajaID != nil {
		caja, err := s.repo.FindByIDForUpdate(ctx, tx, *cajaID)
		if err != nil {
			return nil, noEncontradoO(err, "caja", *cajaID)
		}
		if caja.Estado != model.CajaAbierta {
			return nil, apierror.RegisterClosed(cajaID.String())
		}
		if caja.SucursalID != sucursalID {
			return nil, apierror.Validation("la caja no pertenece a la sucursal", map[string]string{
				"caja_id":     cajaID.String(),
				"sucursal_id": sucursalID.String(),
			})
		}
		return caja, nil
	}

	caja, err := s.repo.FindAbiertaPorSucursal(ctx, tx, sucursalID)
	if err != nil {
		if esNoEncontrado(err) {
			return nil, apierror.RegisterClosed("")
		}
		return nil, err
	}
	return caja, nil
}

func (s *cajaService) RecalcularTx(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) (*model.Caja, error) {
	caja, err := s.repo.FindByIDForUpdate(ctx, tx, cajaID)
	if err != nil {
		return nil, noEncontradoO(err, "caja", cajaID)
	}
	if err := s.refrescar(ctx, tx, caja); err != nil {
		return nil, err
	}
	return caja, nil
}

// refrescar rewrites the cached aggregates from the register's movements.
// The caller must hold the register row lock.
func (s *cajaService) refrescar(ctx context.Context, tx *gorm.DB, caja *model.Caja) error {
	movs, err := s.repo.ListMovimientos(ctx, tx, caja.ID)
	if err != nil {
		return err
	}
	metodos, err := s.catalogo.ListMetodosPago(ctx, tx)
	if err != nil {
		return err
	}
	porID := make(map[uuid.UUID]model.MetodoPago, len(metodos))
	for _, m := range metodos {
		porID[m.ID] = m
	}

	agg := CalcularAgregados(caja.MontoInicial, movs, porID)
	totales, err := json.Marshal(agg.TotalesPorMetodo)
	if err != nil {
		return err
	}
	ahora := time.Now()
	caja.SaldoEfectivoEsperado = agg.SaldoEfectivoEsperado
	caja.TotalesPorMetodo = datatypes.JSON(totales)
	caja.RecalculadoAt = &ahora
	return s.repo.Update(ctx, tx, caja)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func porcentajeDesvio(diferencia, esperado decimal.Decimal) decimal.Decimal {
	if esperado.IsZero() {
		if diferencia.IsZero() {
			return decimal.Zero
		}
		return cien
	}
	return diferencia.Div(esperado).Mul(cien).Round(2)
}

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	one := decimal.NewFromInt(1)
	five := decimal.NewFromInt(5)
	switch {
	case abs.LessThanOrEqual(one):
		return "normal"
	case abs.LessThanOrEqual(five):
		return "advertencia"
	default:
		return "critico"
	}
}

func totalesDe(raw datatypes.JSON) map[string]decimal.Decimal {
	totales := map[string]decimal.Decimal{}
	if len(raw) == 0 {
		return totales
	}
	_ = json.Unmarshal(raw, &totales)
	return totales
}

func cajaToResponse(c *model.Caja, movs []dto.MovimientoCajaResponse) *dto.CajaResponse {
	resp := &dto.CajaResponse{
		ID:                    c.ID.String(),
		SucursalID:            c.SucursalID.String(),
		UsuarioID:             c.UsuarioID.String(),
		Estado:                c.Estado,
		MontoInicial:          c.MontoInicial,
		SaldoEfectivoEsperado: c.SaldoEfectivoEsperado,
		TotalesPorMetodo:      totalesDe(c.TotalesPorMetodo),
		MontoFinal:            c.MontoFinal,
		Observaciones:         c.Observaciones,
		AbiertaAt:             c.AbiertaAt.Format(time.RFC3339),
		CerradaAt:             fechaStr(c.CerradaAt),
		Movimientos:           movs,
	}
	if c.Diferencia != nil && c.ClasificacionDiferencia != nil {
		resp.Desvio = &dto.DesvioResponse{
			Monto:         *c.Diferencia,
			Porcentaje:    porcentajeDesvio(*c.Diferencia, c.SaldoEfectivoEsperado),
			Clasificacion: *c.ClasificacionDiferencia,
		}
	}
	return resp
}

func (s *cajaService) movimientoToResponse(ctx context.Context, m *model.MovimientoCaja) *dto.MovimientoCajaResponse {
	resp := &dto.MovimientoCajaResponse{
		ID:                 m.ID.String(),
		TipoMovimiento:     m.TipoMovimiento,
		Direccion:          m.Direccion,
		MetodoPagoID:       uuidStr(m.MetodoPagoID),
		Monto:              m.Monto,
		AfectaSaldo:        m.AfectaSaldo,
		Descripcion:        m.Descripcion,
		ReferenciaTipo:     m.Referencia.Tipo,
		ReferenciaID:       uuidStr(m.Referencia.ID),
		MovimientoOrigenID: uuidStr(m.MovimientoOrigenID),
		CreatedAt:          m.CreatedAt.Format(time.RFC3339),
	}
	if s.refs != nil {
		resp.Referencia = s.refs.Describir(ctx, m.Referencia)
	}
	return resp
}
