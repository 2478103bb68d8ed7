package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/infra"
	"github.com/resguarit/pos-system-sub006/internal/model"
	"github.com/resguarit/pos-system-sub006/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// MaxReintentosAutorizacion failed attempts move a comprobante to error
	// and its job to the dead-letter queue.
	MaxReintentosAutorizacion = 5
	lotePendientes            = 10
)

// Autorizador is the fiscal authorization backend (the AFIP sidecar).
type Autorizador interface {
	Facturar(ctx context.Context, payload infra.AFIPPayload) (*infra.AFIPResponse, error)
}

// ColaAutorizacion hands authorization jobs to the async workers.
type ColaAutorizacion interface {
	EncolarAutorizacion(ctx context.Context, ventaID uuid.UUID) error
	EnviarADLQ(ctx context.Context, ventaID uuid.UUID, motivo string, intentos int)
}

// FacturacionService runs the post-commit authorization step. Nothing here
// touches stock, cash or current-account postings: a failure leaves the
// sale active and the attempt scheduled for retry.
type FacturacionService interface {
	Encolar(ctx context.Context, v *model.Venta) error
	Autorizar(ctx context.Context, ventaID uuid.UUID) (*dto.FacturacionResponse, error)
	// ReintentarPendientes re-attempts due comprobantes; it does nothing
	// while the circuit breaker is open.
	ReintentarPendientes(ctx context.Context) (int, error)
	ObtenerComprobante(ctx context.Context, ventaID uuid.UUID) (*dto.FacturacionResponse, error)
}

type facturacionService struct {
	repo       repository.ComprobanteRepository
	ventas     repository.VentaRepository
	afip       Autorizador
	cb         *infra.CircuitBreaker
	cola       ColaAutorizacion
	cuit       string
	puntoVenta int
}

// NewFacturacionService wires the authorization step. cola may be nil; due
// comprobantes are then only picked up by the retry cron.
func NewFacturacionService(
	repo repository.ComprobanteRepository,
	ventas repository.VentaRepository,
	afip Autorizador,
	cb *infra.CircuitBreaker,
	cola ColaAutorizacion,
	cuit string,
	puntoVenta int,
) FacturacionService {
	return &facturacionService{
		repo:       repo,
		ventas:     ventas,
		afip:       afip,
		cb:         cb,
		cola:       cola,
		cuit:       cuit,
		puntoVenta: puntoVenta,
	}
}

// Encolar records a pending comprobante for v and enqueues the job. When the
// queue is unavailable the attempt is left due for the retry cron.
func (s *facturacionService) Encolar(ctx context.Context, v *model.Venta) error {
	comp, err := s.comprobantePara(ctx, v)
	if err != nil {
		return err
	}
	if comp.Estado == model.ComprobanteEmitido {
		return nil
	}
	s.marcarVenta(ctx, v.ID, map[string]any{"estado_autorizacion": model.ComprobantePendiente})

	if s.cola != nil {
		err := s.cola.EncolarAutorizacion(ctx, v.ID)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("venta_id", v.ID.String()).Msg("facturacion: cola no disponible, se delega al cron")
	}
	ahora := time.Now()
	comp.NextRetryAt = &ahora
	return s.repo.Update(ctx, comp)
}

func (s *facturacionService) Autorizar(ctx context.Context, ventaID uuid.UUID) (*dto.FacturacionResponse, error) {
	v, err := s.ventas.FindByID(ctx, nil, ventaID)
	if err != nil {
		return nil, noEncontradoO(err, "venta", ventaID)
	}
	if v.Estado != model.VentaActiva || !model.EsFiscal(v.TipoComprobante) {
		if model.EsFiscal(v.TipoComprobante) {
			s.descartarPendiente(ctx, v)
		}
		return nil, apierror.Validation("solo las facturas activas requieren autorización fiscal", map[string]string{
			"venta_id":         ventaID.String(),
			"estado":           v.Estado,
			"tipo_comprobante": v.TipoComprobante,
		})
	}
	comp, err := s.comprobantePara(ctx, v)
	if err != nil {
		return nil, err
	}
	if comp.Estado == model.ComprobanteEmitido {
		return comprobanteToResponse(comp), nil
	}

	payload := infra.AFIPPayload{
		TipoCBTE:   tipoCBTE(v.TipoComprobante),
		PuntoVenta: comp.PuntoDeVenta,
		CUIT:       s.cuit,
		MontoNeto:  comp.MontoNeto.InexactFloat64(),
		MontoIVA:   comp.MontoIVA.InexactFloat64(),
		MontoTotal: comp.MontoTotal.InexactFloat64(),
		VentaID:    ventaID.String(),
	}
	var resp *infra.AFIPResponse
	cbErr := s.cb.Execute(func() error {
		r, err := s.afip.Facturar(ctx, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	switch {
	case cbErr != nil:
		s.registrarFallo(ctx, comp, cbErr)
		return comprobanteToResponse(comp), apierror.ExternalAuthorization(ventaID.String(), cbErr)

	case resp.Aprobado():
		cae := resp.CAE
		comp.Estado = model.ComprobanteEmitido
		comp.CAE = &cae
		if venc, err := resp.VencimientoCAE(); err == nil {
			comp.CAEVencimiento = venc
		}
		comp.NextRetryAt = nil
		comp.LastError = nil
		if err := s.repo.Update(ctx, comp); err != nil {
			return nil, err
		}
		s.marcarVenta(ctx, ventaID, map[string]any{
			"cae":                 cae,
			"cae_vencimiento":     comp.CAEVencimiento,
			"estado_autorizacion": model.ComprobanteEmitido,
		})
		log.Info().Str("venta_id", ventaID.String()).Str("cae", cae).
			Int("reintentos", comp.RetryCount).Msg("facturacion: CAE obtenido")
		return comprobanteToResponse(comp), nil

	default:
		motivo := resp.Motivo()
		comp.Estado = model.ComprobanteRechazado
		comp.Observaciones = &motivo
		comp.NextRetryAt = nil
		if err := s.repo.Update(ctx, comp); err != nil {
			return nil, err
		}
		s.marcarVenta(ctx, ventaID, map[string]any{"estado_autorizacion": model.ComprobanteRechazado})
		log.Warn().Str("venta_id", ventaID.String()).Str("motivo", motivo).Msg("facturacion: AFIP rechazó el comprobante")
		return comprobanteToResponse(comp), apierror.ExternalAuthorization(ventaID.String(), errors.New("rechazado: "+motivo))
	}
}

func (s *facturacionService) ReintentarPendientes(ctx context.Context) (int, error) {
	if s.cb.State() == infra.CBOpen {
		log.Debug().Msg("facturacion: circuit breaker abierto, se omite el reintento")
		return 0, nil
	}
	pendientes, err := s.repo.ListPendingRetries(ctx, time.Now(), lotePendientes)
	if err != nil {
		return 0, fmt.Errorf("listar comprobantes pendientes: %w", err)
	}

	procesados := 0
	for i := range pendientes {
		// It may trip mid-batch
		if s.cb.State() == infra.CBOpen {
			break
		}
		if _, err := s.Autorizar(ctx, pendientes[i].VentaID); err != nil &&
			!apierror.IsKind(err, apierror.KindExternalAuthorization) {
			log.Error().Err(err).Str("venta_id", pendientes[i].VentaID.String()).Msg("facturacion: reintento fallido")
		}
		procesados++
	}
	return procesados, nil
}

func (s *facturacionService) ObtenerComprobante(ctx context.Context, ventaID uuid.UUID) (*dto.FacturacionResponse, error) {
	comp, err := s.repo.FindByVentaID(ctx, ventaID)
	if err != nil {
		return nil, noEncontradoO(err, "comprobante de la venta", ventaID)
	}
	return comprobanteToResponse(comp), nil
}

// comprobantePara returns the sale's comprobante, creating it when missing.
func (s *facturacionService) comprobantePara(ctx context.Context, v *model.Venta) (*model.Comprobante, error) {
	comp, err := s.repo.FindByVentaID(ctx, v.ID)
	if err == nil {
		return comp, nil
	}
	if !esNoEncontrado(err) {
		return nil, err
	}
	comp = &model.Comprobante{
		ID:           uuid.New(),
		VentaID:      v.ID,
		Tipo:         v.TipoComprobante,
		PuntoDeVenta: s.puntoVenta,
		MontoNeto:    v.Total.Sub(v.TotalIVA),
		MontoIVA:     v.TotalIVA,
		MontoTotal:   v.Total,
		Estado:       model.ComprobantePendiente,
	}
	if err := s.repo.Create(ctx, comp); err != nil {
		return nil, fmt.Errorf("crear comprobante: %w", err)
	}
	return comp, nil
}

// descartarPendiente closes the pending comprobante of a sale that is no
// longer active so the retry cron stops picking it.
func (s *facturacionService) descartarPendiente(ctx context.Context, v *model.Venta) {
	comp, err := s.repo.FindByVentaID(ctx, v.ID)
	if err != nil {
		if !esNoEncontrado(err) {
			log.Error().Err(err).Str("venta_id", v.ID.String()).Msg("facturacion: no se pudo leer el comprobante")
		}
		return
	}
	if comp.Estado != model.ComprobantePendiente {
		return
	}
	motivo := "venta " + v.Estado
	comp.Estado = model.ComprobanteAnulado
	comp.NextRetryAt = nil
	comp.LastError = &motivo
	if err := s.repo.Update(ctx, comp); err != nil {
		log.Error().Err(err).Str("venta_id", v.ID.String()).Msg("facturacion: no se pudo cerrar el comprobante")
		return
	}
	s.marcarVenta(ctx, v.ID, map[string]any{"estado_autorizacion": model.ComprobanteAnulado})
	log.Info().Str("venta_id", v.ID.String()).Str("estado_venta", v.Estado).
		Msg("facturacion: comprobante pendiente descartado")
}

// registrarFallo schedules the next attempt with exponential backoff, or
// gives up after MaxReintentosAutorizacion.
func (s *facturacionService) registrarFallo(ctx context.Context, comp *model.Comprobante, causa error) {
	comp.RetryCount++
	msg := causa.Error()
	comp.LastError = &msg

	if comp.RetryCount >= MaxReintentosAutorizacion {
		comp.Estado = model.ComprobanteError
		comp.NextRetryAt = nil
		log.Error().Str("venta_id", comp.VentaID.String()).Int("reintentos", comp.RetryCount).
			Msg("facturacion: reintentos agotados, se envía a DLQ")
		if s.cola != nil {
			s.cola.EnviarADLQ(ctx, comp.VentaID,
				fmt.Sprintf("max retries (%d) exceeded: %s", MaxReintentosAutorizacion, msg), comp.RetryCount)
		}
	} else {
		proximo := time.Now().Add(backoffReintento(comp.RetryCount))
		comp.NextRetryAt = &proximo
		log.Warn().Err(causa).Str("venta_id", comp.VentaID.String()).Int("reintentos", comp.RetryCount).
			Time("proximo_intento", proximo).Msg("facturacion: autorización fallida, reintento programado")
	}

	if err := s.repo.Update(ctx, comp); err != nil {
		log.Error().Err(err).Str("venta_id", comp.VentaID.String()).Msg("facturacion: no se pudo guardar el fallo")
	}
	s.marcarVenta(ctx, comp.VentaID, map[string]any{"estado_autorizacion": comp.Estado})
}

func (s *facturacionService) marcarVenta(ctx context.Context, ventaID uuid.UUID, campos map[string]any) {
	if err := s.ventas.UpdateCampos(ctx, nil, ventaID, campos); err != nil {
		log.Error().Err(err).Str("venta_id", ventaID.String()).Msg("facturacion: no se pudo actualizar la venta")
	}
}

// backoffReintento: 30s, 1m, 2m, 4m … capped at 30m.
func backoffReintento(intento int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < intento && d < 30*time.Minute; i++ {
		d *= 2
	}
	return min(d, 30*time.Minute)
}

func tipoCBTE(tipo string) int {
	switch tipo {
	case model.ComprobanteFacturaA:
		return 1
	case model.ComprobanteFacturaB:
		return 6
	default:
		return 11
	}
}

func comprobanteToResponse(c *model.Comprobante) *dto.FacturacionResponse {
	resp := &dto.FacturacionResponse{
		ID:           c.ID.String(),
		VentaID:      c.VentaID.String(),
		Tipo:         c.Tipo,
		Numero:       c.Numero,
		PuntoDeVenta: c.PuntoDeVenta,
		CAE:          c.CAE,
		MontoNeto:    c.MontoNeto,
		MontoIVA:     c.MontoIVA,
		MontoTotal:   c.MontoTotal,
		Estado:       c.Estado,
		RetryCount:   c.RetryCount,
		LastError:    c.LastError,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
	if c.CAEVencimiento != nil {
		s := c.CAEVencimiento.Format("2006-01-02")
		resp.CAEVencimiento = &s
	}
	return resp
}
