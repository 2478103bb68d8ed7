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

// MovimientoCuentaInput is one signed posting. Positive amounts increase
// what the holder owes; negative amounts reduce it.
type MovimientoCuentaInput struct {
	CuentaID         uuid.UUID
	Monto            decimal.Decimal
	Descripcion      string
	Referencia       model.Referencia
	Metadata         map[string]any
	MovimientoCajaID *uuid.UUID
	UsuarioID        uuid.UUID
}

type CuentaCorrienteService interface {
	Obtener(ctx context.Context, cuentaID uuid.UUID) (*dto.CuentaCorrienteResponse, error)
	// ProcesarPago posts a balance-reducing movement and, when the method
	// moves money into a register, the matching cash movement.
	ProcesarPago(ctx context.Context, usuarioID, cuentaID uuid.UUID, req dto.PagoCuentaCorrienteRequest) (*dto.MovimientoCuentaCorrienteResponse, error)

	RegistrarTx(ctx context.Context, tx *gorm.DB, in MovimientoCuentaInput) (*model.MovimientoCuentaCorriente, error)
	// CuentaDeClienteTx returns the customer's account locked FOR UPDATE.
	CuentaDeClienteTx(ctx context.Context, tx *gorm.DB, clienteID uuid.UUID) (*model.CuentaCorriente, error)
	SaldoTx(ctx context.Context, tx *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error)
	// CreditoDisponibleTx is the store credit in the holder's favour: max(0, −saldo).
	CreditoDisponibleTx(ctx context.Context, tx *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error)
	// VerificarLimiteTx fails when adding monto would exceed the credit limit.
	VerificarLimiteTx(ctx context.Context, tx *gorm.DB, cuenta *model.CuentaCorriente, monto decimal.Decimal) error
}

type cuentaCorrienteService struct {
	repo     repository.CuentaCorrienteRepository
	catalogo repository.CatalogoRepository
	caja     CajaService
	txr      repository.TxRunner
}

func NewCuentaCorrienteService(
	repo repository.CuentaCorrienteRepository,
	catalogo repository.CatalogoRepository,
	caja CajaService,
	txr repository.TxRunner,
) CuentaCorrienteService {
	return &cuentaCorrienteService{repo: repo, catalogo: catalogo, caja: caja, txr: txr}
}

func (s *cuentaCorrienteService) Obtener(ctx context.Context, cuentaID uuid.UUID) (*dto.CuentaCorrienteResponse, error) {
	cuenta, err := s.repo.FindByID(ctx, nil, cuentaID)
	if err != nil {
		return nil, noEncontradoO(err, "cuenta corriente", cuentaID)
	}
	saldo, err := s.repo.Saldo(ctx, nil, cuentaID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, cuentaID, 50)
	if err != nil {
		return nil, err
	}

	resp := &dto.CuentaCorrienteResponse{
		ID:                 cuenta.ID.String(),
		TitularTipo:        cuenta.TitularTipo,
		TitularID:          cuenta.TitularID.String(),
		LimiteCredito:      cuenta.LimiteCredito,
		Saldo:              saldo,
		CreditoDisponible:  creditoDe(saldo),
		UltimosMovimientos: make([]dto.MovimientoCuentaCorrienteResponse, 0, len(movs)),
	}
	for i := range movs {
		resp.UltimosMovimientos = append(resp.UltimosMovimientos, *movimientoCuentaToResponse(&movs[i]))
	}
	return resp, nil
}

func (s *cuentaCorrienteService) ProcesarPago(ctx context.Context, usuarioID, cuentaID uuid.UUID, req dto.PagoCuentaCorrienteRequest) (*dto.MovimientoCuentaCorrienteResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.Validation("el monto del pago debe ser mayor a cero",
			map[string]string{"monto": req.Monto.String()})
	}
	metodoID, err := parseUUID("metodo_pago_id", req.MetodoPagoID)
	if err != nil {
		return nil, err
	}
	sucursalID, err := parseUUID("sucursal_id", req.SucursalID)
	if err != nil {
		return nil, err
	}
	descripcion := req.Descripcion
	if descripcion == "" {
		descripcion = "Cobro de cuenta corriente"
	}

	var mov *model.MovimientoCuentaCorriente
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		cuenta, txErr := s.repo.FindByIDForUpdate(ctx, tx, cuentaID)
		if txErr != nil {
			return noEncontradoO(txErr, "cuenta corriente", cuentaID)
		}
		metodo, txErr := s.catalogo.FindMetodoPagoByID(ctx, tx, metodoID)
		if txErr != nil {
			return noEncontradoO(txErr, "método de pago", metodoID)
		}
		if metodo.CuentaCorriente || metodo.CreditoTienda || !metodo.Activo {
			return apierror.Validation("el método de pago no puede cancelar una cuenta corriente",
				map[string]string{"metodo_pago_id": metodoID.String()})
		}

		movID := uuid.New()
		var cajaMovID *uuid.UUID
		caja, txErr := s.caja.ResolverCajaAbiertaTx(ctx, tx, nil, sucursalID)
		switch {
		case txErr == nil:
			cajaMov, postErr := s.caja.RegistrarMovimientoTx(ctx, tx, MovimientoCajaInput{
				CajaID:         caja.ID,
				TipoMovimiento: model.TipoMovCobroCuentaCorriente,
				Direccion:      model.Entrada,
				Metodo:         metodo,
				Monto:          req.Monto,
				Referencia:     model.NuevaReferencia(model.RefCobroCuentaCorriente, movID),
				UsuarioID:      usuarioID,
				Descripcion:    descripcion,
			})
			if postErr != nil {
				return postErr
			}
			cajaMovID = &cajaMov.ID
		case apierror.IsKind(txErr, apierror.KindRegisterClosed):
			// Physical cash needs a register; electronic payments may be
			// settled without one.
			if metodo.AfectaCaja {
				return txErr
			}
		default:
			return txErr
		}

		mov, txErr = s.registrar(ctx, tx, cuenta, movID, MovimientoCuentaInput{
			CuentaID:         cuenta.ID,
			Monto:            req.Monto.Neg(),
			Descripcion:      descripcion,
			Referencia:       model.NuevaReferencia(model.RefCobroCuentaCorriente, movID),
			Metadata:         map[string]any{"metodo_pago": metodo.Codigo},
			MovimientoCajaID: cajaMovID,
			UsuarioID:        usuarioID,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("cuenta_id", cuentaID.String()).Str("monto", req.Monto.StringFixed(2)).
		Msg("cuenta_corriente: pago registrado")
	return movimientoCuentaToResponse(mov), nil
}

func (s *cuentaCorrienteService) RegistrarTx(ctx context.Context, tx *gorm.DB, in MovimientoCuentaInput) (*model.MovimientoCuentaCorriente, error) {
	cuenta, err := s.repo.FindByIDForUpdate(ctx, tx, in.CuentaID)
	if err != nil {
		return nil, noEncontradoO(err, "cuenta corriente", in.CuentaID)
	}
	return s.registrar(ctx, tx, cuenta, uuid.New(), in)
}

func (s *cuentaCorrienteService) registrar(ctx context.Context, tx *gorm.DB, cuenta *model.CuentaCorriente, id uuid.UUID, in MovimientoCuentaInput) (*model.MovimientoCuentaCorriente, error) {
	if in.Monto.IsZero() {
		return nil, apierror.Validation("el movimiento de cuenta corriente no puede ser cero", nil)
	}
	mov := &model.MovimientoCuentaCorriente{
		ID:                id,
		CuentaCorrienteID: cuenta.ID,
		Monto:             redondear(in.Monto),
		Descripcion:       in.Descripcion,
		Referencia:        in.Referencia,
		MovimientoCajaID:  in.MovimientoCajaID,
		UsuarioID:         in.UsuarioID,
		CreatedAt:         time.Now(),
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("metadata de movimiento: %w", err)
		}
		mov.Metadata = datatypes.JSON(raw)
	}
	if err := s.repo.CreateMovimiento(ctx, tx, mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento de cuenta corriente: %w", err)
	}
	return mov, nil
}

func (s *cuentaCorrienteService) CuentaDeClienteTx(ctx context.Context, tx *gorm.DB, clienteID uuid.UUID) (*model.CuentaCorriente, error) {
	cuenta, err := s.repo.FindByTitularForUpdate(ctx, tx, model.TitularCliente, clienteID)
	if err != nil {
		if esNoEncontrado(err) {
			return nil, apierror.Validation("el cliente no tiene cuenta corriente habilitada",
				map[string]string{"cliente_id": clienteID.String()})
		}
		return nil, err
	}
	if !cuenta.Activa {
		return nil, apierror.Validation("la cuenta corriente del cliente está inactiva",
			map[string]string{"cuenta_id": cuenta.ID.String()})
	}
	return cuenta, nil
}

func (s *cuentaCorrienteService) SaldoTx(ctx context.Context, tx *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.Saldo(ctx, tx, cuentaID)
}

func (s *cuentaCorrienteService) CreditoDisponibleTx(ctx context.Context, tx *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error) {
	saldo, err := s.repo.Saldo(ctx, tx, cuentaID)
	if err != nil {
		return decimal.Zero, err
	}
	return creditoDe(saldo), nil
}

func (s *cuentaCorrienteService) VerificarLimiteTx(ctx context.Context, tx *gorm.DB, cuenta *model.CuentaCorriente, monto decimal.Decimal) error {
	if !cuenta.LimiteCredito.IsPositive() {
		return nil
	}
	saldo, err := s.repo.Saldo(ctx, tx, cuenta.ID)
	if err != nil {
		return err
	}
	if saldo.Add(monto).GreaterThan(cuenta.LimiteCredito) {
		return apierror.Validation("la operación supera el límite de crédito de la cuenta corriente", map[string]string{
			"cuenta_id":      cuenta.ID.String(),
			"limite_credito": cuenta.LimiteCredito.StringFixed(2),
			"saldo":          saldo.StringFixed(2),
			"solicitado":     monto.StringFixed(2),
		})
	}
	return nil
}

func creditoDe(saldo decimal.Decimal) decimal.Decimal {
	if saldo.IsNegative() {
		return saldo.Neg()
	}
	return decimal.Zero
}

func movimientoCuentaToResponse(m *model.MovimientoCuentaCorriente) *dto.MovimientoCuentaCorrienteResponse {
	resp := &dto.MovimientoCuentaCorrienteResponse{
		ID:               m.ID.String(),
		Monto:            m.Monto,
		Descripcion:      m.Descripcion,
		ReferenciaTipo:   m.Referencia.Tipo,
		ReferenciaID:     uuidStr(m.Referencia.ID),
		MovimientoCajaID: uuidStr(m.MovimientoCajaID),
		CreatedAt:        m.CreatedAt.Format(time.RFC3339),
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &resp.Metadata)
	}
	return resp
}
