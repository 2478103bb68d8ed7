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

// MovimientoStockInput describes one stock change. Cantidad is the unsigned
// magnitude; the direction comes from the method called.
type MovimientoStockInput struct {
	ProductoID         uuid.UUID
	SucursalID         uuid.UUID
	Cantidad           decimal.Decimal
	Tipo               string
	Referencia         model.Referencia
	MovimientoOrigenID *uuid.UUID
	UsuarioID          uuid.UUID
	Motivo             string
}

// StockService is the stock ledger. Each Incrementar/Decrementar writes
// exactly one MovimientoStock while holding the (product, branch) row lock.
type StockService interface {
	// Tx variants run inside the caller's unit of work
	Incrementar(ctx context.Context, tx *gorm.DB, in MovimientoStockInput) (*model.MovimientoStock, error)
	Decrementar(ctx context.Context, tx *gorm.DB, in MovimientoStockInput) (*model.MovimientoStock, error)

	Ajustar(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
}

type stockService struct {
	repo             repository.StockRepository
	catalogo         repository.CatalogoRepository
	txr              repository.TxRunner
	bloquearNegativo bool
}

// NewStockService builds the stock ledger. When bloquearNegativo is set a
// decrement below zero fails with InsufficientStock; otherwise negative
// stock is allowed.
func NewStockService(
	repo repository.StockRepository,
	catalogo repository.CatalogoRepository,
	txr repository.TxRunner,
	bloquearNegativo bool,
) StockService {
	return &stockService{repo: repo, catalogo: catalogo, txr: txr, bloquearNegativo: bloquearNegativo}
}

func (s *stockService) Incrementar(ctx context.Context, tx *gorm.DB, in MovimientoStockInput) (*model.MovimientoStock, error) {
	return s.mover(ctx, tx, in, 1)
}

func (s *stockService) Decrementar(ctx context.Context, tx *gorm.DB, in MovimientoStockInput) (*model.MovimientoStock, error) {
	return s.mover(ctx, tx, in, -1)
}

func (s *stockService) mover(ctx context.Context, tx *gorm.DB, in MovimientoStockInput, signo int64) (*model.MovimientoStock, error) {
	if !in.Cantidad.IsPositive() {
		return nil, apierror.Validation("la cantidad del movimiento de stock debe ser mayor a cero",
			map[string]string{"producto_id": in.ProductoID.String(), "cantidad": in.Cantidad.String()})
	}

	producto, err := s.catalogo.FindProductoByID(ctx, tx, in.ProductoID)
	if err != nil {
		return nil, noEncontradoO(err, "producto", in.ProductoID)
	}

	stock, err := s.repo.LockOrCreate(ctx, tx, in.ProductoID, in.SucursalID)
	if err != nil {
		return nil, fmt.Errorf("bloqueo de stock: %w", err)
	}

	delta := in.Cantidad.Mul(decimal.NewFromInt(signo))
	resultante := stock.StockActual.Add(delta)
	if signo < 0 && s.bloquearNegativo && resultante.IsNegative() {
		return nil, apierror.InsufficientStock(in.ProductoID.String(), in.SucursalID.String(),
			stock.StockActual, in.Cantidad)
	}

	if err := s.repo.UpdateCantidad(ctx, tx, stock.ID, resultante); err != nil {
		return nil, fmt.Errorf("actualizar stock: %w", err)
	}

	mov := &model.MovimientoStock{
		ID:                 uuid.New(),
		ProductoID:         in.ProductoID,
		SucursalID:         in.SucursalID,
		Tipo:               in.Tipo,
		Cantidad:           delta,
		StockAnterior:      stock.StockActual,
		StockResultante:    resultante,
		PrecioCosto:        producto.PrecioCosto,
		PrecioVenta:        producto.PrecioVenta,
		Referencia:         in.Referencia,
		MovimientoOrigenID: in.MovimientoOrigenID,
		UsuarioID:          in.UsuarioID,
		Motivo:             in.Motivo,
		CreatedAt:          time.Now(),
	}
	if err := s.repo.CreateMovimiento(ctx, tx, mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento de stock: %w", err)
	}
	return mov, nil
}

// Ajustar applies a manual signed delta in its own unit of work.
func (s *stockService) Ajustar(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error) {
	productoID, err := parseUUID("producto_id", req.ProductoID)
	if err != nil {
		return nil, err
	}
	sucursalID, err := parseUUID("sucursal_id", req.SucursalID)
	if err != nil {
		return nil, err
	}
	if req.Delta.IsZero() {
		return nil, apierror.Validation("el ajuste debe ser distinto de cero", map[string]string{"delta": "0"})
	}

	var mov *model.MovimientoStock
	err = s.txr.RunInTx(ctx, func(tx *gorm.DB) error {
		in := MovimientoStockInput{
			ProductoID: productoID,
			SucursalID: sucursalID,
			Cantidad:   req.Delta.Abs(),
			Tipo:       model.MovStockAjusteManual,
			Referencia: model.Referencia{Tipo: model.RefAjuste},
			UsuarioID:  usuarioID,
			Motivo:     req.Motivo,
		}
		var txErr error
		if req.Delta.IsPositive() {
			mov, txErr = s.Incrementar(ctx, tx, in)
		} else {
			mov, txErr = s.Decrementar(ctx, tx, in)
		}
		return txErr
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("producto_id", productoID.String()).
		Str("sucursal_id", sucursalID.String()).
		Str("delta", req.Delta.String()).
		Str("stock_resultante", mov.StockResultante.String()).
		Msg("stock: ajuste manual registrado")
	return movimientoStockToResponse(mov), nil
}

func (s *stockService) ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	productoID, err := parseUUIDOpcional("producto_id", &filter.ProductoID)
	if err != nil {
		return nil, err
	}
	sucursalID, err := parseUUIDOpcional("sucursal_id", &filter.SucursalID)
	if err != nil {
		return nil, err
	}
	f := repository.MovimientoStockFilter{
		ProductoID: productoID,
		SucursalID: sucursalID,
		Tipo:       filter.Tipo,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}

	movs, total, err := s.repo.ListMovimientos(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for i := range movs {
		data = append(data, *movimientoStockToResponse(&movs[i]))
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func movimientoStockToResponse(m *model.MovimientoStock) *dto.MovimientoStockResponse {
	resp := &dto.MovimientoStockResponse{
		ID:                 m.ID.String(),
		ProductoID:         m.ProductoID.String(),
		SucursalID:         m.SucursalID.String(),
		Tipo:               m.Tipo,
		Cantidad:           m.Cantidad,
		StockAnterior:      m.StockAnterior,
		StockResultante:    m.StockResultante,
		PrecioCosto:        m.PrecioCosto,
		PrecioVenta:        m.PrecioVenta,
		ReferenciaTipo:     m.Referencia.Tipo,
		ReferenciaID:       uuidStr(m.Referencia.ID),
		MovimientoOrigenID: uuidStr(m.MovimientoOrigenID),
		Motivo:             m.Motivo,
		CreatedAt:          m.CreatedAt.Format(time.RFC3339),
	}
	if m.Producto != nil {
		resp.ProductoNombre = m.Producto.Nombre
	}
	return resp
}
