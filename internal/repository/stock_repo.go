package repository

import (
	"context"

	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovimientoStockFilter defines filters for listing stock movements.
type MovimientoStockFilter struct {
	ProductoID *uuid.UUID
	SucursalID *uuid.UUID
	Tipo       string
	Page       int
	Limit      int
}

type StockRepository interface {
	// LockOrCreate creates the (product, branch) row on first touch and returns
	// it locked FOR UPDATE.
	LockOrCreate(ctx context.Context, tx *gorm.DB, productoID, sucursalID uuid.UUID) (*model.Stock, error)
	UpdateCantidad(ctx context.Context, tx *gorm.DB, id uuid.UUID, cantidad decimal.Decimal) error
	Find(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Stock, error)

	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoStock) error
	ListMovimientosPorReferencia(ctx context.Context, tx *gorm.DB, ref model.Referencia) ([]model.MovimientoStock, error)
	ListMovimientos(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) LockOrCreate(ctx context.Context, tx *gorm.DB, productoID, sucursalID uuid.UUID) (*model.Stock, error) {
	q := conn(ctx, r.db, tx)
	nuevo := model.Stock{ProductoID: productoID, SucursalID: sucursalID}
	err := q.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "producto_id"}, {Name: "sucursal_id"}},
		DoNothing: true,
	}).Create(&nuevo).Error
	if err != nil {
		return nil, err
	}

	var s model.Stock
	err = q.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("producto_id = ? AND sucursal_id = ?", productoID, sucursalID).
		First(&s).Error
	return &s, err
}

func (r *stockRepo) UpdateCantidad(ctx context.Context, tx *gorm.DB, id uuid.UUID, cantidad decimal.Decimal) error {
	return conn(ctx, r.db, tx).Model(&model.Stock{}).Where("id = ?", id).
		Update("stock_actual", cantidad).Error
}

func (r *stockRepo) Find(ctx context.Context, productoID, sucursalID uuid.UUID) (*model.Stock, error) {
	var s model.Stock
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND sucursal_id = ?", productoID, sucursalID).
		First(&s).Error
	return &s, err
}

func (r *stockRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoStock) error {
	return conn(ctx, r.db, tx).Omit("Producto").Create(m).Error
}

func (r *stockRepo) ListMovimientosPorReferencia(ctx context.Context, tx *gorm.DB, ref model.Referencia) ([]model.MovimientoStock, error) {
	var movs []model.MovimientoStock
	err := conn(ctx, r.db, tx).
		Where("referencia_tipo = ? AND referencia_id = ?", ref.Tipo, ref.ID).
		Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *stockRepo) ListMovimientos(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).
		Preload("Producto")
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.SucursalID != nil {
		q = q.Where("sucursal_id = ?", *filter.SucursalID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movimientos []model.MovimientoStock
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}
