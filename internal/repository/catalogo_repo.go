package repository

import (
	"context"

	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogoRepository is the read-only view over the product catalog and the
// payment-method registry. Master data is maintained elsewhere.
type CatalogoRepository interface {
	FindProductoByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Producto, error)
	FindProductosByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Producto, error)
	FindProductoByBarcode(ctx context.Context, barcode string) (*model.Producto, error)
	FindMetodoPagoByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MetodoPago, error)
	FindMetodoPagoByCodigo(ctx context.Context, tx *gorm.DB, codigo string) (*model.MetodoPago, error)
	ListMetodosPago(ctx context.Context, tx *gorm.DB) ([]model.MetodoPago, error)
}

type catalogoRepo struct{ db *gorm.DB }

func NewCatalogoRepository(db *gorm.DB) CatalogoRepository { return &catalogoRepo{db: db} }

func (r *catalogoRepo) FindProductoByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := conn(ctx, r.db, tx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *catalogoRepo) FindProductosByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Producto, error) {
	var productos []model.Producto
	if len(ids) == 0 {
		return productos, nil
	}
	err := conn(ctx, r.db, tx).Where("id IN ?", ids).Find(&productos).Error
	return productos, err
}

func (r *catalogoRepo) FindProductoByBarcode(ctx context.Context, barcode string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo_barras = ? AND activo = true", barcode).First(&p).Error
	return &p, err
}

func (r *catalogoRepo) FindMetodoPagoByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MetodoPago, error) {
	var m model.MetodoPago
	err := conn(ctx, r.db, tx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *catalogoRepo) FindMetodoPagoByCodigo(ctx context.Context, tx *gorm.DB, codigo string) (*model.MetodoPago, error) {
	var m model.MetodoPago
	err := conn(ctx, r.db, tx).Where("codigo = ?", codigo).First(&m).Error
	return &m, err
}

func (r *catalogoRepo) ListMetodosPago(ctx context.Context, tx *gorm.DB) ([]model.MetodoPago, error) {
	var metodos []model.MetodoPago
	err := conn(ctx, r.db, tx).Order("codigo ASC").Find(&metodos).Error
	return metodos, err
}
