package repository

import (
	"context"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VentaRepository interface {
	// Create inserts the header together with items, VAT breakdown and payments.
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	// FindByIDForUpdate locks the sale row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	// UpdateCampos writes header columns in place (status, payment summary,
	// conversion links, annulment and authorization fields).
	UpdateCampos(ctx context.Context, tx *gorm.DB, id uuid.UUID, campos map[string]any) error
	NextNumero(ctx context.Context, tx *gorm.DB) (int64, error)
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(ctx, r.db, tx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := conn(ctx, r.db, tx).
		Preload("Items.Producto").Preload("Desglose").Preload("Pagos.MetodoPago").
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").Preload("Desglose").Preload("Pagos").
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) UpdateCampos(ctx context.Context, tx *gorm.DB, id uuid.UUID, campos map[string]any) error {
	campos["updated_at"] = time.Now()
	return conn(ctx, r.db, tx).Model(&model.Venta{}).Where("id = ?", id).Updates(campos).Error
}

func (r *ventaRepo) NextNumero(ctx context.Context, tx *gorm.DB) (int64, error) {
	// Uses a PostgreSQL sequence for atomic sale number generation
	var num int64
	err := conn(ctx, r.db, tx).Raw("SELECT nextval('ventas_numero_seq')").Scan(&num).Error
	return num, err
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.SucursalID != "" {
		q = q.Where("sucursal_id = ?", filter.SucursalID)
	}
	if filter.TipoComprobante != "" {
		q = q.Where("tipo_comprobante = ?", filter.TipoComprobante)
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(fecha) = ?", filter.Fecha)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items.Producto").Preload("Desglose").Preload("Pagos.MetodoPago").
		Order("numero DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}
