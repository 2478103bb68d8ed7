package repository

import (
	"context"

	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, c *model.Caja) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caja, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caja, error)
	// FindAbiertaPorSucursal returns gorm.ErrRecordNotFound when the branch has no open register.
	FindAbiertaPorSucursal(ctx context.Context, tx *gorm.DB, sucursalID uuid.UUID) (*model.Caja, error)
	Update(ctx context.Context, tx *gorm.DB, c *model.Caja) error

	FindTipoMovimiento(ctx context.Context, tx *gorm.DB, codigo string) (*model.TipoMovimientoCaja, error)
	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) ([]model.MovimientoCaja, error)
	ListMovimientosPorReferencia(ctx context.Context, tx *gorm.DB, ref model.Referencia) ([]model.MovimientoCaja, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) Create(ctx context.Context, tx *gorm.DB, c *model.Caja) error {
	return conn(ctx, r.db, tx).Create(c).Error
}

func (r *cajaRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := conn(ctx, r.db, tx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cajaRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := conn(ctx, r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cajaRepo) FindAbiertaPorSucursal(ctx context.Context, tx *gorm.DB, sucursalID uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := conn(ctx, r.db, tx).
		Where("sucursal_id = ? AND estado = ?", sucursalID, model.CajaAbierta).
		First(&c).Error
	return &c, err
}

func (r *cajaRepo) Update(ctx context.Context, tx *gorm.DB, c *model.Caja) error {
	return conn(ctx, r.db, tx).Omit("Movimientos").Save(c).Error
}

func (r *cajaRepo) FindTipoMovimiento(ctx context.Context, tx *gorm.DB, codigo string) (*model.TipoMovimientoCaja, error) {
	var t model.TipoMovimientoCaja
	err := conn(ctx, r.db, tx).Where("codigo = ? AND activo = true", codigo).First(&t).Error
	return &t, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error {
	return conn(ctx, r.db, tx).Omit("MetodoPago").Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := conn(ctx, r.db, tx).Where("caja_id = ?", cajaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) ListMovimientosPorReferencia(ctx context.Context, tx *gorm.DB, ref model.Referencia) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := conn(ctx, r.db, tx).
		Where("referencia_tipo = ? AND referencia_id = ?", ref.Tipo, ref.ID).
		Order("created_at ASC").Find(&movs).Error
	return movs, err
}
