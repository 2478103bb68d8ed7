package repository

import (
	"context"

	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CuentaCorrienteRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CuentaCorriente, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CuentaCorriente, error)
	FindByTitularForUpdate(ctx context.Context, tx *gorm.DB, titularTipo string, titularID uuid.UUID) (*model.CuentaCorriente, error)

	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCuentaCorriente) error
	// Saldo is the sum of every movement of the account.
	Saldo(ctx context.Context, tx *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error)
	ListMovimientos(ctx context.Context, cuentaID uuid.UUID, limit int) ([]model.MovimientoCuentaCorriente, error)
	ListMovimientosPorReferencia(ctx context.Context, tx *gorm.DB, ref model.Referencia) ([]model.MovimientoCuentaCorriente, error)
}

type cuentaCorrienteRepo struct{ db *gorm.DB }

func NewCuentaCorrienteRepository(db *gorm.DB) CuentaCorrienteRepository {
	return &cuentaCorrienteRepo{db: db}
}

func (r *cuentaCorrienteRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CuentaCorriente, error) {
	var c model.CuentaCorriente
	err := conn(ctx, r.db, tx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cuentaCorrienteRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CuentaCorriente, error) {
	var c model.CuentaCorriente
	err := conn(ctx, r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cuentaCorrienteRepo) FindByTitularForUpdate(ctx context.Context, tx *gorm.DB, titularTipo string, titularID uuid.UUID) (*model.CuentaCorriente, error) {
	var c model.CuentaCorriente
	err := conn(ctx, r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("titular_tipo = ? AND titular_id = ? AND activa = true", titularTipo, titularID).
		First(&c).Error
	return &c, err
}

func (r *cuentaCorrienteRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCuentaCorriente) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *cuentaCorrienteRepo) Saldo(ctx context.Context, tx *gorm.DB, cuentaID uuid.UUID) (decimal.Decimal, error) {
	var res struct{ Saldo decimal.Decimal }
	err := conn(ctx, r.db, tx).Model(&model.MovimientoCuentaCorriente{}).
		Select("COALESCE(SUM(monto), 0) AS saldo").
		Where("cuenta_corriente_id = ?", cuentaID).
		Scan(&res).Error
	return res.Saldo, err
}

func (r *cuentaCorrienteRepo) ListMovimientos(ctx context.Context, cuentaID uuid.UUID, limit int) ([]model.MovimientoCuentaCorriente, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	var movs []model.MovimientoCuentaCorriente
	err := r.db.WithContext(ctx).Where("cuenta_corriente_id = ?", cuentaID).
		Order("created_at DESC").Limit(limit).Find(&movs).Error
	return movs, err
}

func (r *cuentaCorrienteRepo) ListMovimientosPorReferencia(ctx context.Context, tx *gorm.DB, ref model.Referencia) ([]model.MovimientoCuentaCorriente, error) {
	var movs []model.MovimientoCuentaCorriente
	err := conn(ctx, r.db, tx).
		Where("referencia_tipo = ? AND referencia_id = ?", ref.Tipo, ref.ID).
		Order("created_at ASC").Find(&movs).Error
	return movs, err
}
