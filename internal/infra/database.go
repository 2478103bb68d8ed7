package infra

import (
	"fmt"

	"github.com/resguarit/pos-system-sub006/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date (see RunMigrations).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates every ledger table, then applies the
// idempotent SQL patches GORM cannot express. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.MetodoPago{},
		&model.Producto{},
		&model.TipoMovimientoCaja{},
		&model.Caja{},
		&model.MovimientoCaja{},
		&model.Stock{},
		&model.MovimientoStock{},
		&model.CuentaCorriente{},
		&model.MovimientoCuentaCorriente{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaIvaDesglose{},
		&model.VentaPago{},
		&model.Comprobante{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL and seed statements. Each one uses
// IF NOT EXISTS / ON CONFLICT DO NOTHING so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"sale number sequence",
			`CREATE SEQUENCE IF NOT EXISTS ventas_numero_seq START 1`},

		// Every insert states afecta_saldo explicitly; a column default
		// would make GORM replace a false value.
		{"afecta_saldo without default",
			`ALTER TABLE movimientos_caja ALTER COLUMN afecta_saldo DROP DEFAULT`},

		// At most one open register per branch; the service checks first,
		// this catches the race between two concurrent openings.
		{"one open register per branch", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_cajas_una_abierta_por_sucursal
    ON cajas (sucursal_id)
    WHERE estado = 'abierta'`},

		{"pending authorization retries", `
CREATE INDEX IF NOT EXISTS idx_comprobantes_pending_retry
    ON comprobantes (next_retry_at)
    WHERE estado = 'pendiente' AND next_retry_at IS NOT NULL`},

		{"cash movement types", `
INSERT INTO tipos_movimiento_caja (codigo, nombre, direccion, activo) VALUES
    ('venta',                  'Venta',                       'entrada', true),
    ('anulacion_venta',        'Anulación de venta',          'salida',  true),
    ('ingreso_manual',         'Ingreso manual',              'entrada', true),
    ('egreso_manual',          'Egreso manual',               'salida',  true),
    ('gasto',                  'Gasto',                       'salida',  true),
    ('cobro_cuenta_corriente', 'Cobro de cuenta corriente',   'entrada', true),
    ('pago_proveedor',         'Pago a proveedor',            'salida',  true)
ON CONFLICT (codigo) DO NOTHING`},

		{"payment methods", `
INSERT INTO metodos_pago (codigo, nombre, afecta_caja, cuenta_corriente, credito_tienda, activo) VALUES
    ('efectivo',         'Efectivo',          true,  false, false, true),
    ('debito',           'Tarjeta de débito', false, false, false, true),
    ('credito',          'Tarjeta de crédito',false, false, false, true),
    ('transferencia',    'Transferencia',     false, false, false, true),
    ('qr',               'QR',                false, false, false, true),
    ('cuenta_corriente', 'Cuenta corriente',  false, true,  false, true),
    ('credito_tienda',   'Crédito de tienda', false, false, true,  true)
ON CONFLICT (codigo) DO NOTHING`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
