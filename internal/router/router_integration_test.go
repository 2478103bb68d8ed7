//go:build integration

package router

// Runs the full HTTP stack against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/config"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/infra"
	"github.com/resguarit/pos-system-sub006/internal/middleware"
	"github.com/resguarit/pos-system-sub006/internal/worker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Setup ────────────────────────────────────────────────────────────────────

type testEnv struct {
	server     *httptest.Server
	db         *gorm.DB
	token      string // supervisor JWT
	sucursalID uuid.UUID
	productoID uuid.UUID
	efectivoID uuid.UUID
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("pos_test"),
		tcPostgres.WithUsername("pos"),
		tcPostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:             8000,
		Env:              "test",
		WorkerPoolSize:   1,
		RateLimit:        1000,
		DatabaseURL:      pgURL,
		TxMaxReintentos:  3,
		RedisURL:         rdURL,
		JWTSecret:        "test-secret-key",
		AFIPSidecarURL:   "http://localhost:9999", // never reached: only tickets are issued
		AFIPCUITEmisor:   "20123456789",
		AFIPPuntoDeVenta: 1,
		PagoAjusteMaximo: "1.00",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, infra.RunMigrations(db))

	env := &testEnv{db: db, sucursalID: uuid.New(), productoID: uuid.New()}

	require.NoError(t, db.Exec(`INSERT INTO productos (id, codigo_barras, nombre, precio_costo, precio_venta, alicuota_iva, activo, created_at, updated_at)
		VALUES (?, '7790001000011', 'Yerba 1kg', 60, 100, 21, true, NOW(), NOW())`, env.productoID).Error)
	require.NoError(t, db.Exec(`INSERT INTO stocks (producto_id, sucursal_id, stock_actual, created_at, updated_at)
		VALUES (?, ?, 10, NOW(), NOW())`, env.productoID, env.sucursalID).Error)
	require.NoError(t, db.Raw(`SELECT id FROM metodos_pago WHERE codigo = 'efectivo'`).Scan(&env.efectivoID).Error)
	require.NotEqual(t, uuid.Nil, env.efectivoID)

	afipCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfigFrom(cfg))
	dispatcher := worker.NewDispatcher(rdb)
	svc := NuevosServicios(cfg, db, afipCB, dispatcher)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)

	env.server = httptest.NewServer(New(cfg, db, rdb, afipCB, svc, limiter))
	t.Cleanup(env.server.Close)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
		UserID: uuid.NewString(),
		Rol:    "supervisor",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	env.token = tok

	return env
}

func (e *testEnv) stock(t *testing.T) decimal.Decimal {
	t.Helper()
	var s decimal.Decimal
	require.NoError(t, e.db.Raw(`SELECT stock_actual FROM stocks WHERE producto_id = ? AND sucursal_id = ?`,
		e.productoID, e.sucursalID).Scan(&s).Error)
	return s
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestIntegracion_VentaYAnulacion(t *testing.T) {
	env := setupTestEnv(t)
	srv, tok := env.server, env.token

	resp := do(t, srv, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// sale without an open register is rejected and leaves no trace
	venta := map[string]any{
		"sucursal_id":      env.sucursalID.String(),
		"tipo_comprobante": "ticket",
		"items":            []map[string]any{{"producto_id": env.productoID.String(), "cantidad": 2}},
		"pagos":            []map[string]any{{"metodo_pago_id": env.efectivoID.String(), "monto": "242.00"}},
	}
	resp = do(t, srv, http.MethodPost, "/v1/ventas", jsonBody(t, venta), tok)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, env.stock(t).Equal(decimal.NewFromInt(10)))

	// open register
	resp = do(t, srv, http.MethodPost, "/v1/caja/abrir", jsonBody(t, map[string]any{
		"sucursal_id":   env.sucursalID.String(),
		"monto_inicial": "1000",
	}), tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var caja dto.CajaResponse
	decodeJSON(t, resp, &caja)

	// sale
	resp = do(t, srv, http.MethodPost, "/v1/ventas", jsonBody(t, venta), tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v dto.VentaResponse
	decodeJSON(t, resp, &v)
	assert.Equal(t, "activa", v.Estado)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(242)), "total %s", v.Total)
	assert.True(t, env.stock(t).Equal(decimal.NewFromInt(8)))

	resp = do(t, srv, http.MethodGet, "/v1/caja/"+caja.ID, nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &caja)
	assert.True(t, caja.SaldoEfectivoEsperado.Equal(decimal.NewFromInt(1242)), "saldo %s", caja.SaldoEfectivoEsperado)

	// annul
	resp = do(t, srv, http.MethodPost, "/v1/ventas/"+v.ID+"/anular", jsonBody(t, map[string]string{
		"motivo": "cliente arrepentido",
	}), tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &v)
	assert.Equal(t, "anulada", v.Estado)
	assert.True(t, env.stock(t).Equal(decimal.NewFromInt(10)))

	resp = do(t, srv, http.MethodGet, "/v1/caja/"+caja.ID, nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &caja)
	assert.True(t, caja.SaldoEfectivoEsperado.Equal(decimal.NewFromInt(1000)), "saldo %s", caja.SaldoEfectivoEsperado)

	// second annulment conflicts
	resp = do(t, srv, http.MethodPost, "/v1/ventas/"+v.ID+"/anular", jsonBody(t, map[string]string{
		"motivo": "cliente arrepentido",
	}), tok)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// recomputed balance matches the cached one
	resp = do(t, srv, http.MethodPost, "/v1/caja/"+caja.ID+"/recalcular", nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &caja)
	assert.True(t, caja.SaldoEfectivoEsperado.Equal(decimal.NewFromInt(1000)))
}
