package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubVentas struct {
	err      error
	recibido *dto.CrearVentaRequest
	usuario  uuid.UUID
}

func (s *stubVentas) CrearVenta(_ context.Context, usuarioID uuid.UUID, req dto.CrearVentaRequest) (*dto.VentaResponse, error) {
	s.recibido, s.usuario = &req, usuarioID
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VentaResponse{ID: uuid.NewString(), Numero: 1, Estado: "activa", Total: decimal.NewFromInt(242)}, nil
}

func (s *stubVentas) ObtenerVenta(_ context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VentaResponse{ID: id.String()}, nil
}

func (s *stubVentas) ListVentas(_ context.Context, f dto.VentaFilter) (*dto.VentaListResponse, error) {
	return &dto.VentaListResponse{Page: f.Page, Limit: f.Limit}, nil
}

type stubAnulaciones struct {
	err    error
	motivo string
}

func (s *stubAnulaciones) Anular(_ context.Context, _, ventaID uuid.UUID, motivo string) (*dto.VentaResponse, error) {
	s.motivo = motivo
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VentaResponse{ID: ventaID.String(), Estado: "anulada"}, nil
}

const operador = "0b0c4a52-3b7e-4c1a-9d1e-2f1a8e7b6c01"

// conOperador stands in for JWTAuth.
func conOperador(c *gin.Context) {
	c.Set(middleware.ClaimsKey, &middleware.JWTClaims{UserID: operador, Rol: "supervisor"})
	c.Next()
}

func motorVentas(v *stubVentas, a *stubAnulaciones, autenticado bool) *gin.Engine {
	h := NewVentasHandler(v, a, nil)
	r := gin.New()
	if autenticado {
		r.Use(conOperador)
	}
	r.POST("/v1/ventas", h.Crear)
	r.GET("/v1/ventas", h.Listar)
	r.GET("/v1/ventas/:id", h.Obtener)
	r.POST("/v1/ventas/:id/anular", h.Anular)
	return r
}

func enviar(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ventaValida() map[string]any {
	return map[string]any{
		"sucursal_id":      uuid.NewString(),
		"tipo_comprobante": "ticket",
		"items":            []map[string]any{{"producto_id": uuid.NewString(), "cantidad": 2}},
		"pagos":            []map[string]any{{"metodo_pago_id": uuid.NewString(), "monto": "242.00"}},
	}
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) apierror.APIError {
	t.Helper()
	var env apierror.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCrearVenta_OK(t *testing.T) {
	v := &stubVentas{}
	w := enviar(motorVentas(v, &stubAnulaciones{}, true), http.MethodPost, "/v1/ventas", ventaValida())

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, v.recibido)
	assert.Equal(t, operador, v.usuario.String())
	assert.True(t, v.recibido.Pagos[0].Monto.Equal(decimal.NewFromInt(242)))
	assert.True(t, v.recibido.Items[0].Cantidad.Equal(decimal.NewFromInt(2)))
}

func TestCrearVenta_JSONInvalido(t *testing.T) {
	w := enviar(motorVentas(&stubVentas{}, &stubAnulaciones{}, true), http.MethodPost, "/v1/ventas", "{nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCrearVenta_Validacion(t *testing.T) {
	tests := []struct {
		nombre string
		mutar  func(map[string]any)
		campo  string
	}{
		{"sin ítems", func(b map[string]any) { b["items"] = []map[string]any{} }, "Items"},
		{"tipo desconocido", func(b map[string]any) { b["tipo_comprobante"] = "remito" }, "TipoComprobante"},
		{"sucursal inválida", func(b map[string]any) { b["sucursal_id"] = "123" }, "SucursalID"},
		{"monto cero", func(b map[string]any) {
			b["pagos"] = []map[string]any{{"metodo_pago_id": uuid.NewString(), "monto": 0}}
		}, "Monto"},
		{"cantidad negativa", func(b map[string]any) {
			b["items"] = []map[string]any{{"producto_id": uuid.NewString(), "cantidad": -1}}
		}, "Cantidad"},
	}
	for _, tt := range tests {
		t.Run(tt.nombre, func(t *testing.T) {
			v := &stubVentas{}
			body := ventaValida()
			tt.mutar(body)

			w := enviar(motorVentas(v, &stubAnulaciones{}, true), http.MethodPost, "/v1/ventas", body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			env := envelope(t, w)
			assert.Equal(t, apierror.KindValidation, env.Kind)
			assert.Contains(t, env.Fields, tt.campo)
			assert.Nil(t, v.recibido, "el servicio no debe invocarse")
		})
	}
}

func TestCrearVenta_SinOperador(t *testing.T) {
	w := enviar(motorVentas(&stubVentas{}, &stubAnulaciones{}, false), http.MethodPost, "/v1/ventas", ventaValida())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRespondError_StatusPorKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apierror.Validation("x", nil), http.StatusUnprocessableEntity},
		{apierror.PaymentMismatch(decimal.NewFromInt(242), decimal.NewFromInt(240)), http.StatusConflict},
		{apierror.InsufficientStock("p", "s", decimal.Zero, decimal.NewFromInt(1)), http.StatusConflict},
		{apierror.RegisterClosed(""), http.StatusConflict},
		{apierror.AlreadyAnnulled("v"), http.StatusConflict},
		{apierror.ConversionPrecondition("x", nil), http.StatusConflict},
		{apierror.NotFound("venta", "v"), http.StatusNotFound},
		{apierror.ExternalAuthorization("v", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("pq: deadlock detected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(apierror.KindOf(tt.err)), func(t *testing.T) {
			v := &stubVentas{err: tt.err}
			w := enviar(motorVentas(v, &stubAnulaciones{}, true), http.MethodPost, "/v1/ventas", ventaValida())
			assert.Equal(t, tt.status, w.Code)
			env := envelope(t, w)
			assert.Equal(t, apierror.KindOf(tt.err), env.Kind)
			assert.NotContains(t, env.Message, "deadlock")
		})
	}
}

func TestCrearVenta_DescuadreInformaLasSumas(t *testing.T) {
	v := &stubVentas{err: apierror.PaymentMismatch(decimal.NewFromInt(242), decimal.NewFromInt(240))}
	w := enviar(motorVentas(v, &stubAnulaciones{}, true), http.MethodPost, "/v1/ventas", ventaValida())

	env := envelope(t, w)
	assert.Equal(t, "242.00", env.Fields["esperado"])
	assert.Equal(t, "240.00", env.Fields["recibido"])
}

func TestObtenerVenta(t *testing.T) {
	r := motorVentas(&stubVentas{}, &stubAnulaciones{}, true)

	w := enviar(r, http.MethodGet, "/v1/ventas/no-es-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := uuid.NewString()
	w = enviar(r, http.MethodGet, "/v1/ventas/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.VentaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
}

func TestListarVentas_Paginacion(t *testing.T) {
	r := motorVentas(&stubVentas{}, &stubAnulaciones{}, true)

	w := enviar(r, http.MethodGet, "/v1/ventas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.VentaListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 50, resp.Limit)

	w = enviar(r, http.MethodGet, "/v1/ventas?limit=500", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAnularVenta(t *testing.T) {
	a := &stubAnulaciones{}
	r := motorVentas(&stubVentas{}, a, true)
	path := "/v1/ventas/" + uuid.NewString() + "/anular"

	w := enviar(r, http.MethodPost, path, map[string]string{"motivo": "no"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, a.motivo)

	w = enviar(r, http.MethodPost, path, map[string]string{"motivo": "cliente arrepentido"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cliente arrepentido", a.motivo)

	a.err = apierror.AlreadyAnnulled("x")
	w = enviar(r, http.MethodPost, path, map[string]string{"motivo": "cliente arrepentido"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierror.KindAlreadyAnnulled, envelope(t, w).Kind)
}
