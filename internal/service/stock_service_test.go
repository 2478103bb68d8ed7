package service

import (
	"context"
	"testing"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/dto"
	"github.com/resguarit/pos-system-sub006/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStock_DecrementarPermiteNegativoPorDefecto(t *testing.T) {
	f := newFixture(t)
	f.fijarStock(f.prodA, "1")

	mov, err := f.stock.Decrementar(context.Background(), nil, MovimientoStockInput{
		ProductoID: f.prodA.ID,
		SucursalID: f.sucursal,
		Cantidad:   dec("3"),
		Tipo:       model.MovStockVenta,
		UsuarioID:  f.usuario,
	})
	require.NoError(t, err)

	requireDec(t, "-3", mov.Cantidad)
	requireDec(t, "1", mov.StockAnterior)
	requireDec(t, "-2", mov.StockResultante)
	requireDec(t, "-2", f.stockDe(f.prodA))
	// price snapshots
	requireDec(t, "60", mov.PrecioCosto)
	requireDec(t, "100", mov.PrecioVenta)
}

func TestStock_DecrementarBloqueado(t *testing.T) {
	f := newFixture(t, conStockBloqueado)
	f.fijarStock(f.prodA, "1")

	_, err := f.stock.Decrementar(context.Background(), nil, MovimientoStockInput{
		ProductoID: f.prodA.ID,
		SucursalID: f.sucursal,
		Cantidad:   dec("2"),
		Tipo:       model.MovStockVenta,
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInsufficientStock, apierror.KindOf(err))

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "1", apiErr.Fields["disponible"])
	assert.Equal(t, "2", apiErr.Fields["solicitado"])

	requireDec(t, "1", f.stockDe(f.prodA))
	assert.Empty(t, f.db.movsStock)
}

func TestStock_PrimerMovimientoCreaLaFila(t *testing.T) {
	f := newFixture(t)

	mov, err := f.stock.Incrementar(context.Background(), nil, MovimientoStockInput{
		ProductoID: f.prodB.ID,
		SucursalID: f.sucursal,
		Cantidad:   dec("12"),
		Tipo:       model.MovStockAjusteManual,
	})
	require.NoError(t, err)
	assert.True(t, mov.StockAnterior.IsZero())
	requireDec(t, "12", f.stockDe(f.prodB))
}

func TestStock_CantidadNoPositiva(t *testing.T) {
	f := newFixture(t)
	_, err := f.stock.Incrementar(context.Background(), nil, MovimientoStockInput{
		ProductoID: f.prodA.ID,
		SucursalID: f.sucursal,
		Cantidad:   dec("0"),
	})
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestStock_ProductoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.stock.Incrementar(context.Background(), nil, MovimientoStockInput{
		ProductoID: uuid.New(),
		SucursalID: f.sucursal,
		Cantidad:   dec("1"),
	})
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestStock_Ajustar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.stock.Ajustar(ctx, f.usuario, dto.AjusteStockRequest{
		ProductoID: f.prodA.ID.String(),
		SucursalID: f.sucursal.String(),
		Delta:      dec("10"),
		Motivo:     "recuento inicial",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovStockAjusteManual, resp.Tipo)
	requireDec(t, "10", resp.StockResultante)

	resp, err = f.stock.Ajustar(ctx, f.usuario, dto.AjusteStockRequest{
		ProductoID: f.prodA.ID.String(),
		SucursalID: f.sucursal.String(),
		Delta:      dec("-4"),
		Motivo:     "rotura",
	})
	require.NoError(t, err)
	requireDec(t, "-4", resp.Cantidad)
	requireDec(t, "6", f.stockDe(f.prodA))

	_, err = f.stock.Ajustar(ctx, f.usuario, dto.AjusteStockRequest{
		ProductoID: f.prodA.ID.String(),
		SucursalID: f.sucursal.String(),
		Delta:      dec("0"),
		Motivo:     "nada",
	})
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

// Every stock change leaves exactly one movement whose quantities chain.
func TestStock_MovimientosEncadenados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, delta := range []string{"5", "-2", "-7", "3"} {
		_, err := f.stock.Ajustar(ctx, f.usuario, dto.AjusteStockRequest{
			ProductoID: f.prodA.ID.String(),
			SucursalID: f.sucursal.String(),
			Delta:      dec(delta),
			Motivo:     "ajuste",
		})
		require.NoError(t, err)
	}

	require.Len(t, f.db.movsStock, 4)
	for i, m := range f.db.movsStock {
		assert.True(t, m.StockAnterior.Add(m.Cantidad).Equal(m.StockResultante), "movimiento %d", i)
		if i > 0 {
			assert.True(t, f.db.movsStock[i-1].StockResultante.Equal(m.StockAnterior), "movimiento %d", i)
		}
	}
	requireDec(t, "-1", f.stockDe(f.prodA))
}

func TestStock_ListarMovimientos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, p := range []model.Producto{f.prodA, f.prodB, f.prodA} {
		_, err := f.stock.Ajustar(ctx, f.usuario, dto.AjusteStockRequest{
			ProductoID: p.ID.String(),
			SucursalID: f.sucursal.String(),
			Delta:      dec("1"),
			Motivo:     "alta",
		})
		require.NoError(t, err)
	}

	resp, err := f.stock.ListarMovimientos(ctx, dto.MovimientoStockFilter{
		ProductoID: f.prodA.ID.String(),
		Page:       1,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Data, 2)

	_, err = f.stock.ListarMovimientos(ctx, dto.MovimientoStockFilter{ProductoID: "x", Page: 1, Limit: 10})
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}
