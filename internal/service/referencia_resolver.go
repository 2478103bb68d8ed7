package service

import (
	"context"
	"fmt"

	"github.com/resguarit/pos-system-sub006/internal/model"
	"github.com/resguarit/pos-system-sub006/internal/repository"

	"github.com/google/uuid"
)

// ResolverFunc describes the business document behind a reference id.
type ResolverFunc func(ctx context.Context, id uuid.UUID) (string, error)

// ReferenciaResolver turns the {tipo, id} tagged union stored on ledger
// movements into a human readable description through a per-kind lookup.
type ReferenciaResolver interface {
	Registrar(tipo string, fn ResolverFunc)
	Describir(ctx context.Context, ref model.Referencia) string
}

type referenciaResolver struct {
	lookups map[string]ResolverFunc
}

// NewReferenciaResolver registers the lookups for sale-backed kinds; other
// kinds fall back to a generic label until a resolver is registered.
func NewReferenciaResolver(ventas repository.VentaRepository) ReferenciaResolver {
	r := &referenciaResolver{lookups: map[string]ResolverFunc{}}
	porVenta := func(prefijo string) ResolverFunc {
		return func(ctx context.Context, id uuid.UUID) (string, error) {
			v, err := ventas.FindByID(ctx, nil, id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s #%d", prefijo, v.Numero), nil
		}
	}
	r.Registrar(model.RefVenta, porVenta("Venta"))
	r.Registrar(model.RefAnulacionVenta, porVenta("Anulación venta"))
	return r
}

func (r *referenciaResolver) Registrar(tipo string, fn ResolverFunc) { r.lookups[tipo] = fn }

func (r *referenciaResolver) Describir(ctx context.Context, ref model.Referencia) string {
	if ref.Tipo == "" {
		return ""
	}
	if ref.ID == nil {
		return ref.Tipo
	}
	fn, ok := r.lookups[ref.Tipo]
	if !ok {
		return fmt.Sprintf("%s %s", ref.Tipo, ref.ID.String())
	}
	desc, err := fn(ctx, *ref.ID)
	if err != nil {
		return fmt.Sprintf("%s %s (no encontrado)", ref.Tipo, ref.ID.String())
	}
	return desc
}
