// Package apierror provides the error taxonomy of the ledger core and the
// standardized error envelope returned to clients. Domain errors carry the
// offending values so a rejected operation can be diagnosed from the response
// alone; infrastructure errors never reach clients verbatim.
package apierror

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies a domain error. Handlers map kinds to HTTP statuses.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindPaymentMismatch        Kind = "payment_mismatch"
	KindInsufficientStock      Kind = "insufficient_stock"
	KindRegisterClosed         Kind = "register_closed"
	KindAlreadyAnnulled        Kind = "already_annulled"
	KindConversionPrecondition Kind = "conversion_precondition"
	KindExternalAuthorization  Kind = "external_authorization"
	KindNotFound               Kind = "not_found"
	KindInternal               Kind = "internal_error"
)

// Error is a structured domain error.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

// Is matches on Kind so errors.Is(err, &Error{Kind: KindRegisterClosed}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// PaymentMismatch names both sums.
func PaymentMismatch(esperado, recibido decimal.Decimal) *Error {
	return &Error{
		Kind: KindPaymentMismatch,
		Message: fmt.Sprintf("los pagos (%s) no coinciden con el total a cobrar (%s)",
			recibido.StringFixed(2), esperado.StringFixed(2)),
		Fields: map[string]string{
			"esperado": esperado.StringFixed(2),
			"recibido": recibido.StringFixed(2),
		},
	}
}

func InsufficientStock(productoID, sucursalID string, disponible, solicitado decimal.Decimal) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Message: fmt.Sprintf("stock insuficiente para el producto %s: disponible %s, solicitado %s",
			productoID, disponible.String(), solicitado.String()),
		Fields: map[string]string{
			"producto_id": productoID,
			"sucursal_id": sucursalID,
			"disponible":  disponible.String(),
			"solicitado":  solicitado.String(),
		},
	}
}

func RegisterClosed(cajaID string) *Error {
	msg := "no hay caja abierta"
	if cajaID != "" {
		msg = fmt.Sprintf("la caja %s no está abierta", cajaID)
	}
	return &Error{Kind: KindRegisterClosed, Message: msg, Fields: map[string]string{"caja_id": cajaID}}
}

func AlreadyAnnulled(ventaID string) *Error {
	return &Error{
		Kind:    KindAlreadyAnnulled,
		Message: fmt.Sprintf("la venta %s ya está anulada", ventaID),
		Fields:  map[string]string{"venta_id": ventaID},
	}
}

func ConversionPrecondition(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindConversionPrecondition, Message: msg, Fields: fields}
}

// ExternalAuthorization is only ever returned after the ledger transaction
// committed; the sale it refers to stays active.
func ExternalAuthorization(ventaID string, cause error) *Error {
	return &Error{
		Kind:    KindExternalAuthorization,
		Message: fmt.Sprintf("la autorización fiscal de la venta %s falló: %v", ventaID, cause),
		Fields:  map[string]string{"venta_id": ventaID},
	}
}

func NotFound(entidad, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s no encontrado", entidad, id),
		Fields:  map[string]string{"id": id},
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Kind: KindInternal, Message: msg}
}

// FromError builds the envelope for err. Non-domain errors are replaced by a
// generic message.
func FromError(err error) *APIError {
	var e *Error
	if errors.As(err, &e) {
		return &APIError{Kind: e.Kind, Message: e.Message, Fields: e.Fields}
	}
	return &APIError{Kind: KindInternal, Message: "Error interno del servidor"}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Kind: KindValidation, Message: "Error de validacion", Fields: fields}
}
