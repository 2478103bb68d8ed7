package handler

import (
	"net/http"
	"reflect"

	"github.com/resguarit/pos-system-sub006/internal/apierror"
	"github.com/resguarit/pos-system-sub006/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; without this, tags like gt=0 panic with
	// "Bad field type decimal.Decimal".
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// On false the response is already written.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// statusPorKind maps domain error kinds to HTTP statuses.
var statusPorKind = map[apierror.Kind]int{
	apierror.KindValidation:             http.StatusUnprocessableEntity,
	apierror.KindPaymentMismatch:        http.StatusConflict,
	apierror.KindInsufficientStock:      http.StatusConflict,
	apierror.KindRegisterClosed:         http.StatusConflict,
	apierror.KindAlreadyAnnulled:        http.StatusConflict,
	apierror.KindConversionPrecondition: http.StatusConflict,
	apierror.KindNotFound:               http.StatusNotFound,
	apierror.KindExternalAuthorization:  http.StatusBadGateway,
}

// respondError writes the error envelope for err. Infrastructure errors are
// logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	kind := apierror.KindOf(err)
	status, ok := statusPorKind[kind]
	if !ok {
		status = http.StatusInternalServerError
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(status, apierror.FromError(err))
}

// paramUUID parses a path parameter. On false the response is already written.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// usuarioID is the operator id carried by the bearer token.
func usuarioID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Token sin usuario valido"))
		return uuid.Nil, false
	}
	return id, true
}
