package service

import (
	"errors"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/apierror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func parseUUID(campo, valor string) (uuid.UUID, error) {
	id, err := uuid.Parse(valor)
	if err != nil {
		return uuid.Nil, apierror.Validation(campo+" inválido", map[string]string{campo: valor})
	}
	return id, nil
}

func parseUUIDOpcional(campo string, valor *string) (*uuid.UUID, error) {
	if valor == nil || *valor == "" {
		return nil, nil
	}
	id, err := parseUUID(campo, *valor)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func esNoEncontrado(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// noEncontradoO maps a missing row to NotFound and passes other errors through.
func noEncontradoO(err error, entidad string, id uuid.UUID) error {
	if esNoEncontrado(err) {
		return apierror.NotFound(entidad, id.String())
	}
	return err
}

func uuidStr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func fechaStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
