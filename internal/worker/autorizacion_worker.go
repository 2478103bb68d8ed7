package worker

// autorizacion_worker.go
// Processes fiscal authorization jobs from QueueAutorizacion. The sale is
// already committed when a job arrives; failures are recorded on the
// comprobante and re-attempted by the retry cron.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AutorizarFunc authorizes one committed sale.
type AutorizarFunc func(ctx context.Context, ventaID uuid.UUID) error

// NewAutorizacionHandler adapts an AutorizarFunc into a job Handler.
func NewAutorizacionHandler(autorizar AutorizarFunc) Handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var payload AutorizacionPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("autorizacion_worker: invalid payload: %w", err)
		}
		ventaID, err := uuid.Parse(payload.VentaID)
		if err != nil {
			return fmt.Errorf("autorizacion_worker: invalid venta_id %q", payload.VentaID)
		}
		if err := autorizar(ctx, ventaID); err != nil {
			return err
		}
		log.Info().Str("venta_id", payload.VentaID).Msg("autorizacion_worker: venta autorizada")
		return nil
	}
}
