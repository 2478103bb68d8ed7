package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAutorizacion = "jobs:autorizacion"

	JobAutorizacion = "autorizacion"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AutorizacionPayload is the body of an authorization job.
type AutorizacionPayload struct {
	VentaID string `json:"venta_id"`
}

// Handler processes one job payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs into Redis lists and routes dequeued jobs
// to the handler registered for their type.
type Dispatcher struct {
	rdb      *redis.Client
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb, handlers: map[string]Handler{}}
}

// Register binds a handler to a job type. Call before StartWorkerPool.
func (d *Dispatcher) Register(jobType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[jobType] = h
}

// EncolarAutorizacion pushes a fiscal authorization job for a committed sale.
func (d *Dispatcher) EncolarAutorizacion(ctx context.Context, ventaID uuid.UUID) error {
	return d.enqueue(ctx, QueueAutorizacion, JobAutorizacion, AutorizacionPayload{VentaID: ventaID.String()})
}

// EnviarADLQ moves an authorization that exhausted its retries to the DLQ.
func (d *Dispatcher) EnviarADLQ(ctx context.Context, ventaID uuid.UUID, motivo string, intentos int) {
	payload, _ := json.Marshal(AutorizacionPayload{VentaID: ventaID.String()})
	SendToDLQ(ctx, d.rdb, QueueAutorizacion, JobAutorizacion, payload, motivo, intentos)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (d *Dispatcher) StartWorkerPool(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go d.runWorker(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	queues := []string{QueueAutorizacion}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := d.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			d.processJob(ctx, result[0], result[1])
		}
	}
}

func (d *Dispatcher) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, d.rdb, queue, "desconocido", json.RawMessage(fmt.Sprintf("%q", raw)), "payload inválido", 0)
		return
	}

	d.mu.RLock()
	h, ok := d.handlers[job.Type]
	d.mu.RUnlock()
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler registered for job type")
		SendToDLQ(ctx, d.rdb, queue, job.Type, job.Payload, "sin handler registrado", 0)
		return
	}

	log.Info().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	if err := h(ctx, job.Payload); err != nil {
		log.Warn().Err(err).Str("type", job.Type).Msg("job failed")
	}
}
