package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/infra"
	"github.com/resguarit/pos-system-sub006/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health checks DB and Redis connectivity and reports the fiscal sidecar
// breaker state and the authorization DLQ depth. Only DB or Redis failures
// make it 503: authorization is post-commit and never blocks sales.
func Health(db *gorm.DB, rdb *redis.Client, afipCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			dlq, _ = worker.DLQLength(ctx, rdb, worker.QueueAutorizacion)
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":                 status == http.StatusOK,
			"db":                 dbStatus,
			"redis":              redisStatus,
			"afip_circuit":       afipCB.State().String(),
			"autorizaciones_dlq": dlq,
		})
	}
}
