package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows any origin in development; in production only the listed
// origins are accepted.
func CORS(env string, origenes []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if env != "production" || len(origenes) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origenes
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
