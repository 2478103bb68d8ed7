package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

type ventanaIP struct {
	count     int
	windowEnd time.Time
}

// RateLimiter is a fixed-window per-IP limiter.
type RateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	ips    map[string]*ventanaIP
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window, ips: map[string]*ventanaIP{}, now: time.Now}
}

// permitir counts one request from ip and reports whether it is within the
// limit, plus the end of the current window.
func (l *RateLimiter) permitir(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.ips[ip]
	if !ok || now.After(v.windowEnd) {
		v = &ventanaIP{windowEnd: now.Add(l.window)}
		l.ips[ip] = v
	}
	v.count++
	return v.count <= l.limit, v.windowEnd
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, fin := l.permitir(c.ClientIP())
		if !ok {
			c.Header("Retry-After", fin.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// StartPurge drops expired windows every few minutes until ctx is done, so
// IPs that never come back do not accumulate.
func (l *RateLimiter) StartPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.purgar(); n > 0 {
					log.Debug().Int("purged", n).Msg("rate limiter entries purged")
				}
			}
		}
	}()
}

func (l *RateLimiter) purgar() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, v := range l.ips {
		if now.After(v.windowEnd) {
			delete(l.ips, ip)
			n++
		}
	}
	return n
}
