package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/config"

	"github.com/rs/zerolog/log"
)

// Circuit breaker guarding the fiscal authorization sidecar.
// Closed lets calls through, Open fails fast, Half-Open lets probes through
// until enough succeed to close again. Ledger transactions never go through
// it: authorization always runs after commit.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the sidecar is considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Nombre           string        // used in logs; defaults to "afip"
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // consecutive half-open successes before closing
	OpenTimeout      time.Duration // time spent open before probing
	// OnCambio, if set, is called after every state transition with mu released.
	OnCambio func(de, a CBState)
}

// CircuitBreakerConfigFrom reads the thresholds from the runtime config.
func CircuitBreakerConfigFrom(cfg *config.Config) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nombre:           "afip",
		FailureThreshold: cfg.AFIPCBFailures,
		SuccessThreshold: 2,
		OpenTimeout:      cfg.AFIPOpenTimeout(),
	}
}

type cambioEstado struct{ de, a CBState }

type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    CBState
	racha    int // consecutive failures while closed, successes while half-open
	abiertoA time.Time
}

// NewCircuitBreaker starts closed. Zero values fall back to 5 failures,
// 2 successes and 60s open.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Nombre == "" {
		cfg.Nombre = "afip"
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now, state: CBClosed}
}

// State reports the current state, moving Open to Half-Open once the open
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	cambio := cb.vencerApertura()
	st := cb.state
	cb.mu.Unlock()
	cb.notificar(cambio, nil)
	return st
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	var cambio *cambioEstado
	if err != nil {
		cambio = cb.fallo()
	} else {
		cambio = cb.exito()
	}
	cb.mu.Unlock()
	cb.notificar(cambio, err)
	return err
}

// The methods below run with mu held and return the transition, if any, so
// logging and the callback happen after unlocking.

func (cb *CircuitBreaker) vencerApertura() *cambioEstado {
	if cb.state != CBOpen || cb.now().Sub(cb.abiertoA) < cb.cfg.OpenTimeout {
		return nil
	}
	return cb.pasarA(CBHalfOpen)
}

func (cb *CircuitBreaker) fallo() *cambioEstado {
	switch cb.state {
	case CBHalfOpen:
		return cb.pasarA(CBOpen)
	case CBClosed:
		cb.racha++
		if cb.racha >= cb.cfg.FailureThreshold {
			return cb.pasarA(CBOpen)
		}
	}
	return nil
}

func (cb *CircuitBreaker) exito() *cambioEstado {
	switch cb.state {
	case CBClosed:
		cb.racha = 0
	case CBHalfOpen:
		cb.racha++
		if cb.racha >= cb.cfg.SuccessThreshold {
			return cb.pasarA(CBClosed)
		}
	}
	return nil
}

func (cb *CircuitBreaker) pasarA(nuevo CBState) *cambioEstado {
	c := &cambioEstado{de: cb.state, a: nuevo}
	cb.state = nuevo
	cb.racha = 0
	if nuevo == CBOpen {
		cb.abiertoA = cb.now()
	}
	return c
}

func (cb *CircuitBreaker) notificar(c *cambioEstado, causa error) {
	if c == nil {
		return
	}
	ev := log.Info()
	if c.a == CBOpen {
		ev = log.Warn().Err(causa).Dur("reapertura_en", cb.cfg.OpenTimeout)
	}
	ev.Str("circuito", cb.cfg.Nombre).Str("de", c.de.String()).Str("a", c.a.String()).
		Msg("circuit breaker: cambio de estado")
	if cb.cfg.OnCambio != nil {
		cb.cfg.OnCambio(c.de, c.a)
	}
}
