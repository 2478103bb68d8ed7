package router

import (
	"github.com/resguarit/pos-system-sub006/internal/config"
	"github.com/resguarit/pos-system-sub006/internal/handler"
	"github.com/resguarit/pos-system-sub006/internal/infra"
	"github.com/resguarit/pos-system-sub006/internal/middleware"
	"github.com/resguarit/pos-system-sub006/internal/repository"
	"github.com/resguarit/pos-system-sub006/internal/service"
	"github.com/resguarit/pos-system-sub006/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Servicios is the wired service layer. The composition root needs it too:
// the worker pool and retry cron call into Facturacion.
type Servicios struct {
	Catalogo     repository.CatalogoRepository
	Stock        service.StockService
	Caja         service.CajaService
	Cuentas      service.CuentaCorrienteService
	Ventas       service.VentaService
	Anulaciones  service.AnulacionService
	Presupuestos service.PresupuestoService
	Facturacion  service.FacturacionService
}

// NuevosServicios builds the dependency graph Service ← Repository ← DB.
// Authorization jobs go through the dispatcher's Redis queue.
func NuevosServicios(cfg *config.Config, db *gorm.DB, afipCB *infra.CircuitBreaker, dispatcher *worker.Dispatcher) *Servicios {
	// ── Repositories ─────────────────────────────────────────────────────────
	txr := repository.NewTxRunner(db, cfg.TxMaxReintentos)
	catalogoRepo := repository.NewCatalogoRepository(db)
	stockRepo := repository.NewStockRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	cuentaRepo := repository.NewCuentaCorrienteRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	comprobanteRepo := repository.NewComprobanteRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	refs := service.NewReferenciaResolver(ventaRepo)
	stockSvc := service.NewStockService(stockRepo, catalogoRepo, txr, cfg.StockBloquearNegativo)
	cajaSvc := service.NewCajaService(cajaRepo, catalogoRepo, txr, refs)
	cuentaSvc := service.NewCuentaCorrienteService(cuentaRepo, catalogoRepo, cajaSvc, txr)

	afipClient := infra.NewAFIPClient(cfg.AFIPSidecarURL)
	facturacionSvc := service.NewFacturacionService(comprobanteRepo, ventaRepo, afipClient, afipCB, dispatcher,
		cfg.AFIPCUITEmisor, cfg.AFIPPuntoDeVenta)

	ajuste := cfg.AjusteMaximoPagos()
	return &Servicios{
		Catalogo:     catalogoRepo,
		Stock:        stockSvc,
		Caja:         cajaSvc,
		Cuentas:      cuentaSvc,
		Ventas:       service.NewVentaService(ventaRepo, catalogoRepo, stockSvc, cajaSvc, cuentaSvc, txr, facturacionSvc, ajuste),
		Anulaciones:  service.NewAnulacionService(ventaRepo, stockRepo, cajaRepo, cuentaRepo, catalogoRepo, stockSvc, cajaSvc, cuentaSvc, txr),
		Presupuestos: service.NewPresupuestoService(ventaRepo, catalogoRepo, stockSvc, cajaSvc, cuentaSvc, txr, facturacionSvc, ajuste),
		Facturacion:  facturacionSvc,
	}
}

// New returns the configured Gin engine.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, afipCB *infra.CircuitBreaker, svc *Servicios, limiter *middleware.RateLimiter) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// order matters: request id first so every later log line carries it
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Env, cfg.OrigenesCORS()))
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	ventasH := handler.NewVentasHandler(svc.Ventas, svc.Anulaciones, svc.Facturacion)
	presupuestosH := handler.NewPresupuestosHandler(svc.Presupuestos)
	cajaH := handler.NewCajaHandler(svc.Caja)
	stockH := handler.NewStockHandler(svc.Stock)
	cuentasH := handler.NewCuentasHandler(svc.Cuentas)
	facturacionH := handler.NewFacturacionHandler(svc.Facturacion, rdb)
	consultaH := handler.NewConsultaPreciosHandler(svc.Catalogo, rdb, cfg.PrecioCacheTTL())

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb, afipCB))
	r.GET("/v1/precio/:codigo", consultaH.GetPrecioPorCodigo)

	todos := middleware.RequireRole("cajero", "supervisor", "administrador")
	supervisores := middleware.RequireRole("supervisor", "administrador")

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		ventas := v1.Group("/ventas")
		{
			ventas.POST("", todos, ventasH.Crear)
			ventas.GET("", todos, ventasH.Listar)
			ventas.GET("/:id", todos, ventasH.Obtener)
			ventas.POST("/:id/anular", supervisores, ventasH.Anular)
			ventas.POST("/:id/autorizar", supervisores, ventasH.Autorizar)
		}

		presupuestos := v1.Group("/presupuestos", todos)
		{
			presupuestos.POST("/:id/convertir", presupuestosH.Convertir)
			presupuestos.POST("/:id/cancelar", presupuestosH.Cancelar)
		}

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", todos, cajaH.Abrir)
			caja.POST("/cerrar", todos, cajaH.Cerrar)
			caja.POST("/movimiento", todos, cajaH.RegistrarMovimiento)
			caja.GET("/:id", todos, cajaH.ObtenerReporte)
			caja.GET("/sucursal/:sucursal_id/abierta", todos, cajaH.ObtenerAbierta)
			caja.POST("/:id/recalcular", supervisores, cajaH.Recalcular)
		}

		stock := v1.Group("/stock", supervisores)
		{
			stock.POST("/ajuste", stockH.Ajustar)
			stock.GET("/movimientos", stockH.ListarMovimientos)
		}

		cuentas := v1.Group("/cuentas-corrientes", todos)
		{
			cuentas.GET("/:id", cuentasH.Obtener)
			cuentas.POST("/:id/pagos", cuentasH.RegistrarPago)
		}

		fact := v1.Group("/facturacion", supervisores)
		{
			fact.GET("/dlq", facturacionH.ListarDLQ)
			fact.GET("/:venta_id", facturacionH.ObtenerComprobante)
		}
	}

	// Swagger UI only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
