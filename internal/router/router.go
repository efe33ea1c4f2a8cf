package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/clinicq/queue-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// ProtectedHandler additionally exposes routes that require a handler session.
type ProtectedHandler interface {
	Handler
	RegisterProtectedRoutes(*gin.RouterGroup)
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	healthH      Handler
	queueH       Handler
	visitH       Handler
	doctorH      ProtectedHandler
	appointmentH Handler
	activityH    Handler
	clinicH      ProtectedHandler
	staffH       ProtectedHandler
	metrics      *routerMetrics
	queueCache   *middleware.ResponseCache
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
	QueueCacheTTL time.Duration
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	queueH Handler,
	visitH Handler,
	doctorH ProtectedHandler,
	appointmentH Handler,
	activityH Handler,
	clinicH ProtectedHandler,
	staffH ProtectedHandler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		healthH:      healthH,
		queueH:       queueH,
		visitH:       visitH,
		doctorH:      doctorH,
		appointmentH: appointmentH,
		activityH:    activityH,
		clinicH:      clinicH,
		staffH:       staffH,
		metrics:      initRouterMetrics(config.MetricsPrefix),
	}

	if config.QueueCacheTTL > 0 {
		r.queueCache = middleware.NewResponseCache(config.QueueCacheTTL)
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: 30 * time.Second}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public patient-facing routes
	r.setupPublicRoutes(api)

	// Staff routes behind a handler session
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	queueGroup := rg
	if r.queueCache != nil {
		queueGroup = rg.Group("")
		queueGroup.Use(r.queueCache.Cache())
	}
	r.queueH.RegisterRoutes(queueGroup)

	r.appointmentH.RegisterRoutes(rg)
	r.clinicH.RegisterRoutes(rg)
	r.doctorH.RegisterRoutes(rg)
	r.staffH.RegisterRoutes(rg)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.visitH.RegisterRoutes(rg)
	r.activityH.RegisterRoutes(rg)
	r.doctorH.RegisterProtectedRoutes(rg)
	r.staffH.RegisterProtectedRoutes(rg)

	// Clinic setup reshapes the whole clinic, so it is admin-only.
	admin := rg.Group("", r.auth.RequireAdmin())
	r.clinicH.RegisterProtectedRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
