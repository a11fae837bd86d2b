package router

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/mcuadros/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Brownie44l1/rop-api/internal/config"
	"github.com/Brownie44l1/rop-api/internal/handlers"
	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/middlewares"
)

const PrometheusSubsystemName = "rop_server"

func Init(cfg *config.Config, h *handlers.Handlers) *gin.Engine {
	// Set mode.
	if !cfg.Log.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxUploadSizeBytes

	// Prometheus metrics, exposed by the metrics server.
	if cfg.Metrics.Enable {
		p := ginprometheus.NewPrometheus(PrometheusSubsystemName)
		// URL removes query string.
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			return c.Request.URL.Path
		}
		r.Use(p.HandlerFunc())
	}

	// Opentelemetry
	if cfg.Telemetry.Jaeger != "" {
		r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	// Middleware
	r.Use(middlewares.RequestID())
	r.Use(ginzap.Ginzap(logger.GinLogger.Desugar(), time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger.GinLogger.Desugar(), true))
	r.Use(middlewares.CORS(cfg.Server.AllowedOrigin))
	r.Use(middlewares.Error())

	// Router
	r.GET("/", h.GetRoot)
	r.GET("/health", h.GetHealth)
	r.POST("/predict", h.Predict)

	return r
}
