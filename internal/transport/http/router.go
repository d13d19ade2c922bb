package http

import (
	"github.com/gin-gonic/gin"
	"github.com/planify/analytics-service/internal/config"
	"github.com/planify/analytics-service/internal/service"
	"go.uber.org/zap"
)

func NewRouter(svc *service.AnalyticsService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc)
	return r
}
