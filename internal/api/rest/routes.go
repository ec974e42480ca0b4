package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padelpoint/access-service/internal/api/rest/handlers"
	"github.com/padelpoint/access-service/internal/api/rest/middleware"
	"github.com/padelpoint/access-service/pkg/logger"
)

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(
	log *logger.Logger,
	registry *prometheus.Registry,
	checkInHandler *handlers.CheckInHandler,
	memberHandler *handlers.MemberHandler,
	webhookHandler *handlers.WebhookHandler,
) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		// Чекины
		checkins := v1.Group("/checkins")
		{
			checkins.POST("/validate", checkInHandler.ValidateCheckIn)
			checkins.POST("", checkInHandler.RecordCheckIn)
			checkins.PUT("/:id/attendance", checkInHandler.UpdateAttendance)
			checkins.DELETE("/:id/no-show", checkInHandler.ClearNoShow)
		}

		// Участники
		members := v1.Group("/members")
		{
			members.GET("/:id", memberHandler.GetMember)
			members.POST("/:id/pause", memberHandler.PauseMember)
			members.POST("/:id/unpause", memberHandler.UnpauseMember)
			members.POST("/:id/stop", memberHandler.StopMember)
			members.POST("/:id/reactivate", memberHandler.ReactivateMember)
		}

		// Массовая синхронизация подписок
		v1.POST("/subscriptions/sync", webhookHandler.HandleSync)
	}

	// Вебхуки на корневом уровне роутера
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/billing", webhookHandler.HandleBillingWebhook)
	}

	return r
}
