package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/padelpoint/access-service/config"
	"github.com/padelpoint/access-service/internal/api/rest"
	"github.com/padelpoint/access-service/internal/api/rest/handlers"
	"github.com/padelpoint/access-service/internal/kafka/producer"
	"github.com/padelpoint/access-service/internal/metrics"
	"github.com/padelpoint/access-service/internal/repository"
	"github.com/padelpoint/access-service/internal/service"
	"github.com/padelpoint/access-service/pkg/logger"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Router    *gin.Engine
	Lifecycle service.LifecycleService
	CheckIns  service.CheckInService
	Pauses    service.PauseService
	Members   service.MemberService
	Warnings  service.WarningService
}

// Dependencies внешние зависимости приложения. Нулевой DBPool переключает
// хранилище на in-memory реализации, нулевой Producer отключает публикацию
// событий. Это позволяет поднимать сервис без инфраструктуры.
type Dependencies struct {
	DBPool   *pgxpool.Pool
	Cache    *repository.RedisCacheRepository
	Producer producer.AccessProducer
	Registry *prometheus.Registry
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(cfg *config.Config, deps Dependencies, log *logger.Logger) *App {
	var (
		memberRepo       repository.MemberRepository
		subscriptionRepo service.SubscriptionRepository
		branchRepo       service.BranchRepository
		checkInRepo      service.CheckInRepository
		pauseRepo        service.PauseRepository
	)

	if deps.DBPool != nil {
		memberRepo = repository.NewPostgresMemberRepository(deps.DBPool, log)
		subscriptionRepo = repository.NewPostgresSubscriptionRepository(deps.DBPool, log)
		branchRepo = repository.NewPostgresBranchRepository(deps.DBPool, log)
		checkInRepo = repository.NewPostgresCheckInRepository(deps.DBPool, log)
		pauseRepo = repository.NewPostgresPauseRepository(deps.DBPool, log)
	} else {
		members := repository.NewInMemoryMemberRepository(log)
		memberRepo = members
		subscriptionRepo = repository.NewInMemorySubscriptionRepository(log)
		branchRepo = repository.NewInMemoryBranchRepository(log)
		checkInRepo = repository.NewInMemoryCheckInRepository(members, log)
		pauseRepo = repository.NewInMemoryPauseRepository(members, log)
	}

	if deps.Cache != nil {
		memberRepo = repository.NewCachedMemberRepository(memberRepo, deps.Cache, log)
	}

	eventProducer := deps.Producer
	if eventProducer == nil {
		eventProducer = producer.NewNoopProducer(log)
	}

	accessMetrics := metrics.NewAccessMetrics(deps.Registry, log)

	lifecycleService := service.NewLifecycleService(
		memberRepo, subscriptionRepo, pauseRepo, eventProducer, accessMetrics, log)
	pauseService := service.NewPauseService(
		memberRepo, pauseRepo, accessMetrics, log, cfg.Facility.TimeZone)
	checkInService := service.NewCheckInService(
		memberRepo, branchRepo, checkInRepo, pauseService, eventProducer, accessMetrics, log)
	warningService := service.NewWarningService(
		memberRepo, checkInRepo, eventProducer, accessMetrics, log, cfg.Facility.WarningThreshold)
	memberService := service.NewMemberService(memberRepo, lifecycleService, eventProducer, log)

	checkInHandler := handlers.NewCheckInHandler(checkInService, warningService, log)
	memberHandler := handlers.NewMemberHandler(memberService, pauseService, log)
	webhookHandler := handlers.NewWebhookHandler(lifecycleService, log)

	router := rest.SetupRouter(log, deps.Registry, checkInHandler, memberHandler, webhookHandler)

	return &App{
		Config:    cfg,
		Logger:    log,
		Router:    router,
		Lifecycle: lifecycleService,
		CheckIns:  checkInService,
		Pauses:    pauseService,
		Members:   memberService,
		Warnings:  warningService,
	}
}
