package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"equipment-system/internal/controllers"
	"equipment-system/internal/events"
	"equipment-system/internal/listeners"
	"equipment-system/internal/repositories"
	"equipment-system/internal/services"
	"equipment-system/pkg/config"
	"equipment-system/pkg/eventbus"
	"equipment-system/pkg/middleware"
	"equipment-system/pkg/service"
	"equipment-system/pkg/websocket"
)

type Loggers struct {
	Main      *zap.Logger
	Auth      *zap.Logger
	Equipment *zap.Logger
	User      *zap.Logger
}

// InitRouter wires repositories, services, observers and controllers, then
// registers every route under /api.
func InitRouter(
	e *echo.Echo,
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	jwtSvc service.JWTService,
	hub *websocket.Hub,
	bus *eventbus.Bus,
	loggers *Loggers,
	cfg *config.Config,
) {
	loggers.Main.Info("InitRouter: building routes")

	txManager := repositories.NewTxManager(dbConn, loggers.Equipment)

	// repositories
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	userRepo := repositories.NewUserRepository(dbConn, loggers.User)
	equipmentRepo := repositories.NewEquipmentRepository(dbConn, loggers.Equipment)
	assignmentRepo := repositories.NewAssignmentRepository(dbConn, loggers.Equipment)
	statusHistoryRepo := repositories.NewStatusHistoryRepository(dbConn)

	// services
	factory := services.NewEquipmentFactoryManager()
	if err := factory.Validate(); err != nil {
		loggers.Main.Fatal("equipment factory map is incomplete", zap.Error(err))
	}
	registry := services.NewObserverRegistry(loggers.Equipment)
	equipmentService := services.NewEquipmentService(
		equipmentRepo, assignmentRepo, userRepo, statusHistoryRepo,
		cacheRepo, txManager, factory, registry, cfg.Equipment.CacheTTL, loggers.Equipment,
	)
	importService := services.NewEquipmentImportService(equipmentService, loggers.Equipment)
	authService := services.NewAuthService(userRepo, cacheRepo, jwtSvc, loggers.Auth)
	userService := services.NewUserService(userRepo, loggers.User)

	// observers, attached once in a fixed order
	historyLogger := listeners.NewHistoryLoggerObserver(loggers.Equipment)
	registry.Attach(listeners.NewAdminNotifierObserver(loggers.Equipment))
	registry.Attach(historyLogger)
	registry.Attach(listeners.NewCacheInvalidationObserver(cacheRepo))
	registry.Attach(listeners.NewEventPublisherObserver(bus))

	bus.Subscribe(events.EquipmentStatusChanged, listeners.NewStatusHistoryListener(statusHistoryRepo, loggers.Equipment).Handle)
	bus.Subscribe(events.EquipmentStatusChanged, listeners.NewWebSocketNotificationListener(hub, loggers.Main).Handle)

	// controllers
	authMW := middleware.NewAuthMiddleware(jwtSvc, authService, loggers.Auth)
	equipmentController := controllers.NewEquipmentController(equipmentService, importService, historyLogger, loggers.Equipment)
	authController := controllers.NewAuthController(authService, loggers.Auth)
	userController := controllers.NewUserController(userService, loggers.User)
	wsController := controllers.NewWebSocketController(hub, jwtSvc, authService, cfg.Server.CORSOrigins, loggers.Main)

	api := e.Group("/api")
	api.GET("/ws", wsController.ServeWs)

	runAuthRouter(api, authController, authMW)

	secureGroup := api.Group("", authMW.Auth)
	runEquipmentRouter(secureGroup, equipmentController, authMW)
	runUserRouter(secureGroup, userController, authMW)

	loggers.Main.Info("InitRouter: routes registered", zap.Int("observers", registry.Count()))
}
