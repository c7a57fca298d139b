// Package app wires configuration, storage, services and jobs together. It is
// shared by the HTTP server and the command line tool.
package app

import (
	"context"
	"fmt"
	"time"

	"fleet-manager/internal/api/handlers"
	"fleet-manager/internal/api/routes"
	"fleet-manager/internal/config"
	"fleet-manager/internal/jobs"
	"fleet-manager/internal/repository"
	"fleet-manager/internal/services"
	"fleet-manager/pkg/batch"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/cleanup"
	"fleet-manager/pkg/database"
	"fleet-manager/pkg/email"
	"fleet-manager/pkg/jwt"
	"fleet-manager/pkg/notify"
	"fleet-manager/pkg/ratelimit"
	fleetredis "fleet-manager/pkg/redis"
	"fleet-manager/pkg/whatsapp"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	Config *config.Config
	DB     *mongo.Database
	// Redis is nil when REDIS_ENABLED is false.
	Redis *fleetredis.Client

	Vehicles      *repository.VehicleRepository
	Users         *repository.UserRepository
	Maintenance   *repository.MaintenanceRepository
	Tasks         *repository.TaskRepository
	Notifications *repository.NotificationRepository

	VehicleService      *services.VehicleService
	UserService         *services.UserService
	MaintenanceService  *services.MaintenanceService
	TaskService         *services.TaskService
	NotificationService *services.NotificationService
	ReportService       *services.ReportService

	Reconciler *jobs.Reconciler
	Dispatcher *jobs.Dispatcher

	Limiter      ratelimit.RateLimiter
	LimitsConfig *ratelimit.Config
}

// New connects to MongoDB (and Redis when enabled) and builds every
// component. Close releases the connections.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.WithError(err).Warn("Failed to ensure indexes")
	}

	a := &App{Config: cfg, DB: db}
	if cfg.Redis.Enabled {
		a.Redis = fleetredis.NewClient(cfg.Redis)
	}

	loc := cfg.Location()

	a.Vehicles = repository.NewVehicleRepository(db)
	a.Users = repository.NewUserRepository(db)
	a.Maintenance = repository.NewMaintenanceRepository(db)
	a.Tasks = repository.NewTaskRepository(db)
	a.Notifications = repository.NewNotificationRepository(db)

	var signer *jwt.JWTUtil
	if cfg.Token.Secret != "" {
		signer = jwt.NewJWTUtil(cfg.Token.Secret, cfg.Token.Expiry)
	} else {
		log.Warn("CONFIRM_TOKEN_SECRET not set, reminder e-mails will not carry a confirmation link")
	}

	var cacheManager cache.CacheManager
	if a.Redis != nil {
		cacheManager = cache.NewRedisCacheManager(a.Redis.GetClient(), cache.DefaultCacheConfig())
	}

	sink := a.sink()
	a.buildServices(loc, sink, signer, cacheManager)
	a.buildJobs(loc, sink, signer, cacheManager)
	a.buildLimiter()

	return a, nil
}

func (a *App) buildServices(loc *time.Location, sink notify.Sink, signer *jwt.JWTUtil, cacheManager cache.CacheManager) {
	cfg := a.Config

	a.VehicleService = services.NewVehicleService(a.Vehicles, loc)
	a.VehicleService.SetDependents(a.Maintenance, a.Tasks)
	if signer != nil {
		a.VehicleService.SetTokenSigner(signer)
	}
	a.ReportService = services.NewReportService(a.Vehicles, loc)
	if cacheManager != nil {
		a.VehicleService.SetCacheManager(cacheManager)
		a.ReportService.SetCacheManager(cacheManager)
	}

	a.NotificationService = services.NewNotificationService(sink, a.Users, a.Vehicles, a.Notifications)
	if cfg.WhatsApp.Enabled() {
		a.NotificationService.SetWhatsAppSender(whatsapp.NewClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.Token, cfg.WhatsApp.Timeout))
	}

	a.UserService = services.NewUserService(a.Users, a.Vehicles)

	a.MaintenanceService = services.NewMaintenanceService(a.Maintenance, a.Vehicles, a.VehicleService, loc)
	a.MaintenanceService.SetNotifier(a.NotificationService)

	a.TaskService = services.NewTaskService(a.Tasks, a.Vehicles, loc)
	a.TaskService.SetNotifier(a.NotificationService)
}

func (a *App) buildJobs(loc *time.Location, sink notify.Sink, signer *jwt.JWTUtil, cacheManager cache.CacheManager) {
	cfg := a.Config.Jobs

	var locker jobs.Locker
	if a.Redis != nil {
		locker = fleetredis.NewLocker(a.Redis.GetClient(), "")
	}

	a.Reconciler = jobs.NewReconciler(a.Vehicles, jobs.ReconcileOptions{
		Workers:  cfg.Workers,
		Timeout:  cfg.Timeout,
		LockTTL:  cfg.LockTTL,
		Location: loc,
	})

	batchConfig := batch.LoadBatchConfigFromEnv()
	if err := batch.ValidateConfig(batchConfig); err != nil {
		log.WithError(err).Warn("Invalid batch configuration, using defaults")
		batchConfig = batch.DefaultBatchConfig()
	}
	flags := batch.NewProcessor(batchConfig, batch.NewVehicleRepositoryAdapter(a.Vehicles, a.DB))

	a.Dispatcher = jobs.NewDispatcher(a.Vehicles, a.Users, sink, flags, jobs.DispatchOptions{
		WindowDays:     cfg.ReminderWindowDays,
		Timeout:        cfg.Timeout,
		LockTTL:        cfg.LockTTL,
		Location:       loc,
		NotifyManagers: cfg.NotifyManagers,
		AppURL:         a.Config.AppURL,
	})
	a.Dispatcher.SetHistory(a.Notifications)
	if signer != nil {
		a.Dispatcher.SetLinkSigner(signer)
	}

	if locker != nil {
		a.Reconciler.SetLocker(locker)
		a.Dispatcher.SetLocker(locker)
	}
	if cacheManager != nil {
		a.Reconciler.SetCache(cacheManager)
		a.Dispatcher.SetCache(cacheManager)
	}
}

func (a *App) buildLimiter() {
	a.LimitsConfig = ratelimit.DefaultConfig()
	if a.Redis != nil {
		a.Limiter = ratelimit.NewRedisRateLimiter(a.Redis.GetClient(), a.LimitsConfig)
		return
	}
	a.Limiter = ratelimit.NewMemoryRateLimiter(a.LimitsConfig)
}

// sink delivers over every configured channel.
func (a *App) sink() notify.Sink {
	cfg := a.Config
	var channels []notify.Channel

	if cfg.SMTP.Enabled() {
		mailer := email.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.FromEmail, cfg.SMTP.FromName)
		channels = append(channels, notify.NewEmailChannel(mailer))
	}
	if cfg.WhatsApp.Enabled() {
		client := whatsapp.NewClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.Token, cfg.WhatsApp.Timeout)
		channels = append(channels, notify.NewWhatsAppChannel(client))
	}

	sink := notify.NewMultiChannelSink(channels...)
	if len(channels) == 0 {
		log.Warn("No notification channel configured, reminders will be recorded as failed")
	}
	return sink
}

// Handlers builds the HTTP handlers over the app's services.
func (a *App) Handlers(schedulerEnabled bool) *routes.Handlers {
	return &routes.Handlers{
		Health:        handlers.NewHealthHandler(a.DB, a.Redis, schedulerEnabled),
		Vehicles:      handlers.NewVehicleHandler(a.VehicleService),
		Users:         handlers.NewUserHandler(a.UserService),
		Maintenance:   handlers.NewMaintenanceHandler(a.MaintenanceService),
		Tasks:         handlers.NewTaskHandler(a.TaskService),
		Jobs:          handlers.NewJobHandler(a.Reconciler, a.Dispatcher),
		Notifications: handlers.NewNotificationHandler(a.NotificationService),
		Reports:       handlers.NewReportHandler(a.ReportService),
	}
}

// Cleanup returns the notification log pruner.
func (a *App) Cleanup() *cleanup.CleanupService {
	return cleanup.NewCleanupService(a.Notifications, a.Config.Jobs.NotificationTTL, a.Config.Jobs.CleanupInterval)
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Error closing Redis")
		}
	}
	if err := database.Disconnect(a.DB.Client()); err != nil {
		log.WithError(err).Warn("Error disconnecting from database")
	}
}
