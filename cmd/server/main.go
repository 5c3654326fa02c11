// Command server is the hot tub controller's HTTP API process: it owns
// every domain service, wires them together, and serves spec.md §6's
// surface over Echo. Grounded on the teacher's cmd/scheduler main, which
// follows the same load-config/build-deps/serve/graceful-shutdown shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/config"
	"github.com/science/HotTubController-sub005/internal/coordinator"
	"github.com/science/HotTubController-sub005/internal/cronadapter"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/equipmentstore"
	"github.com/science/HotTubController-sub005/internal/health"
	"github.com/science/HotTubController-sub005/internal/heating"
	"github.com/science/HotTubController-sub005/internal/history"
	"github.com/science/HotTubController-sub005/internal/httpapi"
	"github.com/science/HotTubController-sub005/internal/jobstore"
	"github.com/science/HotTubController-sub005/internal/logging"
	"github.com/science/HotTubController-sub005/internal/metrics"
	"github.com/science/HotTubController-sub005/internal/notify"
	"github.com/science/HotTubController-sub005/internal/scheduler"
	"github.com/science/HotTubController-sub005/internal/temperature"
	"github.com/science/HotTubController-sub005/internal/timeservice"
	"github.com/science/HotTubController-sub005/internal/webhook"
	"github.com/science/HotTubController-sub005/internal/webmiddleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics.Init()

	secrets, err := config.LoadProtectedSecrets(cfg.ProtectedSecretsPath)
	if err != nil {
		logger.Fatal("loading protected secrets", zap.Error(err))
	}
	applyProtectedSecrets(cfg, secrets)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

// applyProtectedSecrets overlays values read from the protected secrets file
// onto cfg, taking precedence over whatever config.Load pulled from the
// process environment. An absent file or unset field leaves cfg untouched.
func applyProtectedSecrets(cfg *config.Config, secrets *config.ProtectedSecrets) {
	if secrets.WebhookKey != "" {
		cfg.WebhookKey = secrets.WebhookKey
	}
	if secrets.SensorOAuthToken != "" {
		cfg.SensorOAuthToken = secrets.SensorOAuthToken
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	storageState := filepath.Join(cfg.StorageDir, "state")
	scheduledJobsDir := filepath.Join(cfg.StorageDir, "scheduled-jobs")
	cycleDir := filepath.Join(cfg.StorageDir, "state", "heating-cycles")
	backupDir := filepath.Join(cfg.StorageDir, "crontab-backups")
	firmwareDir := filepath.Join(cfg.StorageDir, "firmware")
	logsDir := filepath.Join(cfg.StorageDir, "logs")
	for _, dir := range []string{storageState, scheduledJobsDir, cycleDir, backupDir, firmwareDir, logsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating storage directory %s: %w", dir, err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})

	ts, err := timeservice.New()
	if err != nil {
		return fmt.Errorf("discovering system timezone: %w", err)
	}

	cronLockPath := cfg.CronSentinelPath
	cron := cronadapter.New(cronLockPath, backupDir)

	equipStore := equipmentstore.New(
		filepath.Join(storageState, "equipment-status.json"),
		filepath.Join(storageState, ".equipment-status.lock"),
	)

	var webhookClient webhook.Client
	httpClient := &http.Client{Timeout: config.WebhookTimeout}
	if cfg.ExternalAPIMode == config.ModeLive {
		webhookClient = webhook.NewLiveClient(httpClient, cfg.WebhookBaseURL, cfg.WebhookKey, logger)
	} else {
		webhookClient = webhook.NewStubClient(logger)
	}

	historyStore, err := history.New(filepath.Join(cfg.StorageDir, "history.db"))
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer historyStore.Close()

	coupled := true // heater_on implies pump_on, per spec.md §4.8
	equipService := equipment.New(equipStore, webhookClient, logger, coupled, historyStore)

	var cloudProvider temperature.Provider
	if cfg.ExternalAPIMode == config.ModeLive {
		cloudProvider = temperature.NewCloudProvider(
			&http.Client{Timeout: config.SensorRefreshTimeout},
			redisClient,
			cfg.SensorBaseURL, cfg.SensorDeviceID, cfg.SensorOAuthToken,
			logger,
		)
	} else {
		cloudProvider = temperature.NewPushProvider(filepath.Join(storageState, "cloud-temperature-stub.json"))
	}
	pushProvider := temperature.NewPushProvider(filepath.Join(storageState, "esp32-temperature.json"))

	jobs := jobstore.New(scheduledJobsDir)
	cycles := heating.NewCycleStore(cycleDir)

	sched := scheduler.New(jobs, cron, ts, cycles, cfg.RunnerPath, logger)

	var notifier notify.Notifier
	if cfg.NotifierMode == config.ModeLive {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fcm, err := notify.NewFCMNotifier(ctx, cfg.FirebaseCredentialsPath, cfg.FCMDeviceToken, logger)
		if err != nil {
			logger.Warn("falling back to stub notifier: could not initialize FCM", zap.Error(err))
			notifier = notify.NewStubNotifier(logger)
		} else {
			notifier = fcm
		}
	} else {
		notifier = notify.NewStubNotifier(logger)
	}

	monitorTickEndpoint := "/api/internal/monitor-tick"
	engine := heating.New(cycles, cloudProvider, equipService, sched, notifier, monitorTickEndpoint, logger, historyStore)

	settingsStore := coordinator.NewFileSettingsStore(
		filepath.Join(storageState, "heat-target-settings.json"),
		filepath.Join(storageState, ".heat-target-settings.lock"),
	)
	coord := coordinator.New(settingsStore, equipService, engine, sched, cfg.HeatingRateFPerMin, logger)

	healthChecker := health.NewChecker(redisClient, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.NewHTTPErrorHandler(logger)

	e.Use(webmiddleware.RequestID())
	e.Use(webmiddleware.RequestLogger(logger))
	e.Use(webmiddleware.Recovery(logger))
	e.Use(webmiddleware.Timeout(logger, config.LoopbackTimeout))

	httpapi.Register(e, httpapi.Dependencies{
		Equipment:        equipService,
		CloudTemperature: cloudProvider,
		PushTemperature:  pushProvider,
		Scheduler:        sched,
		HeatingEngine:    engine,
		Coordinator:      coord,
		Settings:         settingsStore,
		History:          historyStore,
		HealthChecker:    healthChecker,
		ExternalAPIMode:  string(cfg.ExternalAPIMode),
		JWTSecret:        cfg.JWTSecret,
		ESP32APIKey:      cfg.ESP32APIKey,
		FirmwarePath:     firmwareDir,
		Logger:           logger,
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		addr := ":" + cfg.Port
		logger.Info("hot tub controller listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
