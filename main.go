package main

import (
	"context"
	"log"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/biz/handler"
	versionhandler "github.com/yunolab/connect_bridge/biz/handler/version"
	"github.com/yunolab/connect_bridge/biz/middleware"
	"github.com/yunolab/connect_bridge/biz/monitor"
	"github.com/yunolab/connect_bridge/biz/router"
	"github.com/yunolab/connect_bridge/biz/service"
	"github.com/yunolab/connect_bridge/pkg/config"
	"github.com/yunolab/connect_bridge/pkg/database"
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
	"github.com/yunolab/connect_bridge/pkg/lock"
	"github.com/yunolab/connect_bridge/pkg/notify"
	"github.com/yunolab/connect_bridge/pkg/redis"
	"github.com/yunolab/connect_bridge/pkg/storage"
)

// Version information, injected at build time via -ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	versionhandler.AppVersion = Version
	versionhandler.AppGitCommit = GitCommit
	versionhandler.AppBuildTime = BuildTime
	log.Printf("[Init] connect_bridge %s (%s, built %s)", Version, GitCommit, BuildTime)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("[Init] Failed to load config: %v", err)
	}

	dbConn, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("[Init] Failed to open database: %v", err)
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatalf("[Init] Failed to migrate database: %v", err)
	}
	if err := service.EnsureMonitoringDefaults(context.Background(), dbConn, cfg.Monitoring); err != nil {
		log.Fatalf("[Init] Failed to seed monitoring settings: %v", err)
	}

	backups, err := storage.New(cfg.Backup)
	if err != nil {
		log.Fatalf("[Init] Failed to init backup storage: %v", err)
	}

	var locks lock.PipelineLocker = lock.NewKeyedMutex()
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("[Init] Failed to connect to redis: %v", err)
		}
		locks = lock.NewRedisLocker(redisClient, "connect_bridge:pipeline_lock", 30*time.Second, 10*time.Second)
		log.Printf("[Init] Pipeline locks backed by redis at %s", cfg.Redis.Address)
	}

	engine := kafkaconnect.NewClient(cfg.Engine.BaseURL, cfg.Engine.Timeout, cfg.Engine.RetryMax)
	dispatcher := notify.NewWebhookDispatcher(cfg.Notifications)

	svc := service.NewService(dbConn, service.Options{
		Engine:     engine,
		EngineURL:  cfg.Engine.BaseURL,
		Locks:      locks,
		Dispatcher: dispatcher,
		Backups:    backups,
	})

	scheduler := monitor.NewScheduler(dbConn, engine, dispatcher)
	scheduler.Start()
	defer scheduler.Stop()

	h := server.Default(server.WithHostPorts(cfg.Server.Address))
	h.Use(middleware.Recovery())
	h.Use(middleware.Logging())
	h.Use(middleware.CORS(&cfg.CORS))
	h.Use(middleware.Auth())

	router.Register(h,
		handler.NewPipelineHandler(svc),
		handler.NewRegistryHandler(svc),
		handler.NewMonitoringHandler(svc),
	)

	log.Printf("[Init] Listening on %s, engine at %s", cfg.Server.Address, cfg.Engine.BaseURL)
	h.Spin()
}
