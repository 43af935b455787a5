package main

import (
	"context"
	"flag"
	"log"

	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/biz/service"
	"github.com/yunolab/connect_bridge/pkg/config"
	"github.com/yunolab/connect_bridge/pkg/database"
	"github.com/yunolab/connect_bridge/pkg/storage"
)

// Standalone retention sweep for operators and cron.
// Usage: go run script/sweep_retention.go -config=config.yaml -dry-run

var (
	configPath = flag.String("config", "config.yaml", "path to the server config file")
	dryRun     = flag.Bool("dry-run", false, "list expired pipelines without purging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConn, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	backups, err := storage.New(cfg.Backup)
	if err != nil {
		log.Fatalf("Failed to init backup storage: %v", err)
	}

	svc := service.NewService(dbConn, service.Options{Backups: backups})
	result, err := svc.Sweep(context.Background(), *dryRun)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	if len(result.Candidates) == 0 {
		log.Println("No pipelines past retention")
		return
	}
	for _, c := range result.Candidates {
		switch {
		case c.Error != "":
			log.Printf("pipeline %d (%s): FAILED: %s", c.PipelineID, c.Name, c.Error)
		case c.Purged:
			log.Printf("pipeline %d (%s): purged, %d rows removed", c.PipelineID, c.Name, c.RowsRemoved)
		default:
			log.Printf("pipeline %d (%s): expired at %s (dry run)", c.PipelineID, c.Name, c.ExpiredAt)
		}
	}
}
