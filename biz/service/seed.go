package service

import (
	"context"
	"log"

	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/pkg/config"
	"gorm.io/gorm"
)

// EnsureMonitoringDefaults seeds the monitoring settings singleton from the
// configuration file when the table is empty. An existing row always wins;
// operators tune thresholds through the API, not the config file.
func EnsureMonitoringDefaults(ctx context.Context, dbConn *gorm.DB, cfg config.MonitoringConfig) error {
	dao := db.NewMonitoringSettingsDAO()
	seed := &model.MonitoringSettings{
		CheckIntervalMs:      int(cfg.CheckIntervalMs),
		LagMs:                cfg.LagMs,
		ThroughputDropPct:    cfg.ThroughputDropPct,
		ErrorRatePct:         cfg.ErrorRatePct,
		DLQCount:             cfg.DLQCount,
		PauseDurationSeconds: int(cfg.PauseDurationSeconds),
		BackupRetentionHours: int(cfg.BackupRetentionHours),
		WALMonitorEnabled:    cfg.WALMonitorEnabled,
		WALSizeMB:            cfg.WALSizeMB,
		WALGrowthPct:         cfg.WALGrowthPct,
		AutoPauseEnabled:     cfg.AutoPauseEnabled,
	}
	settings, err := dao.EnsureDefault(ctx, dbConn, seed)
	if err != nil {
		return err
	}
	if settings == seed {
		log.Printf("[Init] Seeded monitoring settings (interval %dms, lag threshold %dms)",
			settings.CheckIntervalMs, settings.LagMs)
	} else {
		log.Printf("[Init] Monitoring settings already present")
	}
	return nil
}
