package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/pkg/common"
	"gorm.io/gorm"
)

var knownAlertTypes = map[string]bool{
	model.AlertConnectorFailed: true,
	model.AlertConnectorPaused: true,
	model.AlertTaskFailed:      true,
	model.AlertHighLag:         true,
	model.AlertThroughputDrop:  true,
	model.AlertErrorRate:       true,
	model.AlertDLQCount:        true,
	model.AlertWALSize:         true,
}

// GetMonitoringSettings returns the global threshold singleton.
func (s *Service) GetMonitoringSettings(ctx context.Context) (*model.MonitoringSettings, error) {
	settings, err := s.logic.settingsDAO.Get(ctx, s.logic.db)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: monitoring settings not seeded", common.ErrNotFound)
	}
	return settings, err
}

// UpdateMonitoringSettings replaces the threshold values. The monitoring
// loop re-reads the row each cycle, so edits apply without a restart.
func (s *Service) UpdateMonitoringSettings(ctx context.Context, settings *model.MonitoringSettings) (*model.MonitoringSettings, error) {
	if settings.CheckIntervalMs <= 0 {
		return nil, fmt.Errorf("%w: check_interval_ms must be positive", common.ErrValidation)
	}
	current, err := s.logic.settingsDAO.Get(ctx, s.logic.db)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: monitoring settings not seeded", common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	settings.ID = current.ID
	settings.CreatedAt = current.CreatedAt
	if err := s.logic.settingsDAO.Save(ctx, s.logic.db, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// ListAlerts returns recent alert history for a pipeline, unresolved only
// when requested.
func (s *Service) ListAlerts(ctx context.Context, pipelineID uint, unresolvedOnly bool, limit int) ([]model.AlertEvent, error) {
	if _, err := s.logic.pipelineDAO.GetByID(ctx, s.logic.db, pipelineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pipeline %d", common.ErrNotFound, pipelineID)
		}
		return nil, err
	}
	if unresolvedOnly {
		return s.logic.alertDAO.ListUnresolvedByPipeline(ctx, s.logic.db, pipelineID)
	}
	return s.logic.alertDAO.ListByPipeline(ctx, s.logic.db, pipelineID, limit)
}

// UpsertAlertRule sets a per-pipeline threshold override. A disabled rule
// falls back to the global setting.
func (s *Service) UpsertAlertRule(ctx context.Context, rule *model.AlertRuleOverride) error {
	if !knownAlertTypes[rule.AlertType] {
		return fmt.Errorf("%w: unknown alert type %q", common.ErrValidation, rule.AlertType)
	}
	if rule.Threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative", common.ErrValidation)
	}
	if _, err := s.logic.pipelineDAO.GetLiveByID(ctx, s.logic.db, rule.PipelineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: pipeline %d", common.ErrNotFound, rule.PipelineID)
		}
		return err
	}
	return s.logic.overrideDAO.Upsert(ctx, s.logic.db, rule)
}

// ListAlertRules returns the per-pipeline overrides.
func (s *Service) ListAlertRules(ctx context.Context, pipelineID uint) ([]model.AlertRuleOverride, error) {
	return s.logic.overrideDAO.ListByPipeline(ctx, s.logic.db, pipelineID)
}
