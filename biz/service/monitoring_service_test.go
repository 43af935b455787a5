package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/pkg/common"
)

func TestMonitoringSettings(t *testing.T) {
	svc, dbConn := newTestService(t, nil)
	ctx := context.Background()

	seed := &model.MonitoringSettings{CheckIntervalMs: 60000, LagMs: 5000}
	if _, err := db.NewMonitoringSettingsDAO().EnsureDefault(ctx, dbConn, seed); err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	t.Run("GetReturnsSeededRow", func(t *testing.T) {
		settings, err := svc.GetMonitoringSettings(ctx)
		if err != nil {
			t.Fatalf("GetMonitoringSettings failed: %v", err)
		}
		if settings.LagMs != 5000 {
			t.Errorf("Expected lag threshold 5000, got %d", settings.LagMs)
		}
	})

	t.Run("UpdateReplacesThresholds", func(t *testing.T) {
		updated, err := svc.UpdateMonitoringSettings(ctx, &model.MonitoringSettings{
			CheckIntervalMs: 30000,
			LagMs:           9000,
		})
		if err != nil {
			t.Fatalf("UpdateMonitoringSettings failed: %v", err)
		}
		if updated.ID == 0 {
			t.Error("Expected update to keep the singleton row id")
		}
		settings, err := svc.GetMonitoringSettings(ctx)
		if err != nil {
			t.Fatalf("GetMonitoringSettings failed: %v", err)
		}
		if settings.LagMs != 9000 || settings.CheckIntervalMs != 30000 {
			t.Errorf("Update did not stick: %+v", settings)
		}
	})

	t.Run("RejectsNonPositiveInterval", func(t *testing.T) {
		_, err := svc.UpdateMonitoringSettings(ctx, &model.MonitoringSettings{CheckIntervalMs: 0})
		if !errors.Is(err, common.ErrValidation) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestAlertRules(t *testing.T) {
	svc, dbConn := newTestService(t, nil)
	ctx := context.Background()
	pipe := db.CreateTestPipeline(t, dbConn, "rules-pipe")

	t.Run("UpsertAndList", func(t *testing.T) {
		rule := &model.AlertRuleOverride{
			PipelineID: pipe.ID,
			AlertType:  model.AlertHighLag,
			Threshold:  12000,
			Enabled:    true,
		}
		if err := svc.UpsertAlertRule(ctx, rule); err != nil {
			t.Fatalf("UpsertAlertRule failed: %v", err)
		}

		// Second upsert updates in place
		rule.Threshold = 15000
		if err := svc.UpsertAlertRule(ctx, rule); err != nil {
			t.Fatalf("Second upsert failed: %v", err)
		}

		rules, err := svc.ListAlertRules(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("ListAlertRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("Expected 1 rule, got %d", len(rules))
		}
		if rules[0].Threshold != 15000 {
			t.Errorf("Expected threshold 15000, got %v", rules[0].Threshold)
		}
	})

	t.Run("RejectsUnknownAlertType", func(t *testing.T) {
		err := svc.UpsertAlertRule(ctx, &model.AlertRuleOverride{
			PipelineID: pipe.ID,
			AlertType:  "DISK_ON_FIRE",
			Threshold:  1,
		})
		if !errors.Is(err, common.ErrValidation) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("RejectsMissingPipeline", func(t *testing.T) {
		err := svc.UpsertAlertRule(ctx, &model.AlertRuleOverride{
			PipelineID: 9999,
			AlertType:  model.AlertHighLag,
			Threshold:  1,
		})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected not found error, got %v", err)
		}
	})
}

func TestListAlerts(t *testing.T) {
	svc, dbConn := newTestService(t, nil)
	ctx := context.Background()
	pipe := db.CreateTestPipeline(t, dbConn, "alerts-pipe")
	alertDAO := db.NewAlertEventDAO()

	open := &model.AlertEvent{
		PipelineID: pipe.ID,
		AlertType:  model.AlertHighLag,
		Severity:   model.SeverityWarning,
		Message:    "lag over threshold",
	}
	if err := alertDAO.Create(ctx, dbConn, open); err != nil {
		t.Fatalf("Failed to create alert: %v", err)
	}
	closed := &model.AlertEvent{
		PipelineID: pipe.ID,
		AlertType:  model.AlertDLQCount,
		Severity:   model.SeverityWarning,
		Message:    "dlq over ceiling",
	}
	if err := alertDAO.Create(ctx, dbConn, closed); err != nil {
		t.Fatalf("Failed to create alert: %v", err)
	}
	if _, err := alertDAO.Resolve(ctx, dbConn, closed.ID, closed.CreatedAt); err != nil {
		t.Fatalf("Failed to resolve alert: %v", err)
	}

	t.Run("FullHistory", func(t *testing.T) {
		alerts, err := svc.ListAlerts(ctx, pipe.ID, false, 50)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 2 {
			t.Errorf("Expected 2 alerts, got %d", len(alerts))
		}
	})

	t.Run("UnresolvedOnly", func(t *testing.T) {
		alerts, err := svc.ListAlerts(ctx, pipe.ID, true, 50)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 1 || alerts[0].AlertType != model.AlertHighLag {
			t.Fatalf("Expected only the open lag alert, got %+v", alerts)
		}
	})

	t.Run("MissingPipeline", func(t *testing.T) {
		_, err := svc.ListAlerts(ctx, 9999, false, 50)
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected not found error, got %v", err)
		}
	})
}
