package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

func TestConnectorVersionDAO_Activate(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewConnectorVersionDAO()
	ctx := context.Background()

	def := CreateTestDefinition(t, db, "orders-source", model.ConnectorTypeSource, `{"tasks.max":"1"}`)
	v2 := &model.ConnectorVersion{
		DefinitionID: def.ID,
		Version:      2,
		Config:       `{"tasks.max":"4"}`,
		Checksum:     "v2-checksum",
	}
	if err := dao.Create(ctx, db, v2); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("FlipsActivePointer", func(t *testing.T) {
		if err := dao.Activate(ctx, db, def.ID, 2); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}

		active, err := dao.GetActive(ctx, db, def.ID)
		if err != nil {
			t.Fatalf("GetActive failed: %v", err)
		}
		if active.Version != 2 {
			t.Errorf("Expected version 2 active, got %d", active.Version)
		}

		// The invariant: exactly one active row
		var count int64
		if err := db.Model(&model.ConnectorVersion{}).
			Where("definition_id = ? AND is_active = ?", def.ID, true).
			Count(&count).Error; err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected exactly one active version, got %d", count)
		}
	})

	t.Run("NonexistentVersion", func(t *testing.T) {
		err := dao.Activate(ctx, db, def.ID, 42)
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound, got: %v", err)
		}

		// Failed activation must not disturb the current pointer
		active, err := dao.GetActive(ctx, db, def.ID)
		if err != nil {
			t.Fatalf("GetActive failed: %v", err)
		}
		if active.Version != 2 {
			t.Errorf("Expected version 2 still active, got %d", active.Version)
		}
	})
}

func TestConnectorVersionDAO_MaxVersion(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewConnectorVersionDAO()
	ctx := context.Background()

	t.Run("ZeroWhenEmpty", func(t *testing.T) {
		max, err := dao.MaxVersion(ctx, db, 12345)
		if err != nil {
			t.Fatalf("MaxVersion failed: %v", err)
		}
		if max != 0 {
			t.Errorf("Expected 0 for unseen definition, got %d", max)
		}
	})

	t.Run("TracksHighest", func(t *testing.T) {
		def := CreateTestDefinition(t, db, "max-test", model.ConnectorTypeSink, "{}")
		for _, v := range []int{2, 3} {
			ver := &model.ConnectorVersion{DefinitionID: def.ID, Version: v, Config: "{}", Checksum: "c"}
			if err := dao.Create(ctx, db, ver); err != nil {
				t.Fatalf("Create v%d failed: %v", v, err)
			}
		}
		max, err := dao.MaxVersion(ctx, db, def.ID)
		if err != nil {
			t.Fatalf("MaxVersion failed: %v", err)
		}
		if max != 3 {
			t.Errorf("Expected max version 3, got %d", max)
		}
	})
}

func TestAlertEventDAO_Lifecycle(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAlertEventDAO()
	ctx := context.Background()

	pipe := CreateTestPipeline(t, db, "alert-pipe")

	t.Run("CreateAndFetchUnresolved", func(t *testing.T) {
		alert := &model.AlertEvent{
			PipelineID: pipe.ID,
			AlertType:  model.AlertHighLag,
			Severity:   model.SeverityWarning,
			Message:    "lag 6500ms over threshold 5000ms",
		}
		if err := dao.Create(ctx, db, alert); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		open, err := dao.GetUnresolved(ctx, db, pipe.ID, model.AlertHighLag)
		if err != nil {
			t.Fatalf("GetUnresolved failed: %v", err)
		}
		if open.ID != alert.ID {
			t.Errorf("Expected alert %d, got %d", alert.ID, open.ID)
		}
	})

	t.Run("ResolveExactlyOnce", func(t *testing.T) {
		open, err := dao.GetUnresolved(ctx, db, pipe.ID, model.AlertHighLag)
		if err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		changed, err := dao.Resolve(ctx, db, open.ID, time.Now())
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if !changed {
			t.Error("Expected first resolve to report a change")
		}

		changed, err = dao.Resolve(ctx, db, open.ID, time.Now())
		if err != nil {
			t.Fatalf("Second resolve failed: %v", err)
		}
		if changed {
			t.Error("Expected second resolve to be a no-op")
		}

		if _, err := dao.GetUnresolved(ctx, db, pipe.ID, model.AlertHighLag); !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected no unresolved alert after resolve, got: %v", err)
		}
	})

	t.Run("DifferentTypesStayIndependent", func(t *testing.T) {
		for _, at := range []string{model.AlertHighLag, model.AlertDLQCount} {
			alert := &model.AlertEvent{PipelineID: pipe.ID, AlertType: at, Severity: model.SeverityWarning}
			if err := dao.Create(ctx, db, alert); err != nil {
				t.Fatalf("Create %s failed: %v", at, err)
			}
		}
		open, err := dao.ListUnresolvedByPipeline(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("ListUnresolvedByPipeline failed: %v", err)
		}
		if len(open) != 2 {
			t.Errorf("Expected 2 open alerts, got %d", len(open))
		}
	})
}

func TestMonitoringSettingsDAO_EnsureDefault(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewMonitoringSettingsDAO()
	ctx := context.Background()

	t.Run("SeedsWhenAbsent", func(t *testing.T) {
		if _, err := dao.Get(ctx, db); !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Fatalf("Expected empty settings table, got: %v", err)
		}

		seed := &model.MonitoringSettings{CheckIntervalMs: 60000, LagMs: 5000}
		got, err := dao.EnsureDefault(ctx, db, seed)
		if err != nil {
			t.Fatalf("EnsureDefault failed: %v", err)
		}
		if got.ID == 0 {
			t.Error("Expected seeded row to have an ID")
		}
	})

	t.Run("KeepsExisting", func(t *testing.T) {
		current, err := dao.Get(ctx, db)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		current.LagMs = 9000
		if err := dao.Save(ctx, db, current); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := dao.EnsureDefault(ctx, db, &model.MonitoringSettings{LagMs: 5000})
		if err != nil {
			t.Fatalf("EnsureDefault failed: %v", err)
		}
		if got.LagMs != 9000 {
			t.Errorf("Expected existing row preserved (lag 9000), got %d", got.LagMs)
		}
	})
}

func TestProgressEventDAO(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewProgressEventDAO()
	ctx := context.Background()

	pipe := CreateTestPipeline(t, db, "progress-pipe")

	for i, lag := range []int64{1000, 2000, 6500} {
		ev := &model.ProgressEvent{
			PipelineID:    pipe.ID,
			LagMs:         lag,
			RecordsPerSec: float64(100 * (i + 1)),
		}
		if err := dao.Create(ctx, db, ev); err != nil {
			t.Fatalf("Create sample %d failed: %v", i, err)
		}
	}

	t.Run("LatestWins", func(t *testing.T) {
		latest, err := dao.Latest(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if latest.LagMs != 6500 {
			t.Errorf("Expected latest lag 6500, got %d", latest.LagMs)
		}
	})

	t.Run("WindowOrdering", func(t *testing.T) {
		window, err := dao.Window(ctx, db, pipe.ID, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("Window failed: %v", err)
		}
		if len(window) != 3 {
			t.Fatalf("Expected 3 samples, got %d", len(window))
		}
		if window[0].LagMs != 1000 || window[2].LagMs != 6500 {
			t.Error("Expected samples ordered oldest first")
		}
	})
}
