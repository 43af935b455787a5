package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

func TestPipelineDAO_Create(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewPipelineDAO()
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		pipe := &model.Pipeline{
			Name:                 "orders-cdc",
			SourceType:           "postgres",
			SinkType:             "jdbc",
			Mode:                 "incremental",
			Status:               model.PipelineStatusDraft,
			BackupRetentionHours: 24,
		}

		err := dao.Create(ctx, db, pipe)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if pipe.ID == 0 {
			t.Error("Expected ID to be set after creation")
		}

		found, err := dao.GetLiveByID(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("GetLiveByID failed: %v", err)
		}
		if found.Name != "orders-cdc" {
			t.Errorf("Expected name 'orders-cdc', got '%s'", found.Name)
		}
		if found.DeletedAt != nil {
			t.Error("Expected deleted_at to be nil for a new pipeline")
		}
	})

	t.Run("NilEntity", func(t *testing.T) {
		err := dao.Create(ctx, db, nil)
		if err == nil {
			t.Error("Expected error for nil entity")
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		err := dao.Create(ctx, db, &model.Pipeline{Status: model.PipelineStatusDraft})
		if err == nil {
			t.Error("Expected error for empty name")
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		first := &model.Pipeline{Name: "dup-pipe"}
		second := &model.Pipeline{Name: "dup-pipe"}
		if err := dao.Create(ctx, db, first); err != nil {
			t.Fatalf("First create failed: %v", err)
		}
		if err := dao.Create(ctx, db, second); err == nil {
			t.Error("Expected error for duplicate name")
		}
	})
}

func TestPipelineDAO_SoftDeleteRestore(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewPipelineDAO()
	ctx := context.Background()

	pipe := CreateTestPipeline(t, db, "soft-delete-pipe")

	t.Run("SoftDeleteKeepsStatus", func(t *testing.T) {
		if err := dao.UpdateStatus(ctx, db, pipe.ID, model.PipelineStatusRunning); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
		if err := dao.SoftDelete(ctx, db, pipe.ID, time.Now()); err != nil {
			t.Fatalf("SoftDelete failed: %v", err)
		}

		// Hidden from live queries
		if _, err := dao.GetLiveByID(ctx, db, pipe.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound from live query, got: %v", err)
		}

		// Still visible to the lifecycle paths, status untouched
		found, err := dao.GetByID(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if found.DeletedAt == nil {
			t.Error("Expected deleted_at to be set")
		}
		if found.Status != model.PipelineStatusRunning {
			t.Errorf("Expected status to stay 'running', got '%s'", found.Status)
		}
	})

	t.Run("DoubleSoftDelete", func(t *testing.T) {
		err := dao.SoftDelete(ctx, db, pipe.ID, time.Now())
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound on second soft delete, got: %v", err)
		}
	})

	t.Run("RestoreResetsToDraft", func(t *testing.T) {
		if err := dao.Restore(ctx, db, pipe.ID); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		found, err := dao.GetLiveByID(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("GetLiveByID after restore failed: %v", err)
		}
		if found.Status != model.PipelineStatusDraft {
			t.Errorf("Expected status 'draft' after restore, got '%s'", found.Status)
		}
		if found.DeletedAt != nil {
			t.Error("Expected deleted_at cleared after restore")
		}
	})

	t.Run("RestoreLivePipeline", func(t *testing.T) {
		err := dao.Restore(ctx, db, pipe.ID)
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound restoring a live pipeline, got: %v", err)
		}
	})

	t.Run("RestorePurgedPipeline", func(t *testing.T) {
		err := dao.Restore(ctx, db, 99999)
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound restoring a purged pipeline, got: %v", err)
		}
	})
}

func TestPipelineDAO_ListSoftDeleted(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewPipelineDAO()
	ctx := context.Background()

	live := CreateTestPipeline(t, db, "live-pipe")
	gone := CreateTestPipeline(t, db, "gone-pipe")
	if err := dao.SoftDelete(ctx, db, gone.ID, time.Now().Add(-25*time.Hour)); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	deleted, err := dao.ListSoftDeleted(ctx, db)
	if err != nil {
		t.Fatalf("ListSoftDeleted failed: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != gone.ID {
		t.Errorf("Expected exactly the soft-deleted pipeline, got %d rows", len(deleted))
	}

	alive, err := dao.List(ctx, db, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(alive) != 1 || alive[0].ID != live.ID {
		t.Errorf("Expected exactly the live pipeline, got %d rows", len(alive))
	}
}

func TestCleanupDAO_PurgePipeline(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	cleanup := NewCleanupDAO()
	pipeDAO := NewPipelineDAO()
	ctx := context.Background()

	pipe := CreateTestPipeline(t, db, "purge-pipe")
	keeper := CreateTestPipeline(t, db, "keeper-pipe")

	// Attach dependents across the cascade tables
	seed := []interface{}{
		&model.PipelineTask{PipelineID: pipe.ID, TaskID: 0, Status: "RUNNING"},
		&model.PipelineTable{PipelineID: pipe.ID, SchemaName: "public", Table: "orders"},
		&model.RestoreStaging{PipelineID: pipe.ID, Payload: "{}"},
		&model.PipelineObject{PipelineID: pipe.ID, ObjectKey: "snap/1"},
		&model.PipelineLog{PipelineID: pipe.ID, Level: "info", Message: "started"},
		&model.ProgressEvent{PipelineID: pipe.ID, RecordsTotal: 10},
		&model.PipelineChannelLink{PipelineID: pipe.ID, ChannelName: "ops"},
		&model.AlertEvent{PipelineID: pipe.ID, AlertType: model.AlertHighLag, Severity: model.SeverityWarning},
		&model.AlertRuleOverride{PipelineID: pipe.ID, AlertType: model.AlertHighLag, Threshold: 9000},
		&model.MappingConfig{PipelineID: pipe.ID, Kind: "table", Document: "{}"},
		&model.JobRun{PipelineID: pipe.ID, JobType: "snapshot", Status: "done", StartedAt: time.Now()},
		&model.PrecheckResult{PipelineID: pipe.ID, CheckName: "wal_level", Passed: true},
	}
	for _, row := range seed {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	t.Run("LivePipelineAbortsWithRollback", func(t *testing.T) {
		_, err := cleanup.PurgePipeline(ctx, db, pipe.ID)
		if !errors.Is(err, ErrPurgeConflict) {
			t.Fatalf("Expected ErrPurgeConflict purging a live pipeline, got: %v", err)
		}
		// Rollback keeps every dependent row
		count, err := cleanup.CountDependents(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("CountDependents failed: %v", err)
		}
		if count != 14 {
			t.Errorf("Expected all 14 dependent rows after rollback, got %d", count)
		}
	})

	if err := pipeDAO.SoftDelete(ctx, db, pipe.ID, time.Now()); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	t.Run("PurgeRemovesEverything", func(t *testing.T) {
		removed, err := cleanup.PurgePipeline(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("PurgePipeline failed: %v", err)
		}
		// 12 dependents + 2 connectors + the pipeline row
		if removed != 15 {
			t.Errorf("Expected 15 rows removed, got %d", removed)
		}

		count, err := cleanup.CountDependents(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("CountDependents failed: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected zero dependent rows after purge, got %d", count)
		}
		if _, err := pipeDAO.GetByID(ctx, db, pipe.ID); err == nil {
			t.Error("Expected pipeline row to be gone")
		}
	})

	t.Run("PurgeIsRerunnable", func(t *testing.T) {
		removed, err := cleanup.PurgePipeline(ctx, db, pipe.ID)
		if err != nil {
			t.Fatalf("Second purge failed: %v", err)
		}
		if removed != 0 {
			t.Errorf("Expected 0 rows removed on re-run, got %d", removed)
		}
	})

	t.Run("OtherPipelineUntouched", func(t *testing.T) {
		if _, err := pipeDAO.GetLiveByID(ctx, db, keeper.ID); err != nil {
			t.Errorf("Keeper pipeline should survive the purge: %v", err)
		}
		count, err := cleanup.CountDependents(ctx, db, keeper.ID)
		if err != nil {
			t.Fatalf("CountDependents failed: %v", err)
		}
		// Two connector rows
		if count != 2 {
			t.Errorf("Expected keeper's 2 connector rows intact, got %d", count)
		}
	})
}

func TestPipelineConnectorDAO(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewPipelineConnectorDAO()
	ctx := context.Background()

	pipe := CreateTestPipeline(t, db, "conn-pipe")

	t.Run("GetByPipelineAndType", func(t *testing.T) {
		src, err := dao.GetByPipelineAndType(ctx, db, pipe.ID, model.ConnectorTypeSource)
		if err != nil {
			t.Fatalf("GetByPipelineAndType failed: %v", err)
		}
		if src.Type != model.ConnectorTypeSource {
			t.Errorf("Expected source connector, got '%s'", src.Type)
		}
	})

	t.Run("RejectsBadType", func(t *testing.T) {
		err := dao.Create(ctx, db, &model.PipelineConnector{PipelineID: pipe.ID, Type: "transform"})
		if err == nil {
			t.Error("Expected error for invalid connector type")
		}
	})

	t.Run("StageAndDeploy", func(t *testing.T) {
		src, err := dao.GetByPipelineAndType(ctx, db, pipe.ID, model.ConnectorTypeSource)
		if err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		if err := dao.StagePending(ctx, db, src.ID, `{"tasks.max":"2"}`, true); err != nil {
			t.Fatalf("StagePending failed: %v", err)
		}
		staged, _ := dao.GetByPipelineAndType(ctx, db, pipe.ID, model.ConnectorTypeSource)
		if !staged.HasPendingChanges {
			t.Error("Expected has_pending_changes after staging")
		}

		if err := dao.MarkDeployed(ctx, db, src.ID, `{"tasks.max":"2"}`, 3, time.Now()); err != nil {
			t.Fatalf("MarkDeployed failed: %v", err)
		}
		deployed, _ := dao.GetByPipelineAndType(ctx, db, pipe.ID, model.ConnectorTypeSource)
		if deployed.HasPendingChanges {
			t.Error("Expected has_pending_changes cleared after deploy")
		}
		if deployed.LastDeployedVersion != 3 {
			t.Errorf("Expected last_deployed_version 3, got %d", deployed.LastDeployedVersion)
		}
		if deployed.Config != `{"tasks.max":"2"}` {
			t.Errorf("Expected deployed config to match staged config, got '%s'", deployed.Config)
		}
	})
}
