package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/biz/model/api"
	"github.com/yunolab/connect_bridge/pkg/common"
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
)

func createDeployablePipeline(t *testing.T, svc *Service, name string) *model.Pipeline {
	t.Helper()
	pipe, err := svc.CreatePipeline(context.Background(), &api.CreatePipelineRequest{
		Name:        name,
		SourceType:  "postgres",
		SinkType:    "jdbc",
		Mode:        "incremental",
		SourceClass: "io.debezium.connector.postgresql.PostgresConnector",
		SinkClass:   "io.confluent.connect.jdbc.JdbcSinkConnector",
		SourceConfig: map[string]string{
			"database.hostname":    "db.internal",
			"database.server.name": name,
		},
		SinkConfig: map[string]string{
			"connection.url": "jdbc:postgresql://sink.internal/warehouse",
		},
	})
	if err != nil {
		t.Fatalf("CreatePipeline failed: %v", err)
	}
	return pipe
}

func TestDeployPipeline(t *testing.T) {
	t.Run("FullSuccess", func(t *testing.T) {
		engine := newFakeEngine(t)
		svc, dbConn := newTestService(t, engine)
		ctx := context.Background()
		pipe := createDeployablePipeline(t, svc, "deploy-ok")

		result, err := svc.DeployPipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("DeployPipeline failed: %v", err)
		}
		if !result.Succeeded() {
			t.Fatalf("Expected success, got errors: %v", result.Errors)
		}
		if result.Results[model.ConnectorTypeSource].Action != ActionCreated {
			t.Errorf("Expected source created, got %+v", result.Results)
		}
		if result.Results[model.ConnectorTypeSink].Action != ActionCreated {
			t.Errorf("Expected sink created, got %+v", result.Results)
		}
		if !engine.has("deploy-ok-source") || !engine.has("deploy-ok-sink") {
			t.Error("Expected both connectors on the engine")
		}

		var stored model.Pipeline
		if err := dbConn.First(&stored, pipe.ID).Error; err != nil {
			t.Fatalf("Load pipeline: %v", err)
		}
		if stored.Status != model.PipelineStatusRunning {
			t.Errorf("Expected status running, got %s", stored.Status)
		}
		if stored.LastDeployedAt == nil {
			t.Error("Expected last_deployed_at set")
		}

		var conn model.PipelineConnector
		if err := dbConn.Where("pipeline_id = ? AND type = ?", pipe.ID, model.ConnectorTypeSource).First(&conn).Error; err != nil {
			t.Fatalf("Load connector: %v", err)
		}
		if conn.HasPendingChanges {
			t.Error("Expected has_pending_changes cleared after deploy")
		}
	})

	t.Run("RedeployIsIdempotent", func(t *testing.T) {
		engine := newFakeEngine(t)
		svc, _ := newTestService(t, engine)
		ctx := context.Background()
		pipe := createDeployablePipeline(t, svc, "deploy-twice")

		if _, err := svc.DeployPipeline(ctx, pipe.ID); err != nil {
			t.Fatalf("First deploy failed: %v", err)
		}
		result, err := svc.DeployPipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("Second deploy failed: %v", err)
		}
		if result.Results[model.ConnectorTypeSource].Action != ActionUpdated {
			t.Errorf("Expected source updated on redeploy, got %+v", result.Results)
		}
		if result.Results[model.ConnectorTypeSink].Action != ActionUpdated {
			t.Errorf("Expected sink updated on redeploy, got %+v", result.Results)
		}
	})

	t.Run("SinkFailureRollsBackSource", func(t *testing.T) {
		engine := newFakeEngine(t)
		svc, dbConn := newTestService(t, engine)
		ctx := context.Background()
		pipe := createDeployablePipeline(t, svc, "deploy-rollback")
		engine.failCreate("deploy-rollback-sink", 500)

		result, err := svc.DeployPipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("DeployPipeline returned transport error: %v", err)
		}
		if result.Succeeded() {
			t.Fatal("Expected failure result")
		}
		if result.Results[model.ConnectorTypeSource].Action != ActionCreated {
			t.Errorf("Expected source reported as created, got %+v", result.Results)
		}
		if result.Results[model.ConnectorTypeSink].Error == "" {
			t.Error("Expected sink error reported")
		}
		if result.Rollback == "" {
			t.Error("Expected rollback outcome reported")
		}

		// The compensating delete removed the source connector
		if engine.has("deploy-rollback-source") {
			t.Error("Expected source connector deleted from the engine")
		}

		var stored model.Pipeline
		if err := dbConn.First(&stored, pipe.ID).Error; err != nil {
			t.Fatalf("Load pipeline: %v", err)
		}
		if stored.Status != model.PipelineStatusError {
			t.Errorf("Expected status error, got %s", stored.Status)
		}
	})

	t.Run("SourceFailureNeedsNoCompensation", func(t *testing.T) {
		engine := newFakeEngine(t)
		svc, dbConn := newTestService(t, engine)
		ctx := context.Background()
		pipe := createDeployablePipeline(t, svc, "deploy-src-fail")
		engine.failCreate("deploy-src-fail-source", 400)

		result, err := svc.DeployPipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("DeployPipeline failed: %v", err)
		}
		if result.Succeeded() {
			t.Fatal("Expected failure result")
		}
		if result.Rollback != "" {
			t.Errorf("Expected no rollback, got %q", result.Rollback)
		}
		if _, ok := result.Results[model.ConnectorTypeSink]; ok {
			t.Error("Expected sink untouched after source failure")
		}

		var stored model.Pipeline
		if err := dbConn.First(&stored, pipe.ID).Error; err != nil {
			t.Fatalf("Load pipeline: %v", err)
		}
		if stored.Status != model.PipelineStatusError {
			t.Errorf("Expected status error, got %s", stored.Status)
		}
	})

	t.Run("MissingPipeline", func(t *testing.T) {
		engine := newFakeEngine(t)
		svc, _ := newTestService(t, engine)
		_, err := svc.DeployPipeline(context.Background(), 9999)
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})
}

func TestStartPausePipeline(t *testing.T) {
	engine := newFakeEngine(t)
	svc, _ := newTestService(t, engine)
	ctx := context.Background()
	pipe := createDeployablePipeline(t, svc, "control-pipe")

	if _, err := svc.DeployPipeline(ctx, pipe.ID); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	t.Run("PauseBoth", func(t *testing.T) {
		result, err := svc.PausePipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("PausePipeline failed: %v", err)
		}
		if len(result.Errors) != 0 {
			t.Errorf("Expected no errors, got %v", result.Errors)
		}
	})

	t.Run("StartBoth", func(t *testing.T) {
		result, err := svc.StartPipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("StartPipeline failed: %v", err)
		}
		if len(result.Errors) != 0 {
			t.Errorf("Expected no errors, got %v", result.Errors)
		}
	})

	t.Run("BestEffortCollectsPartialFailure", func(t *testing.T) {
		// Drop the sink from the engine so resume 404s on it
		if err := engine.client().DeleteConnector(ctx, "control-pipe-sink"); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		result, err := svc.StartPipeline(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("StartPipeline failed: %v", err)
		}
		if len(result.Errors) != 1 {
			t.Fatalf("Expected exactly one step error, got %v", result.Errors)
		}
		if result.Errors[0].Connector != "control-pipe-sink" {
			t.Errorf("Expected the sink to be the failing step, got %+v", result.Errors[0])
		}
	})
}

func TestDeleteConnectors(t *testing.T) {
	engine := newFakeEngine(t)
	svc, dbConn := newTestService(t, engine)
	ctx := context.Background()
	pipe := createDeployablePipeline(t, svc, "delete-pipe")

	if _, err := svc.DeployPipeline(ctx, pipe.ID); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	t.Run("RemovesBoth", func(t *testing.T) {
		result, err := svc.DeleteConnectors(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("DeleteConnectors failed: %v", err)
		}
		if len(result.Errors) != 0 {
			t.Errorf("Expected no errors, got %v", result.Errors)
		}
		if engine.has("delete-pipe-source") || engine.has("delete-pipe-sink") {
			t.Error("Expected both connectors removed from the engine")
		}

		// Metadata rows survive; this is engine teardown only
		var count int64
		if err := dbConn.Model(&model.PipelineConnector{}).Where("pipeline_id = ?", pipe.ID).Count(&count).Error; err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected connector rows untouched, got %d", count)
		}
	})

	t.Run("AbsentConnectorsAreFine", func(t *testing.T) {
		result, err := svc.DeleteConnectors(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("Second DeleteConnectors failed: %v", err)
		}
		if len(result.Errors) != 0 {
			t.Errorf("Expected absence to be treated as deleted, got %v", result.Errors)
		}
	})
}

func TestGetStatus(t *testing.T) {
	engine := newFakeEngine(t)
	svc, _ := newTestService(t, engine)
	ctx := context.Background()
	pipe := createDeployablePipeline(t, svc, "status-pipe")

	if _, err := svc.DeployPipeline(ctx, pipe.ID); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	t.Run("BothLive", func(t *testing.T) {
		status, err := svc.GetStatus(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("GetStatus failed: %v", err)
		}
		if status.Source == nil || status.Source.State != kafkaconnect.StateRunning {
			t.Errorf("Expected running source, got %+v", status.Source)
		}
		if status.Sink == nil || status.Sink.State != kafkaconnect.StateRunning {
			t.Errorf("Expected running sink, got %+v", status.Sink)
		}
		if len(status.Errors) != 0 {
			t.Errorf("Expected no errors, got %v", status.Errors)
		}
	})

	t.Run("PerConnectorFailureDoesNotFailCall", func(t *testing.T) {
		if err := engine.client().DeleteConnector(ctx, "status-pipe-sink"); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		status, err := svc.GetStatus(ctx, pipe.ID)
		if err != nil {
			t.Fatalf("GetStatus failed: %v", err)
		}
		if status.Source == nil || status.Source.State != kafkaconnect.StateRunning {
			t.Errorf("Expected source still reported, got %+v", status.Source)
		}
		if status.Sink == nil || status.Sink.Error == "" {
			t.Errorf("Expected sink error recorded, got %+v", status.Sink)
		}
		if len(status.Errors) != 1 {
			t.Errorf("Expected one step error, got %v", status.Errors)
		}
	})
}
