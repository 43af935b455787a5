package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/biz/model/api"
	"github.com/yunolab/connect_bridge/pkg/common"
)

func TestCreateVersion(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	t.Run("FirstVersionIsActive", func(t *testing.T) {
		info, err := svc.CreateVersion(ctx, "orders-source", &api.CreateVersionRequest{
			Kind:  model.ConnectorTypeSource,
			Class: "io.debezium.connector.postgresql.PostgresConnector",
			Config: map[string]string{
				"database.hostname":    "db.internal",
				"database.server.name": "orders",
			},
		})
		if err != nil {
			t.Fatalf("CreateVersion failed: %v", err)
		}
		if info.Version != 1 {
			t.Errorf("Expected version 1, got %d", info.Version)
		}
		if !info.IsActive {
			t.Error("Expected first version to be active")
		}
		if info.Reused {
			t.Error("Expected a fresh version, not a reuse")
		}
	})

	t.Run("IdenticalConfigIsIdempotent", func(t *testing.T) {
		// Same logical config, historical key spelling
		info, err := svc.CreateVersion(ctx, "orders-source", &api.CreateVersionRequest{
			Config: map[string]string{
				"host":        "db.internal",
				"server.name": "orders",
			},
		})
		if err != nil {
			t.Fatalf("CreateVersion failed: %v", err)
		}
		if !info.Reused {
			t.Error("Expected the active version to be reused")
		}
		if info.Version != 1 {
			t.Errorf("Expected version 1 returned again, got %d", info.Version)
		}

		versions, err := svc.ListVersions(ctx, "orders-source")
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		if len(versions) != 1 {
			t.Errorf("Expected exactly 1 version row, got %d", len(versions))
		}
	})

	t.Run("ChangedConfigAllocatesNextVersion", func(t *testing.T) {
		info, err := svc.CreateVersion(ctx, "orders-source", &api.CreateVersionRequest{
			Config: map[string]string{
				"database.hostname":    "db2.internal",
				"database.server.name": "orders",
			},
		})
		if err != nil {
			t.Fatalf("CreateVersion failed: %v", err)
		}
		if info.Version != 2 {
			t.Errorf("Expected version 2, got %d", info.Version)
		}
		if info.IsActive {
			t.Error("Expected new version to stay inactive until activated")
		}
	})

	t.Run("WarningsDoNotBlock", func(t *testing.T) {
		info, err := svc.CreateVersion(ctx, "noisy-sink", &api.CreateVersionRequest{
			Kind:  model.ConnectorTypeSink,
			Class: "io.confluent.connect.jdbc.JdbcSinkConnector",
			Config: map[string]string{
				"tasks.max":         "64",
				"database.password": "hunter2",
			},
		})
		if err != nil {
			t.Fatalf("CreateVersion failed: %v", err)
		}
		if len(info.Warnings) != 2 {
			t.Errorf("Expected 2 advisory warnings, got %v", info.Warnings)
		}
	})

	t.Run("InvalidName", func(t *testing.T) {
		_, err := svc.CreateVersion(ctx, "bad name!", &api.CreateVersionRequest{
			Kind:   model.ConnectorTypeSource,
			Class:  "c",
			Config: map[string]string{"k": "v"},
		})
		if !errors.Is(err, common.ErrValidation) {
			t.Errorf("Expected ErrValidation, got: %v", err)
		}
	})

	t.Run("NewConnectorNeedsKindAndClass", func(t *testing.T) {
		_, err := svc.CreateVersion(ctx, "unknown-conn", &api.CreateVersionRequest{
			Config: map[string]string{"k": "v"},
		})
		if !errors.Is(err, common.ErrValidation) {
			t.Errorf("Expected ErrValidation, got: %v", err)
		}
	})
}

func TestActivateVersion(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, cfg := range []map[string]string{
		{"database.hostname": "a", "database.server.name": "s"},
		{"database.hostname": "b", "database.server.name": "s"},
	} {
		if _, err := svc.CreateVersion(ctx, "act-source", &api.CreateVersionRequest{
			Kind: model.ConnectorTypeSource, Class: "c", Config: cfg,
		}); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	t.Run("Flip", func(t *testing.T) {
		if err := svc.ActivateVersion(ctx, "act-source", 2); err != nil {
			t.Fatalf("ActivateVersion failed: %v", err)
		}
		versions, err := svc.ListVersions(ctx, "act-source")
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		for _, v := range versions {
			if v.Version == 2 && !v.IsActive {
				t.Error("Expected version 2 active")
			}
			if v.Version == 1 && v.IsActive {
				t.Error("Expected version 1 deactivated")
			}
		}
	})

	t.Run("MissingVersionConflicts", func(t *testing.T) {
		err := svc.ActivateVersion(ctx, "act-source", 42)
		if !errors.Is(err, common.ErrConflict) {
			t.Errorf("Expected ErrConflict, got: %v", err)
		}
	})

	t.Run("MissingConnector", func(t *testing.T) {
		err := svc.ActivateVersion(ctx, "no-such-conn", 1)
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})
}

func TestDiff(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.CreateVersion(ctx, "diff-source", &api.CreateVersionRequest{
		Kind: model.ConnectorTypeSource, Class: "c",
		Config: map[string]string{
			"database.hostname":    "a",
			"database.server.name": "s",
			"snapshot.mode":        "initial",
		},
	}); err != nil {
		t.Fatalf("Setup v1 failed: %v", err)
	}
	if _, err := svc.CreateVersion(ctx, "diff-source", &api.CreateVersionRequest{
		Config: map[string]string{
			"database.hostname":    "b",
			"database.server.name": "s",
			"tasks.max":            "2",
		},
	}); err != nil {
		t.Fatalf("Setup v2 failed: %v", err)
	}

	t.Run("PartitionsKeys", func(t *testing.T) {
		diff, err := svc.Diff(ctx, "diff-source", 1, 2)
		if err != nil {
			t.Fatalf("Diff failed: %v", err)
		}
		if len(diff.Added) != 1 || diff.Added["tasks.max"] != "2" {
			t.Errorf("Expected tasks.max added, got %v", diff.Added)
		}
		if len(diff.Removed) != 1 {
			t.Errorf("Expected snapshot.mode removed, got %v", diff.Removed)
		}
		if len(diff.Changed) != 1 {
			t.Fatalf("Expected one changed key, got %v", diff.Changed)
		}
		change := diff.Changed["database.hostname"]
		if change.Old != "a" || change.New != "b" {
			t.Errorf("Expected hostname a->b, got %+v", change)
		}

		// The three sets are disjoint and cover the union of keys
		union := map[string]bool{}
		for k := range diff.Added {
			union[k] = true
		}
		for k := range diff.Removed {
			if union[k] {
				t.Errorf("Key %s in two sets", k)
			}
			union[k] = true
		}
		for k := range diff.Changed {
			if union[k] {
				t.Errorf("Key %s in two sets", k)
			}
			union[k] = true
		}
		// unchanged key database.server.name is in neither set
		if union["database.server.name"] {
			t.Error("Unchanged key must not appear in any set")
		}
		if len(union) != 3 {
			t.Errorf("Expected 3 differing keys, got %d", len(union))
		}
	})

	t.Run("SelfDiffIsEmpty", func(t *testing.T) {
		diff, err := svc.Diff(ctx, "diff-source", 2, 2)
		if err != nil {
			t.Fatalf("Diff failed: %v", err)
		}
		if len(diff.Added)+len(diff.Removed)+len(diff.Changed) != 0 {
			t.Errorf("Expected empty self diff, got %+v", diff)
		}
	})

	t.Run("MissingVersion", func(t *testing.T) {
		_, err := svc.Diff(ctx, "diff-source", 1, 9)
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})
}

func TestDeployments(t *testing.T) {
	engine := newFakeEngine(t)
	svc, _ := newTestService(t, engine)
	ctx := context.Background()

	if _, err := svc.CreateVersion(ctx, "dep-source", &api.CreateVersionRequest{
		Kind: model.ConnectorTypeSource, Class: "io.debezium.connector.postgresql.PostgresConnector",
		Config: map[string]string{
			"database.hostname":    "db.internal",
			"database.server.name": "orders",
		},
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("CreateThenApply", func(t *testing.T) {
		dep, err := svc.CreateDeployment(ctx, &api.CreateDeploymentRequest{
			Name:        "dep-source",
			Version:     1,
			Environment: "staging",
		})
		if err != nil {
			t.Fatalf("CreateDeployment failed: %v", err)
		}
		if dep.Status != model.DeploymentStatusPending {
			t.Errorf("Expected pending, got %s", dep.Status)
		}

		applied, err := svc.ApplyDeployment(ctx, dep.ID)
		if err != nil {
			t.Fatalf("ApplyDeployment failed: %v", err)
		}
		if applied.Status != model.DeploymentStatusDeployed {
			t.Errorf("Expected deployed, got %s", applied.Status)
		}
		if applied.Action != ActionCreated {
			t.Errorf("Expected action created, got %s", applied.Action)
		}
		if !engine.has("dep-source") {
			t.Error("Expected connector present on the engine")
		}
	})

	t.Run("ApplyRecordsEngineFailure", func(t *testing.T) {
		engine.failCreate("dep-source", 500)

		dep, err := svc.CreateDeployment(ctx, &api.CreateDeploymentRequest{
			Name:        "dep-source",
			Version:     1,
			Environment: "prod",
		})
		if err != nil {
			t.Fatalf("CreateDeployment failed: %v", err)
		}
		applied, err := svc.ApplyDeployment(ctx, dep.ID)
		if err == nil {
			t.Fatal("Expected engine failure to propagate")
		}
		if applied.Status != model.DeploymentStatusError {
			t.Errorf("Expected error status, got %s", applied.Status)
		}
	})

	t.Run("UnknownVersion", func(t *testing.T) {
		_, err := svc.CreateDeployment(ctx, &api.CreateDeploymentRequest{
			Name:        "dep-source",
			Version:     9,
			Environment: "staging",
		})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})
}
