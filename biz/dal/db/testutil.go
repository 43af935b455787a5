package db

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Reduce log noise in tests
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}

	return db
}

// CleanupTestDB closes the database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close DB: %v", err)
	}
}

// CreateTestPipeline creates a test pipeline with both connectors attached
func CreateTestPipeline(t *testing.T, db *gorm.DB, name string) *model.Pipeline {
	t.Helper()
	pipeDAO := NewPipelineDAO()
	connDAO := NewPipelineConnectorDAO()

	pipe := &model.Pipeline{
		Name:                 name,
		Description:          "Test pipeline",
		SourceType:           "postgres",
		SinkType:             "jdbc",
		Mode:                 "incremental",
		Status:               model.PipelineStatusDraft,
		BackupRetentionHours: 24,
		CreatedBy:            "tester",
	}
	if err := pipeDAO.Create(context.Background(), db, pipe); err != nil {
		t.Fatalf("Failed to create test pipeline: %v", err)
	}

	for _, connType := range []string{model.ConnectorTypeSource, model.ConnectorTypeSink} {
		conn := &model.PipelineConnector{
			PipelineID:     pipe.ID,
			Name:           name + "-" + connType,
			Type:           connType,
			ConnectorClass: "io.debezium.connector.postgresql.PostgresConnector",
			Config:         "{}",
		}
		if err := connDAO.Create(context.Background(), db, conn); err != nil {
			t.Fatalf("Failed to create test connector: %v", err)
		}
	}
	return pipe
}

// CreateTestDefinition creates a definition with one active version
func CreateTestDefinition(t *testing.T, db *gorm.DB, name, kind, config string) *model.ConnectorDefinition {
	t.Helper()
	defDAO := NewConnectorDefinitionDAO()
	verDAO := NewConnectorVersionDAO()

	def := &model.ConnectorDefinition{
		Name:  name,
		Kind:  kind,
		Class: "io.debezium.connector.postgresql.PostgresConnector",
		Owner: "tester",
	}
	if err := defDAO.Create(context.Background(), db, def); err != nil {
		t.Fatalf("Failed to create test definition: %v", err)
	}

	ver := &model.ConnectorVersion{
		DefinitionID: def.ID,
		Version:      1,
		Config:       config,
		Checksum:     "test-checksum",
		IsActive:     true,
		CreatedBy:    "tester",
	}
	if err := verDAO.Create(context.Background(), db, ver); err != nil {
		t.Fatalf("Failed to create test version: %v", err)
	}
	return def
}
