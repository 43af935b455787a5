package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/yunolab/connect_bridge/biz/handler"
	"github.com/yunolab/connect_bridge/biz/handler/version"
)

// Register configures the HTTP surface: pipeline lifecycle and
// orchestration, the config registry, monitoring administration, and the
// health and build-info probes.
func Register(r *server.Hertz, pipelines *handler.PipelineHandler, registry *handler.RegistryHandler, monitoring *handler.MonitoringHandler) {
	v1 := r.Group("/api/v1")

	p := v1.Group("/pipelines")
	p.POST("", pipelines.CreatePipeline)
	p.GET("", pipelines.ListPipelines)
	p.GET("/:id", pipelines.GetPipeline)
	p.DELETE("/:id", pipelines.DeletePipeline)
	p.POST("/:id/restore", pipelines.RestorePipeline)
	p.POST("/:id/deploy", pipelines.DeployPipeline)
	p.POST("/:id/start", pipelines.StartPipeline)
	p.POST("/:id/pause", pipelines.PausePipeline)
	p.DELETE("/:id/connectors", pipelines.DeleteConnectors)
	p.PUT("/:id/connectors/:type/config", pipelines.StageConnectorConfig)
	p.GET("/:id/status", pipelines.GetStatus)
	p.POST("/:id/progress", pipelines.RecordProgress)
	p.GET("/:id/alerts", monitoring.ListAlerts)
	p.GET("/:id/alert-rules", monitoring.ListAlertRules)
	p.PUT("/:id/alert-rules", monitoring.UpsertAlertRule)

	reg := v1.Group("/registry")
	reg.POST("/connectors/:name/versions", registry.CreateVersion)
	reg.GET("/connectors/:name/versions", registry.ListVersions)
	reg.POST("/connectors/:name/versions/:v/activate", registry.ActivateVersion)
	reg.GET("/connectors/:name/diff", registry.Diff)
	reg.POST("/deployments", registry.CreateDeployment)
	reg.POST("/deployments/:id/apply", registry.ApplyDeployment)

	v1.POST("/pipeline-cleanup", pipelines.Cleanup)

	v1.GET("/monitoring/settings", monitoring.GetSettings)
	v1.PUT("/monitoring/settings", monitoring.UpdateSettings)

	v1.GET("/version", version.GetVersion)
	r.GET("/healthz", handler.Ping)
	r.GET("/ping", handler.Ping)
}
