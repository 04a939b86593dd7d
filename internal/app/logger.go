package app

import "github.com/baselineanalytics/portal/pkg/logger"

// ServiceName tags every log entry the server writes.
const ServiceName = "baseline-portal"

// ConfigureLogging builds the global logger from the server settings.
func ConfigureLogging(cfg ServerConfig) error {
	return logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: ServiceName,
	})
}
