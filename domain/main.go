package domain

import (
	"github.com/concordtech/contact-api/config"
	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/domain/admin"
	"github.com/concordtech/contact-api/domain/contact"
	"github.com/concordtech/contact-api/domain/monitoring"
	"github.com/concordtech/contact-api/pkg/utils"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	var cache monitoring.Cache
	if appConfig.Cache != nil {
		cache = appConfig.Cache
	}

	appConfig.RouterService.MountController(monitoring.NewMonitoringController(
		appConfig.Storage,
		appConfig.DB,
		cache,
		BuildConfigReport(appConfig),
		appConfig.Logger,
		appConfig.StartedAt,
	))

	appConfig.RouterService.MountController(contact.NewContactController(
		appConfig.Storage,
		appConfig.AdminGate,
		appConfig.Logger,
		appConfig.Config.SubmissionRequestsPerMinute,
	))

	appConfig.RouterService.MountController(admin.NewAdminController(appConfig.AdminGate, appConfig.Logger))
}

func BuildConfigReport(appConfig *config.ApplicationConfig) monitoring.ConfigReport {
	report := monitoring.ConfigReport{
		RedisConfigured:    config.NewCacheConfig().IsConfigured(),
		DatabaseConfigured: config.NewDBConfig().IsConfigured(),
		FilePathSet:        utils.IsSet("STORAGE_FILE_PATH"),
		AdminEnabled:       appConfig.AdminGate.Enabled(),
		TracingEnabled:     utils.IsTracingEnabled(),
		MetricsEnabled:     router.MetricsEnabled(),
	}

	if sc := appConfig.StorageConfig; sc != nil {
		report.StorageBackend = sc.Backend
		report.Fallback = sc.Fallback
	}

	return report
}
