package monitoring

import (
	"time"

	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/storage"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	backend   storage.Backend
	db        *gorm.DB
	cache     Cache
	report    ConfigReport
	logger    *log.Logger
	startTime time.Time
}

func NewMonitoringControllerFactory(
	backend storage.Backend,
	db *gorm.DB,
	cache Cache,
	report ConfigReport,
	logger *log.Logger,
	startTime time.Time,
) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		backend:   backend,
		db:        db,
		cache:     cache,
		report:    report,
		logger:    logger,
		startTime: startTime,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.backend, f.db, f.cache, f.report, f.logger, f.startTime)
}
