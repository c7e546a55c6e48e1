package contact

import (
	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/auth"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/storage"
)

type ContactServiceFactory interface {
	CreateService() IntakeService
	CreateController() *router.RESTController
}

type DefaultContactServiceFactory struct {
	backend              storage.Backend
	gate                 *auth.Gate
	logger               *log.Logger
	submissionsPerMinute int
}

func NewContactServiceFactory(backend storage.Backend, gate *auth.Gate, logger *log.Logger, submissionsPerMinute int) ContactServiceFactory {
	return &DefaultContactServiceFactory{
		backend:              backend,
		gate:                 gate,
		logger:               logger,
		submissionsPerMinute: submissionsPerMinute,
	}
}

func (f *DefaultContactServiceFactory) CreateService() IntakeService {
	return NewIntakeService(f.logger, f.backend)
}

func (f *DefaultContactServiceFactory) CreateController() *router.RESTController {
	return NewContactController(f.backend, f.gate, f.logger, f.submissionsPerMinute)
}
