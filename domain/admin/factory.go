package admin

import (
	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/auth"
	"github.com/concordtech/contact-api/internal/log"
)

type AdminServiceFactory interface {
	CreateController() *router.RESTController
}

type DefaultAdminServiceFactory struct {
	gate   *auth.Gate
	logger *log.Logger
}

func NewAdminServiceFactory(gate *auth.Gate, logger *log.Logger) AdminServiceFactory {
	return &DefaultAdminServiceFactory{gate: gate, logger: logger}
}

func (f *DefaultAdminServiceFactory) CreateController() *router.RESTController {
	return NewAdminController(f.gate, f.logger)
}
