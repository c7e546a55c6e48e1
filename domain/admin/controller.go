package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/auth"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/pkg/factory"
)

// Login attempts per client IP per minute, independent of the per-user lockout.
const loginRequestsPerMinute = 10

func NewAdminController(gate *auth.Gate, logger *log.Logger) *router.RESTController {
	return router.NewRESTController(
		"AdminController",
		"/api/admin",
		func(rs *router.RouterService, c *router.RESTController) {
			limiter := factory.NewRateLimiterFactoryFrom(rs, logger).CreateRateLimiter(loginRequestsPerMinute, time.Minute)

			rs.AddPostHandler(c, limiter, "/:userName/login", loginHandler(gate))
		},
	)
}

func loginHandler(gate *auth.Gate) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)
		userName := ctx.Param("userName")

		if !gate.Enabled() {
			return router.ErrorBodyResult(http.StatusNotFound, MsgInvalidUsername)
		}

		var req LoginRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind login request", "error", err)
			return router.ErrorBodyResult(http.StatusBadRequest, MsgInvalidBody)
		}
		if req.Password == "" {
			return router.ErrorBodyResult(http.StatusBadRequest, MsgPasswordRequired)
		}

		result, err := gate.Login(ctx.Request.Context(), userName, req.Password)
		if err == nil {
			logger.Info("Admin login succeeded", "user", userName)
			return router.BodyResult(http.StatusOK, result)
		}

		var invalid *auth.InvalidPasswordError
		switch {
		case errors.Is(err, auth.ErrUnknownUser):
			logger.Warn("Admin login for unknown user")
			return router.ErrorBodyResult(http.StatusNotFound, MsgInvalidUsername)
		case errors.As(err, &invalid):
			logger.Warn("Admin login with incorrect password", "user", userName, "attempts_remaining", invalid.AttemptsRemaining)
			return router.BodyResult(http.StatusUnauthorized, InvalidPasswordResponse{
				Error:             MsgIncorrectPassword,
				AttemptsRemaining: invalid.AttemptsRemaining,
			})
		case errors.Is(err, auth.ErrLocked):
			logger.Warn("Admin user locked out", "user", userName)
			return router.ErrorBodyResult(http.StatusLocked, MsgAccessLocked)
		default:
			logger.Error("Admin login failed", "user", userName, "error", err)
			return router.ErrorBodyResult(http.StatusInternalServerError, MsgLoginFailed)
		}
	}
}
