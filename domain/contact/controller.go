package contact

import (
	"net/http"
	"time"

	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/auth"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/storage"
	"github.com/concordtech/contact-api/pkg/constants"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/concordtech/contact-api/pkg/factory"
	"github.com/concordtech/contact-api/pkg/ratelimit"
)

func NewContactController(
	backend storage.Backend,
	gate *auth.Gate,
	logger *log.Logger,
	submissionsPerMinute int,
) *router.RESTController {

	return router.NewRESTController(
		"ContactController",
		"/api",
		func(rs *router.RouterService, c *router.RESTController) {
			service := NewIntakeService(logger, backend)

			submissionLimiter := createSubmissionRateLimiter(rs, logger, submissionsPerMinute)
			requireAdmin := auth.RequireAdmin(gate)

			rs.AddPostHandler(c, submissionLimiter, "/contact", submitContactHandler(service))
			rs.AddGetHandler(c, nil, "/contact", listContactHandler(service), requireAdmin)
			rs.AddGetHandler(c, nil, "/submissions", listSubmissionsHandler(service), requireAdmin)
		},
	)
}

func createSubmissionRateLimiter(rs *router.RouterService, logger *log.Logger, requestsPerMinute int) ratelimit.RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = constants.DefaultSubmissionRequestsPerMinute
	}

	return factory.NewRateLimiterFactoryFrom(rs, logger).CreateRateLimiter(requestsPerMinute, time.Minute)
}

func submitContactHandler(service IntakeService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SubmitContactRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind contact submission", "error", err)
			return router.ErrorBodyResult(http.StatusBadRequest, MsgInvalidBody)
		}

		response, err := service.Accept(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorBodyResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
			)
		}

		return router.BodyResult(http.StatusOK, response)
	}
}

func listContactHandler(service IntakeService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		submissions, err := service.List(ctx.Request.Context())
		if err != nil {
			return router.ErrorBodyResult(http.StatusInternalServerError, MsgFetchFailed)
		}

		return router.BodyResult(http.StatusOK, ListResponse{Submissions: submissions})
	}
}

func listSubmissionsHandler(service IntakeService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		submissions, err := service.List(ctx.Request.Context())
		if err != nil {
			return router.ErrorBodyResult(http.StatusInternalServerError, MsgFetchFailed)
		}

		return router.BodyResult(http.StatusOK, SubmissionsResponse{
			Submissions: submissions,
			Count:       len(submissions),
		})
	}
}
