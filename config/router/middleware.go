package router

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/concordtech/contact-api/internal/log"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/concordtech/contact-api/pkg/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Correlation-ID"))
		if id == "" {
			id = log.GenerateCorrelationID()
		}
		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header("X-Correlation-ID", id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.logger.WithCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(log.ContextWithLogger(c.Request.Context(), correlatedLogger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.GetLoggerInstanceFromContext(c.Request.Context(), routerService.logger).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

// securityHeadersMiddleware sets HSTS only when the request arrived over TLS, directly or through a
// terminating proxy that reports X-Forwarded-Proto.
func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := routerService.settings.HSTSActive()
	hstsValue := routerService.settings.HSTSValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}

func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.settings.MaxRequestBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware returns nil when CORS_ALLOWED_ORIGIN is unset or invalid, which leaves
// cross-origin requests without CORS headers.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	origins := routerService.settings.CORSAllowedOrigins
	if len(origins) == 0 {
		routerService.logger.Warn("CORS_ALLOWED_ORIGIN not set, cross-origin requests will be denied")
		return nil
	}

	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Correlation-ID", "X-Requested-With"},
		ExposeHeaders: []string{"X-Correlation-ID", "X-RateLimit-Limit", "X-RateLimit-Window", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if routerService.settings.AllowsAnyOrigin() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	if err := cfg.Validate(); err != nil {
		routerService.logger.Error("Invalid CORS_ALLOWED_ORIGIN; CORS disabled", "error", err, "origins", origins)
		return nil
	}

	routerService.logger.Info("CORS enabled", "origins", origins)
	return cors.New(cfg)
}

// timeoutMiddleware puts a deadline on the request context. The chain runs on the request
// goroutine; a handler that overran without writing gets a 408.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), routerService.requestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			routerService.logger.WithCorrelationID(c.Request.Context()).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(
				apperrors.StatusRequestTimeout,
				"Request timeout",
				nil,
			).ToJSON())
		}
	}
}

// limiterFor resolves the limiter for a route: handler override, then controller override, then
// the global limiter. The scope names the Redis window the request is counted in.
func (routerService *RouterService) limiterFor(handlerKey string, controller *RESTController) (string, ratelimit.RateLimiter) {
	if l, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return handlerKey, l
	}
	if l, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return controller.mountPoint, l
	}
	return "global", routerService.rateLimiter
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		handlerKey := routerService.keyForPathAndMethod(c.FullPath(), c.Request.Method)

		controller, found := routerService.handlerToControllerMap[handlerKey]
		if !found || controller == nil {
			// Unknown routes fall through to NoRoute/NoMethod; /metrics is mounted outside controllers.
			c.Next()
			return
		}

		scope, limiter := routerService.limiterFor(handlerKey, controller)
		if limiter == nil {
			c.Next()
			return
		}

		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(c.Request.Context(), fmt.Sprintf("ratelimit:%s:%s", scope, clientIP))
		if err != nil {
			// Fail open: an unreachable limiter store must not take the API down with it.
			routerService.logger.Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}

		if !limited {
			c.Next()
			return
		}

		routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "scope", scope)
		routerService.metrics.rateLimited(scope)

		retryAfter := strconv.Itoa(max(int(math.Ceil(window.Seconds())), 1))
		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: retryAfter,
		}).ToJSON())
	}
}
