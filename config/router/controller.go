package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/concordtech/contact-api/pkg/ratelimit"
)

// normalizePath joins a controller mount point and a handler path into one clean absolute route.
func normalizePath(controller *RESTController, relativePath string) string {
	path := "/" + strings.Trim(controller.mountPoint, "/")
	if rel := strings.Trim(relativePath, "/"); rel != "" {
		path = strings.TrimSuffix(path, "/") + "/" + rel
	}
	return path
}

func (routerService *RouterService) keyForPathAndMethod(path, method string) string {
	return method + "-" + path
}

func (controller *RESTController) bindHandlerToController(routerService *RouterService, path, method string) {
	key := routerService.keyForPathAndMethod(path, method)

	if other, found := routerService.handlerToControllerMap[key]; found {
		panic(fmt.Sprintf("%s %s is already registered by controller '%s'", method, path, other.name))
	}

	routerService.handlerToControllerMap[key] = controller
}

func (routerService *RouterService) bindOverrideRateLimiter(scope string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}

	if _, found := routerService.rateLimitOverrides[scope]; found {
		panic(fmt.Sprintf("A rate limiter is already registered for '%s'", scope))
	}

	routerService.rateLimitOverrides[scope] = limiter
}

// createHandler writes whatever the handler returns. A nil result is a handler bug and becomes a 500.
func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("A handler returned an undefined result. This typically indicates a bug in a handler's implementation.").ToJSON())
			return
		}

		c.JSON(result.StatusCode, result.ToJSON())
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: "/" + strings.Trim(mountPoint, "/"),
		prepare:    prepare,
	}
}

func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	controller := NewRESTController(name, version+"/"+strings.Trim(mountPoint, "/"), prepare)
	controller.version = version
	return controller
}

// RateLimitWith applies limiter to every handler of the controller that has no limiter of its own.
func (controller *RESTController) RateLimitWith(routerService *RouterService, limiter ratelimit.RateLimiter) *RESTController {
	routerService.bindOverrideRateLimiter(controller.mountPoint, limiter)
	return controller
}

// addHandler registers one route. Middlewares run after rate limiting and before the handler.
func (routerService *RouterService) addHandler(
	method string,
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	route := normalizePath(controller, path)

	controller.bindHandlerToController(routerService, route, method)
	routerService.bindOverrideRateLimiter(routerService.keyForPathAndMethod(route, method), limiter)
	controller.handlerCount++

	chain := make([]MiddlewareFunc, 0, len(middlewares)+1)
	chain = append(chain, middlewares...)
	chain = append(chain, createHandler(handler))

	routerService.engine.Handle(method, route, chain...)
	routerService.logger.Debug("Handler registered", "method", method, "path", route, "rate_limited", limiter != nil)
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodPost, controller, limiter, path, handler, middlewares...)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodGet, controller, limiter, path, handler, middlewares...)
}
