package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

type HandlerFunction func(*RequestContext) *ServiceResult

// ServiceResult is what every handler returns. It renders as the {code, data, message} envelope
// unless Body is set.
type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Body       any    `json:"-"`
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

// RESTController groups handlers under one mount point. prepare registers them on mount.
type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) IsError() bool {
	return result.StatusCode >= 400
}

// ToJSON returns Body verbatim when set. Error envelopes repeat the message under "error".
func (result *ServiceResult) ToJSON() any {
	if result.Body != nil {
		return result.Body
	}

	body := gin.H{
		"code":    result.StatusCode,
		"data":    result.Data,
		"message": result.Message,
	}
	if result.IsError() {
		body["error"] = result.Message
	}
	return body
}
