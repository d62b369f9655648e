package middleware

import (
	"strconv"
	"time"

	"bhms/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDKey 请求ID在上下文和响应头中的名称
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger 为每个请求分配ID，记录访问日志和指标
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		entry := log.WithFields(logrus.Fields{
			RequestIDKey: requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if p := GetPrincipal(c); p != nil {
			entry = entry.WithField("account", string(p.Role)+":"+strconv.FormatUint(uint64(p.AccountID), 10))
		}
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request completed with errors")
			return
		}
		entry.Info("request completed")
	}
}
