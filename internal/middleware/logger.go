package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// Logger middleware logs HTTP requests and tags each with a request id
func Logger(log *logrus.Entry) gin.HandlerFunc {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
