package daemon

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// longLived routes hold the connection open for as long as the client
// listens; their latency is not interesting.
var longLived = map[string]bool{
	"/events": true,
	"/ws":     true,
}

// ginLogger writes one logrus entry per request.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// handlers may rewrite the path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := int(math.Ceil(float64(time.Since(start).Nanoseconds()) / 1e6))
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		fields := logrus.Fields{
			"statusCode": statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
		}
		if !longLived[path] {
			fields["latency"] = latency
		}
		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}

		msg := fmt.Sprintf("%s %s %d", c.Request.Method, path, statusCode)
		if !longLived[path] {
			msg += fmt.Sprintf(" (%dms)", latency)
		}
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(msg)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(msg)
		case path == "/metrics":
			entry.Trace(msg)
		default:
			entry.Debug(msg)
		}
	}
}
