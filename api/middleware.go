package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/fwdask/fwdask/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// mwRequestID tags every request with an ID, reusing the caller's when present.
func mwRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(headerRequestID, rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}

func mwLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := logger.Default().WithFields(map[string]any{
			"kind":     "api",
			"rid":      c.GetString(headerRequestID),
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"code":     status,
			"client":   c.ClientIP(),
			"duration": time.Since(start),
		})
		if status >= http.StatusInternalServerError {
			log.Warnf("%s %s: %d", c.Request.Method, c.Request.RequestURI, status)
			return
		}
		log.Infof("%s %s: %d", c.Request.Method, c.Request.RequestURI, status)
	}
}

func mwBasicAuth(username, password string) gin.HandlerFunc {
	if username == "" {
		return func(c *gin.Context) {}
	}
	return func(c *gin.Context) {
		u, p, _ := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(u), []byte(username))
		passOK := subtle.ConstantTimeCompare([]byte(p), []byte(password))
		if userOK&passOK == 1 {
			return
		}
		c.Header("WWW-Authenticate", `Basic realm="fwdask"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Code: http.StatusUnauthorized,
			Msg:  "Unauthorized",
		})
	}
}
