package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"sms-ingress-server/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityHeadersMiddleware adds security-related headers to the response
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

// HTTPSRedirectMiddleware redirects non-HTTPS requests to HTTPS.
func HTTPSRedirectMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestIsHTTPS(c.Request) {
			c.Next()
			return
		}

		targetURL := "https://" + c.Request.Host + c.Request.URL.RequestURI()
		c.Redirect(http.StatusPermanentRedirect, targetURL)
		c.Abort()
	}
}

func requestIsHTTPS(req *http.Request) bool {
	if req.TLS != nil {
		return true
	}

	forwardedProto := req.Header.Get("X-Forwarded-Proto")
	return strings.EqualFold(forwardedProto, "https")
}

// CORSMiddleware allows cross-origin calls from the given origins; "*" allows any
func CORSMiddleware(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RequestIDMiddleware adds a unique ID to each request and to its context
// so that loggers derived from it carry the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set("RequestID", rid)
		c.Header("X-Request-ID", rid)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// RequestSizeLimitMiddleware limits the size of the request body
func RequestSizeLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// AuditLogMiddleware logs request details for security auditing
func AuditLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		rid, _ := c.Get("RequestID")
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		latency := time.Since(start)

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("request_id", fmt.Sprintf("%v", rid)),
			zap.String("client_ip", clientIP),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Audit Log", fields...)
			return
		}
		logger.Info("Audit Log", fields...)
	}
}
