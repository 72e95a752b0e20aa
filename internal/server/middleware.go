package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phantomx-ai/phantomx/internal/apperr"
	"github.com/phantomx-ai/phantomx/internal/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	apiKeyHeader    = "X-API-Key"

	ctxRequestID = "request_id"
	ctxClientID  = "client_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", logger.Fields(
					"error", fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/readyz" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields(
			"method", c.Request.Method,
			"path", path,
			"status", status,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			logger.FieldRequestID, c.GetString(ctxRequestID),
		)
		if client := c.GetString(ctxClientID); client != "" {
			fields["client_id"] = client
		}

		switch {
		case status >= 500:
			s.log.Error("request completed", fields)
		case status >= 400:
			s.log.Warn("request completed", fields)
		default:
			s.log.Debug("request completed", fields)
		}
	}
}

// cors allows the configured origins; "*" allows any.
func cors(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(origin, origins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-Id")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// requireAPIKey enforces auth when any client is configured. Keys are read
// from "Authorization: Bearer <key>" or X-API-Key.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.auth.Enabled() {
			c.Next()
			return
		}

		key, ok := parseBearerToken(c.GetHeader("Authorization"))
		if !ok {
			key = strings.TrimSpace(c.GetHeader(apiKeyHeader))
		}
		if key == "" {
			s.abort(c, apperr.Unauthorized("Invalid or missing API key"))
			return
		}

		client, ok := s.auth.Lookup(key)
		if !ok {
			s.abort(c, apperr.Unauthorized("Invalid API key"))
			return
		}
		c.Set(ctxClientID, client.ID)
		c.Next()
	}
}

// parseBearerToken extracts the token from an Authorization header.
func parseBearerToken(h string) (string, bool) {
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// abort writes {"error": ...} with the status mapped from err.
func (s *Server) abort(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed", logger.Fields(
			"path", c.Request.URL.Path,
			"code", string(apperr.CodeOf(err)),
			logger.FieldRequestID, c.GetString(ctxRequestID),
		))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}
