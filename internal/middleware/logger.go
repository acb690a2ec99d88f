package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

// Logger configuration
type LoggerConfig struct {
	LogRequestBody   bool
	LogResponseBody  bool
	MaxBodySize      int64 // Max body size to log (in bytes)
	SkipPaths        []string
	SensitiveHeaders []string
}

// DefaultLoggerConfig logs request bodies and only error response bodies.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		LogRequestBody:   true,
		LogResponseBody:  false,
		MaxBodySize:      2048,
		SkipPaths:        []string{"/health", "/metrics"},
		SensitiveHeaders: []string{"authorization", "cookie", "x-api-key"},
	}
}

func Logger(log logger.Logger) gin.HandlerFunc {
	return LoggerWithConfig(log, DefaultLoggerConfig())
}

// LoggerWithConfig emits one structured record per request.
func LoggerWithConfig(log logger.Logger, config LoggerConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		contentType := c.GetHeader("Content-Type")

		var requestBody string
		if config.LogRequestBody && c.Request.Body != nil && c.Request.ContentLength > 0 {
			if c.Request.ContentLength > config.MaxBodySize {
				requestBody = "[Request body too large to log]"
			} else if strings.Contains(contentType, "application/json") {
				bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, config.MaxBodySize))
				if err == nil {
					c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
					requestBody = sanitizeBody(string(bodyBytes))
				}
			}
		}

		writer := &limitedResponseWriter{
			ResponseWriter: c.Writer,
			maxSize:        config.MaxBodySize,
		}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"size", writer.size,
			"ip", c.ClientIP(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", truncateString(q, 200))
		}
		if userID := c.GetString("userID"); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}
		if requestBody != "" {
			attrs = append(attrs, "request_body", requestBody)
		}
		if writer.body.Len() > 0 && (config.LogResponseBody || status >= 400) {
			attrs = append(attrs, "response_body", sanitizeBody(writer.body.String()))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		log.ToSlog().Log(c.Request.Context(), Level(status), "request", attrs...)
	}
}

// Level picks the record level for a status code.
func Level(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Size-limited response writer
type limitedResponseWriter struct {
	gin.ResponseWriter
	body    bytes.Buffer
	size    int64
	maxSize int64
}

func (w *limitedResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)

	if w.size+int64(len(b)) <= w.maxSize {
		w.body.Write(b[:n])
	}
	w.size += int64(n)

	return n, err
}

func sanitizeBody(body string) string {
	if len(body) == 0 {
		return ""
	}

	if len(body) > 1024 {
		return "[Body too large to log]"
	}

	var jsonData interface{}
	if json.Unmarshal([]byte(body), &jsonData) == nil {
		sanitized := hideSensitiveFields(jsonData)
		if formatted, err := json.Marshal(sanitized); err == nil {
			return string(formatted)
		}
	}

	return truncateString(body, 200)
}

func hideSensitiveFields(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, value := range v {
			if isSensitiveField(strings.ToLower(key)) {
				result[key] = "********"
			} else {
				result[key] = hideSensitiveFields(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = hideSensitiveFields(item)
		}
		return result
	default:
		return v
	}
}

func isSensitiveField(field string) bool {
	sensitive := []string{"password", "token", "secret", "key", "auth", "credential"}
	for _, s := range sensitive {
		if strings.Contains(field, s) {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
