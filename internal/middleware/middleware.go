// Package middleware: gin middleware: журнал запросов, CORS для webhook, идентичность агента.
package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// CallerIDKey: ключ gin.Context с id действующего агента.
	CallerIDKey = "caller_id"

	HeaderCallerID      = "X-Caller-ID"
	HeaderWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"
)

// RequestLogger пишет одну строку на запрос; 5xx: Error, 4xx: Warn.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Debug("http request", fields...)
		}
	}
}

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// CORS: открытый CORS для telegram-эндпоинтов; preflight отвечает "ok".
// extraHeaders добавляются к разрешённым заголовкам (например X-Caller-ID для /send).
func CORS(extraHeaders ...string) gin.HandlerFunc {
	allow := corsAllowHeaders
	for _, hdr := range extraHeaders {
		allow += ", " + strings.ToLower(hdr)
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", allow)
		if c.Request.Method == http.MethodOptions {
			c.String(http.StatusOK, "ok")
			c.Abort()
			return
		}
		c.Next()
	}
}

// WebhookSecret сверяет секрет, заданный при setWebhook. Пустой secret: проверка выключена.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}

// Identity определяет действующего агента: subject Bearer JWT (HS256), если задан jwtSecret,
// иначе заголовок X-Caller-ID. Без идентичности: 401.
func Identity(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		var callerID string
		if len(secret) > 0 {
			authHeader := c.GetHeader("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || tokenString == authHeader {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			sub, err := subjectFromToken(tokenString, secret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			callerID = sub
		} else {
			callerID = strings.TrimSpace(c.GetHeader(HeaderCallerID))
		}
		if callerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "caller identity required"})
			return
		}
		c.Set(CallerIDKey, callerID)
		c.Next()
	}
}

func subjectFromToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// CallerID: id агента, установленный Identity.
func CallerID(c *gin.Context) string {
	return c.GetString(CallerIDKey)
}
