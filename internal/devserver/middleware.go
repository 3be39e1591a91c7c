package devserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	CSRFCookieName    = "csrftoken"
	CSRFHeaderName    = "X-CSRFToken"
	SessionCookieName = "sessionid"

	userIDKey = "userID"
)

func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func setCSRFCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CSRFCookieName,
		Value:    newToken(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

func detail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"detail": msg})
}

// csrfMW hands out a token on safe requests and demands it back, as the
// X-CSRFToken header, on everything else.
func csrfMW(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := ""
		if cookie, err := c.Cookie(CSRFCookieName); err == nil {
			token = cookie.Value
		}
		switch c.Request().Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			if token == "" {
				setCSRFCookie(c)
			}
			return next(c)
		}
		if token == "" {
			return detail(c, http.StatusForbidden, "CSRF Failed: CSRF cookie not set.")
		}
		if c.Request().Header.Get(CSRFHeaderName) != token {
			return detail(c, http.StatusForbidden, "CSRF Failed: CSRF token missing or incorrect.")
		}
		return next(c)
	}
}

func (h *Handler) authMW(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil {
			return detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
		}
		userID, ok := h.store.SessionUser(cookie.Value)
		if !ok {
			return detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

func currentUserID(c echo.Context) int {
	id, _ := c.Get(userIDKey).(int)
	return id
}

func requestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogMethod:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}

func newRateLimiterMW(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}
