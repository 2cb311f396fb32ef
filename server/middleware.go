package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/randalmurphal/supportflow/auth"
)

// claimsKey is the echo context key holding *auth.Claims.
const claimsKey = "supportflow.claims"

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"requestId", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	}
}

// bearerAuth rejects requests without a valid token and stores the claims
// for requireScope.
func bearerAuth(cfg auth.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="supportflow"`)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			}

			claims, err := auth.VerifyToken(cfg, strings.TrimSpace(token))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "token expired"
				}
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="supportflow", error="invalid_token"`)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// requireScope returns 403 unless the request carries scope. It is a no-op
// when authentication is disabled.
func (s *Server) requireScope(scope auth.Scope) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.cfg.Auth == nil {
				return next(c)
			}
			claims, ok := c.Get(claimsKey).(*auth.Claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			}
			if err := claims.Require(scope); err != nil {
				return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
			}
			return next(c)
		}
	}
}
