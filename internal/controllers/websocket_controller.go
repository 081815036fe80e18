package controllers

import (
	"net/http"

	"equipment-system/pkg/middleware"
	"equipment-system/pkg/service"
	appwebsocket "equipment-system/pkg/websocket"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type WebSocketController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	revocation middleware.TokenRevocationChecker
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, revocation middleware.TokenRevocationChecker, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
		revocation: revocation,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs authenticates with ?token= because browsers cannot set headers on upgrade.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	tokenString := ctx.QueryParam("token")
	if tokenString == "" {
		return ctx.String(http.StatusUnauthorized, "missing token")
	}

	claims, err := c.jwtService.ValidateToken(tokenString)
	if err != nil || claims.IsRefreshToken {
		return ctx.String(http.StatusUnauthorized, "invalid token")
	}
	if revoked, err := c.revocation.IsTokenRevoked(ctx.Request().Context(), claims.ID); err != nil || revoked {
		return ctx.String(http.StatusUnauthorized, "invalid token")
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	client := appwebsocket.NewClient(c.hub, conn, claims.UserID, claims.Role)
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("websocket client connected", zap.Uint64("userID", claims.UserID), zap.String("role", claims.Role))
	return nil
}
