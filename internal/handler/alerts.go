package handler

import (
	"net/http"

	"camguard/internal/logger"

	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AlertHub accepts viewer connections for intruder alerts.
type AlertHub interface {
	Register(client *websocket.Conn)
	Unregister(client *websocket.Conn)
}

// AlertsWebsocketHandler registers a viewer for intruder alerts and keeps
// the connection until the viewer closes it.
func AlertsWebsocketHandler(hub AlertHub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Alert viewer disconnected with error: %v", err)
				}
				return
			}
		}
	}
}
