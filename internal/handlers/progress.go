package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/progress"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pongWait = 60 * time.Second

// pingPeriod must stay under pongWait so an idle but healthy observer is
// pinged before its read deadline expires.
var pingPeriod = 30 * time.Second

// ProgressWebsocketHandler upgrades the connection and registers it with the
// progress hub. Observers only listen; their reads exist to notice the close.
// The handler pings on a ticker so the connection outlives quiet stretches
// between progress events.
func ProgressWebsocketHandler(hub *progress.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		defer connection.Close()

		hub.Register(connection)
		defer hub.Unregister(connection)

		done := make(chan struct{})
		defer close(done)

		// WriteControl is safe alongside the hub's broadcast writes.
		go func() {
			ticker := time.NewTicker(pingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					deadline := time.Now().Add(10 * time.Second)
					if err := connection.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Info("Progress observer disconnected: %v", err)
				break
			}
		}
	}
}
