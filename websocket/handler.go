package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an authenticated partner's request and keeps the
// connection registered until the client goes away
func HandleWebSocket(c echo.Context, hub *Hub, partnerID primitive.ObjectID) error {
	if partnerID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		PartnerID: partnerID,
		Conn:      conn,
	}
	hub.register <- client

	client.WriteJSON(Message{
		Type:      MessageTypeConnected,
		Message:   "WebSocket connection established",
		PartnerID: partnerID.Hex(),
	})

	// Inbound frames are ignored; reading detects disconnection
	go func() {
		defer func() {
			hub.unregister <- client
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
