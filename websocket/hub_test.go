package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubDeliversPartnerNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	partnerID := primitive.NewObjectID()
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(c, hub, partnerID)
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	if hello.Type != MessageTypeConnected || hello.PartnerID != partnerID.Hex() {
		t.Fatalf("hello = %+v", hello)
	}
	waitFor(t, func() bool { return hub.Connected(partnerID) == 1 })

	hub.Notify(ctx, models.Notification{PartnerID: partnerID, Type: models.NotificationCommissionStatus, Title: "Estado", Message: "PAID"})
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != models.NotificationCommissionStatus || got.Message != "PAID" {
		t.Fatalf("notification = %+v", got)
	}

	if n := hub.SendToPartner(primitive.NewObjectID(), Message{Type: "x"}); n != 0 {
		t.Fatalf("sent to %d connections of an unknown partner", n)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Connected(partnerID) == 0 })
}

func TestHandleWebSocketRequiresPartner(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	err := HandleWebSocket(e.NewContext(req, rec), NewHub(), primitive.NilObjectID)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
}
