package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewHub(logrus.NewEntry(log))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("shop"))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, shop string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?shop=" + shop
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, shop string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(shop) != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount(%s) = %d, want %d", shop, hub.ClientCount(shop), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubDeliversToShopClients(t *testing.T) {
	hub, srv := newTestHub(t)
	a := dial(t, srv, "shop-a")
	b := dial(t, srv, "shop-b")
	waitForClients(t, hub, "shop-a", 1)
	waitForClients(t, hub, "shop-b", 1)

	hub.Publish("shop-a", EventSaleSettled, map[string]string{"invoice_number": "INV-000001"})

	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := a.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var ev struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventSaleSettled || ev.Data["invoice_number"] != "INV-000001" {
		t.Errorf("event = %+v", ev)
	}

	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Error("shop-b received shop-a's event")
	}
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "shop-a")
	waitForClients(t, hub, "shop-a", 1)

	conn.Close()
	waitForClients(t, hub, "shop-a", 0)
}
