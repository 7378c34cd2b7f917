package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"camguard/internal/logger"
	"camguard/internal/model"

	"github.com/gorilla/websocket"
)

func TestHubBroadcastsIntruderAlert(t *testing.T) {
	hub := NewHubService(logger.NewWriterLogger(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Register(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ts := time.Date(2024, 5, 1, 13, 45, 10, 0, time.UTC)
	hub.NotifyIntruder(model.IntruderRecord{ID: 7, ImagePath: "intruder_x.jpg", Timestamp: ts})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var alert IntruderAlert
	if err := json.Unmarshal(data, &alert); err != nil {
		t.Fatalf("bad alert json: %v", err)
	}
	if alert.Type != "intruder" || alert.ID != 7 || alert.Image != "intruder_x.jpg" || !alert.Timestamp.Equal(ts) {
		t.Errorf("unexpected alert %+v", alert)
	}
}

func TestNotifyIntruderNeverBlocks(t *testing.T) {
	hub := NewHubService(logger.NewWriterLogger(io.Discard))

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.NotifyIntruder(model.IntruderRecord{ID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyIntruder blocked without a running hub")
	}
}

func TestRegisterAfterShutdownReturns(t *testing.T) {
	hub := NewHubService(logger.NewWriterLogger(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	upgrader := websocket.Upgrader{}
	handled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(handled)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Register(conn)
		hub.Unregister(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("Register/Unregister blocked after the hub stopped")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("expected no clients, got %d", hub.GetClientCount())
	}
}
