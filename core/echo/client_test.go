package echo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-playground/core/status"
)

func newEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "bye" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(msgType, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return server, "ws" + strings.TrimPrefix(server.URL, "http")
}

func awaitUpdate(t *testing.T, updates <-chan status.Update, expected status.Status) status.Update {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case update := <-updates:
			if update.Status == expected {
				return update
			}
		case <-timeout:
			t.Fatalf("expected status %s", expected)
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	_, url := newEchoServer(t)

	messages := make(chan string, 4)
	updates := make(chan status.Update, 8)
	client, err := Dial(context.Background(), url,
		WithOnMessage(func(message string) { messages <- message }),
		WithOnStatus(func(update status.Update) { updates <- update }),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	awaitUpdate(t, updates, status.Connected)

	for _, text := range []string{"hello", "  spaced out  ", "{\"not\":\"parsed\"}"} {
		if err := client.Send(text); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		select {
		case got := <-messages:
			if got != text {
				t.Fatalf("expected echo %q, got %q", text, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expected echo of %q", text)
		}
	}

	if err := client.Close(); err != nil {
		t.Fatalf("expected no error on close, got %v", err)
	}
	awaitUpdate(t, updates, status.Closed)
	if got := client.Status(); got != status.Closed {
		t.Fatalf("expected status %s, got %s", status.Closed, got)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("expected repeated close to be a no-op, got %v", err)
	}
}

func TestClientSendBeforeConnect(t *testing.T) {
	client := NewClient("")

	if err := client.Send("hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if got := client.Status(); got != status.Initializing {
		t.Fatalf("expected status %s, got %s", status.Initializing, got)
	}
}

func TestClientServerClose(t *testing.T) {
	_, url := newEchoServer(t)

	updates := make(chan status.Update, 8)
	client, err := Dial(context.Background(), url, WithOnStatus(func(update status.Update) { updates <- update }))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := client.Send("bye"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	awaitUpdate(t, updates, status.Closed)

	if err := client.Send("hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after server close, got %v", err)
	}
}

func TestDialFailureReportsError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	updates := make(chan status.Update, 4)
	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"),
		WithOnStatus(func(update status.Update) { updates <- update }))
	if err == nil {
		t.Fatalf("expected dial to fail")
	}

	update := awaitUpdate(t, updates, status.Error)
	if update.Message == "" {
		t.Fatalf("expected error status to carry a message")
	}
}
