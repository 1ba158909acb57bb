package interview

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	return conn
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeStream(w, r, r.URL.Query().Get("session"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session=s1"
	first := dialStream(t, url)
	defer first.Close()
	second := dialStream(t, url)
	defer second.Close()

	// Subscription happens inside ServeStream; wait for both to register.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := len(hub.conns["s1"])
		hub.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast("s1", map[string]int{"operations": 40})

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got map[string]int
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if got["operations"] != 40 {
			t.Errorf("client %d got %v", i, got)
		}
	}
}

func TestHubBroadcastPrunesDeadConnections(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeStream(w, r, "s1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	alive := dialStream(t, url)
	defer alive.Close()
	dead := dialStream(t, url)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := len(hub.conns["s1"])
		hub.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Kill the transport under one client, then broadcast until the write
	// failure prunes it. The survivor must keep receiving throughout.
	dead.UnderlyingConn().Close()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.Broadcast("s1", map[string]int{"team": 10})

		alive.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got map[string]int
		if err := alive.ReadJSON(&got); err != nil {
			t.Fatalf("surviving client read: %v", err)
		}

		hub.mu.Lock()
		n := len(hub.conns["s1"])
		hub.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("dead connection was never pruned")
}
