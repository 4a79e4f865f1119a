package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/orchestrator"
	"github.com/five82/arenaview/internal/state"
)

type call struct {
	op  string
	key card.Key
	dir orchestrator.Direction
}

type fakeCommander struct {
	mu      sync.Mutex
	calls   []call
	changed bool
}

func (f *fakeCommander) CycleArt(key card.Key, dir orchestrator.Direction) (state.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "cycle", key: key, dir: dir})
	return state.Snapshot{UpdateID: 42}, f.changed
}

func (f *fakeCommander) ResetArt(key card.Key) (state.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "reset", key: key})
	return state.Snapshot{UpdateID: 43}, f.changed
}

func (f *fakeCommander) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no commands recorded")
	}
	return f.calls[len(f.calls)-1]
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T, cmd Commander, interval time.Duration) (*state.Store, *httptest.Server) {
	t.Helper()
	store := state.NewStore(nil)
	srv := New(store, cmd, Options{EmitInterval: interval})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Hub().Serve(ctx) }()
	go func() { _ = srv.Forwarder().Serve(ctx) }()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return store, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

// readType skips messages until one of type typ arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) wireMessage {
	t.Helper()
	for range 50 {
		if msg := readMessage(t, conn); msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message", typ)
	return wireMessage{}
}

func decodeSnapshot(t *testing.T, msg wireMessage) state.Snapshot {
	t.Helper()
	var snap state.Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebSocket_InitialSnapshotThenUpdates(t *testing.T) {
	store, ts := startServer(t, &fakeCommander{}, 10*time.Millisecond)
	store.SetZones([]card.Key{"mtga:1"}, nil)

	conn := dial(t, ts)
	first := decodeSnapshot(t, readType(t, conn, TypeSnapshot))
	if first.UpdateID != 1 || len(first.Zones.Hand) != 1 {
		t.Fatalf("initial snapshot = %+v", first)
	}

	store.SetZones([]card.Key{"mtga:1", "mtga:2"}, []card.Key{"mtga:3"})
	next := decodeSnapshot(t, readType(t, conn, TypeSnapshot))
	if next.UpdateID != 2 {
		t.Fatalf("UpdateID = %d, want 2", next.UpdateID)
	}
	if len(next.Zones.Hand) != 2 || len(next.Zones.Battlefield) != 1 {
		t.Fatalf("zones = %+v", next.Zones)
	}
}

func TestWebSocket_ThrottleCoalescesBursts(t *testing.T) {
	store, ts := startServer(t, &fakeCommander{}, 50*time.Millisecond)
	conn := dial(t, ts)
	readType(t, conn, TypeSnapshot)

	const burst = 20
	for i := range burst {
		store.SetZones([]card.Key{card.Key("mtga:" + string(rune('a'+i)))}, nil)
	}

	received := 0
	var last uint64
	for last < burst {
		snap := decodeSnapshot(t, readType(t, conn, TypeSnapshot))
		if snap.UpdateID <= last {
			t.Fatalf("updateId went from %d to %d", last, snap.UpdateID)
		}
		last = snap.UpdateID
		received++
	}
	if received >= burst {
		t.Fatalf("received %d snapshots for a burst of %d, want coalescing", received, burst)
	}
}

func TestWebSocket_Commands(t *testing.T) {
	cmd := &fakeCommander{changed: true}
	_, ts := startServer(t, cmd, 10*time.Millisecond)
	conn := dial(t, ts)
	readType(t, conn, TypeSnapshot)

	send(t, conn, Command{Type: TypeCycleArt, RequestID: "r1", Key: "mtga:1001", Dir: "prev"})
	var ack Ack
	if err := json.Unmarshal(readType(t, conn, TypeAck).Data, &ack); err != nil {
		t.Fatal(err)
	}
	if ack.RequestID != "r1" || !ack.Changed || ack.UpdateID != 42 || ack.Command != TypeCycleArt {
		t.Fatalf("ack = %+v", ack)
	}
	if got := cmd.last(t); got.op != "cycle" || got.key != "mtga:1001" || got.dir != orchestrator.Prev {
		t.Fatalf("command = %+v", got)
	}

	send(t, conn, Command{Type: TypeResetArt, Key: "grp:5"})
	if err := json.Unmarshal(readType(t, conn, TypeAck).Data, &ack); err != nil {
		t.Fatal(err)
	}
	if ack.UpdateID != 43 || !ack.Changed || cmd.last(t).key != "grp:5" {
		t.Fatalf("reset ack = %+v", ack)
	}

	send(t, conn, Command{Type: TypePing})
	readType(t, conn, TypePong)

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"unknown", Command{Type: "explode", Key: "mtga:1"}, "unknown command"},
		{"missing key", Command{Type: TypeCycleArt}, "missing key"},
		{"bad direction", Command{Type: TypeCycleArt, Key: "mtga:1", Dir: "sideways"}, "unknown direction"},
	}
	for _, tt := range tests {
		send(t, conn, tt.cmd)
		var e ErrorData
		if err := json.Unmarshal(readType(t, conn, TypeError).Data, &e); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(e.Message, tt.want) {
			t.Fatalf("%s: error = %q, want %q", tt.name, e.Message, tt.want)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	readType(t, conn, TypeError)
}

func TestHTTP_CardCommands(t *testing.T) {
	cmd := &fakeCommander{changed: true}
	_, ts := startServer(t, cmd, 10*time.Millisecond)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCall   call
	}{
		{"cycle next", http.MethodPost, "/api/cards/mtga:1001/cycle", http.StatusOK, call{op: "cycle", key: "mtga:1001", dir: orchestrator.Next}},
		{"cycle prev escaped", http.MethodPost, "/api/cards/mtga%3A1001/cycle?dir=prev", http.StatusOK, call{op: "cycle", key: "mtga:1001", dir: orchestrator.Prev}},
		{"cycle name key", http.MethodPost, "/api/cards/" + url.PathEscape("name:Fire // Ice") + "/cycle", http.StatusOK, call{op: "cycle", key: "name:Fire // Ice", dir: orchestrator.Next}},
		{"reset", http.MethodDelete, "/api/cards/grp:77/art", http.StatusOK, call{op: "reset", key: "grp:77"}},
		{"bad direction", http.MethodPost, "/api/cards/mtga:1/cycle?dir=up", http.StatusBadRequest, call{}},
		{"wrong method", http.MethodGet, "/api/cards/mtga:1/cycle", http.StatusMethodNotAllowed, call{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := cmd.last(t); got != tt.wantCall {
				t.Fatalf("call = %+v, want %+v", got, tt.wantCall)
			}
		})
	}
}

func TestHTTP_ResetAckReportsChange(t *testing.T) {
	for _, changed := range []bool{true, false} {
		_, ts := startServer(t, &fakeCommander{changed: changed}, 10*time.Millisecond)
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/cards/mtga:5/art", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		var ack Ack
		err = json.NewDecoder(resp.Body).Decode(&ack)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if ack.Command != TypeResetArt || ack.Changed != changed || ack.UpdateID != 43 {
			t.Fatalf("changed=%v: ack = %+v", changed, ack)
		}
	}
}

func TestHTTP_SnapshotHealthAndMetrics(t *testing.T) {
	store, ts := startServer(t, &fakeCommander{}, 10*time.Millisecond)
	store.SetZones([]card.Key{"mtga:9"}, nil)
	store.UpsertCard("mtga:9", card.Metadata{Name: "Shock", ImageURI: "https://img/shock.jpg"})
	store.Publish()

	get := func(path string) []byte {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return body
	}

	var snap state.Snapshot
	if err := json.Unmarshal(get("/snapshot"), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.UpdateID != 2 || snap.Cards["mtga:9"].Name != "Shock" {
		t.Fatalf("snapshot = %+v", snap)
	}

	var health struct {
		Status   string `json:"status"`
		UpdateID uint64 `json:"updateId"`
	}
	if err := json.Unmarshal(get("/healthz"), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.UpdateID != 2 {
		t.Fatalf("health = %+v", health)
	}

	if body := string(get("/metrics")); !strings.Contains(body, "arenaview_websocket_connections") {
		t.Fatal("metrics output missing arenaview collectors")
	}
}

func TestCheckOrigin(t *testing.T) {
	s := New(state.NewStore(nil), &fakeCommander{}, Options{AllowedOrigins: []string{"https://overlay.example"}})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1", true},
		{"http://[::1]:8080", true},
		{"https://overlay.example", true},
		{"https://evil.example", false},
		{"null", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := s.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := New(state.NewStore(nil), &fakeCommander{}, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serveListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHub_ClosedHubRejectsJoin(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v", err)
	}
	c := &Client{id: "x", send: make(chan Message, 1)}
	if h.join(c, func() Message { return Message{Type: TypeSnapshot} }) {
		t.Fatal("join succeeded on a stopped hub")
	}
	if h.ClientCount() != 0 {
		t.Fatal("client registered on a stopped hub")
	}
}
