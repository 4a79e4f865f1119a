package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/config"
	"github.com/five82/arenaview/internal/state"
)

const replayLog = `[UnityCrossThreadLogger] <== Client.SceneChange(Match)
[UnityCrossThreadLogger]GREConnection.HandleWebSocketMessage({"greToClientEvent":{"greToClientMessages":[{"type":"GREMessageType_GameStateMessage","gameStateMessage":{"gameStateId":3,"zones":[{"zoneId":31,"type":31,"objectInstanceIds":[100]},{"zoneId":28,"type":28,"objectInstanceIds":[]}],"gameObjects":[{"instanceId":100,"cardTitleId":1001,"grpId":5001}]}}]}})
unrelated noise
`

func fakeScryfall(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var lookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/cards/arena/1001", func(w http.ResponseWriter, _ *http.Request) {
		lookups.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"card","id":"s1","oracle_id":"o1","name":"Shock","image_uris":{"normal":"https://img/shock-1.jpg"}}`))
	})
	mux.HandleFunc("/cards/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","has_more":false,"data":[
			{"id":"s1","oracle_id":"o1","name":"Shock","image_uris":{"normal":"https://img/shock-1.jpg"}},
			{"id":"s2","oracle_id":"o1","name":"Shock","image_uris":{"normal":"https://img/shock-2.jpg"}}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lookups
}

func testConfig(t *testing.T, scryfallURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	cfg.ScryfallURL = scryfallURL
	cfg.RequestInterval = 0
	cfg.ListenAddr = ""
	return cfg
}

func TestReplay_PopulatesStoreAndCache(t *testing.T) {
	srv, lookups := fakeScryfall(t)
	cfg := testConfig(t, srv.URL)

	p, err := newPipeline(cfg)
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	if err := Replay(context.Background(), strings.NewReader(replayLog), p.orch, 0); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	snap := p.store.Snapshot()
	if !reflect.DeepEqual(snap.Zones.Hand, []card.Key{"mtga:1001"}) {
		t.Fatalf("hand = %v", snap.Zones.Hand)
	}
	md, ok := snap.Card("mtga:1001")
	if !ok || md.Name != "Shock" || md.ImageURI != "https://img/shock-1.jpg" {
		t.Fatalf("card = %+v (ok=%v)", md, ok)
	}
	if len(md.PrintURIs) != 2 {
		t.Fatalf("PrintURIs = %v, want both prints", md.PrintURIs)
	}

	// A second pipeline over the same cache resolves without the provider.
	p2, err := newPipeline(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := Replay(context.Background(), strings.NewReader(replayLog), p2.orch, 0); err != nil {
		t.Fatal(err)
	}
	if got := lookups.Load(); got != 1 {
		t.Fatalf("provider lookups = %d, want 1", got)
	}
	if _, ok := p2.store.Snapshot().Card("mtga:1001"); !ok {
		t.Fatal("cached card missing from second run")
	}
}

func TestReplay_CancelStops(t *testing.T) {
	srv, _ := fakeScryfall(t)
	p, err := newPipeline(testConfig(t, srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Replay(ctx, strings.NewReader(strings.Repeat("noise\n", 100)), p.orch, time.Second) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Replay = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Replay did not stop on cancel")
	}
}

func TestReplayService_Outcomes(t *testing.T) {
	srv, _ := fakeScryfall(t)
	p, err := newPipeline(testConfig(t, srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	logFile := filepath.Join(t.TempDir(), "Player.log")
	if err := os.WriteFile(logFile, []byte(replayLog), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		svc  *replayService
		want error
	}{
		{"keeps tree running", &replayService{path: logFile, orch: p.orch}, suture.ErrDoNotRestart},
		{"headless exits", &replayService{path: logFile, orch: p.orch, exitWhenDone: true}, suture.ErrTerminateSupervisorTree},
		{"missing file", &replayService{path: logFile + ".gone", orch: p.orch}, suture.ErrDoNotRestart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.svc.Serve(context.Background()); !errors.Is(err, tt.want) {
				t.Fatalf("Serve = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTailService_MissingLogIsNotRestarted(t *testing.T) {
	srv, _ := fakeScryfall(t)
	p, err := newPipeline(testConfig(t, srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	svc := &tailService{path: filepath.Join(t.TempDir(), "missing.log"), orch: p.orch}
	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("Serve = %v, want ErrDoNotRestart", err)
	}
}

func TestTailService_FollowsAppendedLines(t *testing.T) {
	srv, _ := fakeScryfall(t)
	p, err := newPipeline(testConfig(t, srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	logFile := filepath.Join(t.TempDir(), "Player.log")
	if err := os.WriteFile(logFile, []byte("old content before start\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- (&tailService{path: logFile, orch: p.orch}).Serve(ctx) }()

	updates, unsubscribe := p.store.Subscribe()
	defer unsubscribe()

	// Append until the tailer, which starts at EOF, has picked the lines up.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case snap := <-updates:
			if len(snap.Zones.Hand) == 1 {
				cancel()
				// The tailer may close its chunk channel before the
				// orchestrator observes the cancellation.
				if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
					t.Fatalf("Serve = %v", err)
				}
				return
			}
		case <-tick.C:
			f, err := os.OpenFile(logFile, os.O_APPEND|os.O_WRONLY, 0)
			if err != nil {
				t.Fatal(err)
			}
			_, _ = f.WriteString(replayLog)
			_ = f.Close()
		case <-deadline:
			t.Fatal("tailer never delivered the appended game state")
		}
	}
}

func TestCardNames(t *testing.T) {
	snap := state.Snapshot{Cards: map[card.Key]card.Metadata{"mtga:1": {Name: "Opt"}}}
	got := cardNames(snap, []card.Key{"mtga:1", "grp:2"})
	if !reflect.DeepEqual(got, []string{"Opt", "grp:2"}) {
		t.Fatalf("cardNames = %v", got)
	}
}

func TestSupervisorResult(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{suture.ErrTerminateSupervisorTree, false},
		{errors.New("boom"), true},
	}
	for _, tt := range tests {
		if got := supervisorResult(tt.err) != nil; got != tt.want {
			t.Errorf("supervisorResult(%v) error = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSetupLogging_OverlayWritesToFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "nested", "arenaview.log")
	cfg.LogFormat = "json"

	closeLog, err := setupLogging(cfg, false)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	t.Cleanup(func() {
		closeLog()
		_, _ = setupLogging(config.Default(), true)
	})

	if _, err := os.Stat(cfg.LogFile); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
