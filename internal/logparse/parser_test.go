package logparse

import (
	"reflect"
	"strings"
	"testing"

	"github.com/five82/arenaview/internal/card"
)

const gameStatePayload = `{"greToClientEvent":{"greToClientMessages":[{"type":"GREMessageType_GameStateMessage","gameStateMessage":{"gameStateId":7,"zones":[{"zoneId":31,"type":31,"objectInstanceIds":[101,102]},{"zoneId":28,"type":28,"objectInstanceIds":[201]},{"zoneId":27,"type":27,"objectInstanceIds":[301]}],"gameObjects":[{"instanceId":101,"cardTitleId":1001,"grpId":5001},{"instanceId":102,"cardTitleId":1002,"grpId":5002},{"instanceId":201,"cardTitleId":1003,"grpId":5003},{"instanceId":301,"cardTitleId":1004,"grpId":5004}]}}]}}`

func greLine(payload string) string {
	return "[UnityCrossThreadLogger]1/1/2025 GREConnection.HandleWebSocketMessage(" + payload + ")"
}

func TestParseLine_Classification(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"unrelated", "[UnityCrossThreadLogger] Some random log line", nil},
		{"empty", "", nil},
		{"scene change to match", "[UnityCrossThreadLogger] <== Client.SceneChange(Match)", []string{"MatchStarted"}},
		{"scene change elsewhere", "[UnityCrossThreadLogger] <== Client.SceneChange(Home)", nil},
		{"game state", greLine(gameStatePayload), []string{"GameStateChanged"}},
		{"bare gre payload", "[Message summarized] " + gameStatePayload, []string{"GameStateChanged"}},
		{"malformed json", "[UnityCrossThreadLogger] GREConnection.HandleWebSocketMessage({ broken json )", nil},
		{"marker without object", "GREConnection.HandleWebSocketMessage()", nil},
		{"unbalanced object", greLine(`{"greToClientEvent":{"greToClientMessages":[`), nil},
		{"no messages", greLine(`{"greToClientEvent":{}}`), nil},
		{"messages not an array", greLine(`{"greToClientEvent":{"greToClientMessages":{"a":1}}}`), nil},
		{"non game-state message", greLine(`{"greToClientEvent":{"greToClientMessages":[{"type":"GREMessageType_UIMessage"}]}}`), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, ev := range ParseLine(tt.line) {
				got = append(got, ev.Type())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseLine() types = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLine_GameStateIdentities(t *testing.T) {
	events := ParseLine(greLine(gameStatePayload))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev, ok := events[0].(GameStateChanged)
	if !ok {
		t.Fatalf("event type %T", events[0])
	}

	wantHand := []card.Identity{{MtgaID: 1001, GrpID: 5001}, {MtgaID: 1002, GrpID: 5002}}
	if !reflect.DeepEqual(ev.Hand, wantHand) {
		t.Fatalf("hand = %+v, want %+v", ev.Hand, wantHand)
	}
	wantField := []card.Identity{{MtgaID: 1003, GrpID: 5003}}
	if !reflect.DeepEqual(ev.Battlefield, wantField) {
		t.Fatalf("battlefield = %+v, want %+v", ev.Battlefield, wantField)
	}
	if ev.GameStateID != 7 {
		t.Fatalf("GameStateID = %d, want 7", ev.GameStateID)
	}
	if ev.Hand[0].Key() != "mtga:1001" || ev.Hand[1].Key() != "mtga:1002" {
		t.Fatalf("unexpected keys %q %q", ev.Hand[0].Key(), ev.Hand[1].Key())
	}
}

func TestParseLine_ZoneNamesAndMissingObjects(t *testing.T) {
	payload := `{"greToClientEvent":{"greToClientMessages":[
		{"gameStateMessage":{"zones":[{"type":"ZoneType_Hand","objectInstanceIds":[1,2,99]},{"name":"ZoneType_Battlefield","objectInstanceIds":[3]}],
		"gameObjects":[{"instanceId":1,"grpId":70},{"instanceId":2,"cardTitleId":12},{"instanceId":3,"cardTitleId":13,"grpId":80}]}},
		{"gameStateMessage":{"zones":[{"type":31,"objectInstanceIds":[5]}]}}
	]}}`
	line := greLine(strings.ReplaceAll(strings.ReplaceAll(payload, "\n", ""), "\t", ""))

	events := ParseLine(line)
	if len(events) != 2 {
		t.Fatalf("got %d events, want one per game-state message", len(events))
	}
	first := events[0].(GameStateChanged)
	wantHand := []card.Identity{{GrpID: 70}, {MtgaID: 12}}
	if !reflect.DeepEqual(first.Hand, wantHand) {
		t.Fatalf("hand = %+v, want %+v", first.Hand, wantHand)
	}
	if len(first.Battlefield) != 1 || first.Battlefield[0].MtgaID != 13 {
		t.Fatalf("battlefield = %+v", first.Battlefield)
	}

	second := events[1].(GameStateChanged)
	if len(second.Hand) != 0 || len(second.Battlefield) != 0 {
		t.Fatalf("message without gameObjects should yield empty zones, got %+v", second)
	}
}

func TestParseLine_BracesInsideStrings(t *testing.T) {
	payload := `{"note":"a } brace { inside","greToClientEvent":{"greToClientMessages":[{"gameStateMessage":{"zones":[{"type":31,"objectInstanceIds":[1]}],"gameObjects":[{"instanceId":1,"cardTitleId":9,"name":"x\"}"}]}}]}}`
	events := ParseLine(greLine(payload) + " trailing {garbage}")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if hand := events[0].(GameStateChanged).Hand; len(hand) != 1 || hand[0].MtgaID != 9 {
		t.Fatalf("hand = %+v", hand)
	}
}

func TestParser_MalformedLineDoesNotStopStream(t *testing.T) {
	p := NewParser()
	input := "[UnityCrossThreadLogger] GREConnection.HandleWebSocketMessage({ broken json )\n" +
		"[UnityCrossThreadLogger] <== Client.SceneChange(Match)\n"
	events := p.Feed([]byte(input))
	if len(events) != 1 || events[0].Type() != "MatchStarted" {
		t.Fatalf("events = %+v, want a single MatchStarted", events)
	}
}

func TestParser_SplitChunks(t *testing.T) {
	full := "noise\r\n" + greLine(gameStatePayload) + "\r\n" + "Client.SceneChange(Match)\n"

	for _, size := range []int{1, 3, 17, 64, len(full)} {
		p := NewParser()
		var got []string
		for start := 0; start < len(full); start += size {
			end := min(start+size, len(full))
			for _, ev := range p.Feed([]byte(full[start:end])) {
				got = append(got, ev.Type())
			}
		}
		want := []string{"GameStateChanged", "MatchStarted"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("chunk size %d: got %v, want %v", size, got, want)
		}
	}
}

func TestParser_PendingFragmentAndFlush(t *testing.T) {
	p := NewParser()
	if events := p.Feed([]byte("Client.SceneChange(Ma")); len(events) != 0 {
		t.Fatalf("incomplete line produced %v", events)
	}
	if events := p.Feed([]byte("tch)")); len(events) != 0 {
		t.Fatalf("still incomplete, got %v", events)
	}
	events := p.Flush()
	if len(events) != 1 || events[0].Type() != "MatchStarted" {
		t.Fatalf("Flush = %v", events)
	}
	if events := p.Flush(); events != nil {
		t.Fatalf("second Flush = %v, want nil", events)
	}
}

func TestParser_OverflowDiscardsFragment(t *testing.T) {
	p := NewParser(WithMaxPending(32))

	long := "Client.SceneChange(Match) " + strings.Repeat("x", 40)
	if events := p.Feed([]byte(long[:20])); len(events) != 0 {
		t.Fatalf("unexpected events %v", events)
	}
	// The rest of the oversized line arrives, followed by a normal line.
	events := p.Feed([]byte(long[20:] + "\nClient.SceneChange(Match)\n"))
	if len(events) != 1 {
		t.Fatalf("got %d events, want only the line after the overflow", len(events))
	}
	if p.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", p.Dropped())
	}
}
