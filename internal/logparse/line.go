package logparse

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/five82/arenaview/internal/card"
)

const (
	greMarker      = "GREConnection.HandleWebSocketMessage"
	greEventMarker = `"greToClientEvent"`
	sceneMarker    = "Client.SceneChange"

	zoneHand        = 31
	zoneBattlefield = 28
	zoneHandName    = "ZoneType_Hand"
	zoneFieldName   = "ZoneType_Battlefield"
)

// ParseLine classifies one complete log line. Lines that are not recognised,
// or whose payload is malformed, yield no events.
func ParseLine(line string) []Event {
	switch {
	case strings.Contains(line, greMarker) || strings.Contains(line, greEventMarker):
		payload, ok := firstObject(line)
		if !ok || !gjson.Valid(payload) {
			return nil
		}
		return parseGREPayload(gjson.Parse(payload))
	case strings.Contains(line, sceneMarker) && strings.Contains(line, "Match"):
		return []Event{MatchStarted{Raw: line}}
	default:
		return nil
	}
}

func parseGREPayload(root gjson.Result) []Event {
	messages := root.Get("greToClientEvent.greToClientMessages")
	if !messages.IsArray() {
		return nil
	}
	var events []Event
	messages.ForEach(func(_, msg gjson.Result) bool {
		gsm := msg.Get("gameStateMessage")
		if gsm.Exists() && gsm.IsObject() {
			events = append(events, parseGameState(gsm))
		}
		return true
	})
	return events
}

func parseGameState(gsm gjson.Result) GameStateChanged {
	objects := indexObjects(gsm.Get("gameObjects"))
	ev := GameStateChanged{GameStateID: int(gsm.Get("gameStateId").Int())}

	gsm.Get("zones").ForEach(func(_, zone gjson.Result) bool {
		switch zoneKind(zone) {
		case zoneHand:
			ev.Hand = append(ev.Hand, identities(zone.Get("objectInstanceIds"), objects)...)
		case zoneBattlefield:
			ev.Battlefield = append(ev.Battlefield, identities(zone.Get("objectInstanceIds"), objects)...)
		}
		return true
	})
	return ev
}

// zoneKind accepts both the numeric enum and the ZoneType_* string form, in
// either the type or name field.
func zoneKind(zone gjson.Result) int {
	for _, field := range []string{"type", "name"} {
		v := zone.Get(field)
		if !v.Exists() {
			continue
		}
		switch v.Type {
		case gjson.Number:
			if n := int(v.Int()); n == zoneHand || n == zoneBattlefield {
				return n
			}
		case gjson.String:
			switch v.Str {
			case zoneHandName:
				return zoneHand
			case zoneFieldName:
				return zoneBattlefield
			}
		}
	}
	return 0
}

func indexObjects(list gjson.Result) map[int64]gjson.Result {
	objects := make(map[int64]gjson.Result)
	list.ForEach(func(_, obj gjson.Result) bool {
		id := obj.Get("instanceId")
		if id.Type == gjson.Number {
			if _, seen := objects[id.Int()]; !seen {
				objects[id.Int()] = obj
			}
		}
		return true
	})
	return objects
}

// identities maps instance ids through the object list. Ids without a
// matching object are skipped.
func identities(ids gjson.Result, objects map[int64]gjson.Result) []card.Identity {
	var out []card.Identity
	ids.ForEach(func(_, id gjson.Result) bool {
		obj, ok := objects[id.Int()]
		if !ok || id.Type != gjson.Number {
			return true
		}
		out = append(out, card.Identity{
			MtgaID: int(obj.Get("cardTitleId").Int()),
			GrpID:  int(obj.Get("grpId").Int()),
		})
		return true
	})
	return out
}

// firstObject returns the first balanced {...} substring of s. Braces inside
// JSON strings are ignored.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
