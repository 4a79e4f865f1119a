// Package logparse turns raw Player.log bytes into game events.
//
// Parser.Feed accepts chunks that may split lines anywhere and keeps the
// trailing fragment until its newline arrives. Each complete line goes
// through ParseLine, which recognises two shapes:
//
//   - GRE messages (GREConnection.HandleWebSocketMessage or a
//     "greToClientEvent" payload): the first balanced JSON object in the line
//     is walked with gjson. Every gameStateMessage yields one
//     GameStateChanged with the hand (zone 31) and battlefield (zone 28)
//     identities, mapped from objectInstanceIds through gameObjects.
//   - Client.SceneChange lines mentioning Match yield MatchStarted.
//
// Everything else, including malformed JSON and missing fields, yields no
// event. The stream is never aborted by a bad line.
package logparse
