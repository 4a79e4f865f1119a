package logparse

import "github.com/five82/arenaview/internal/card"

// Event is a domain event recognised in the client log.
type Event interface {
	// Type names the event for logs and metrics.
	Type() string
}

// MatchStarted marks a scene change into a match.
type MatchStarted struct {
	Raw string
}

// Type implements Event.
func (MatchStarted) Type() string { return "MatchStarted" }

// GameStateChanged carries the hand and battlefield contents of one
// game-state message, in log order. Either list may be empty.
type GameStateChanged struct {
	GameStateID int
	Hand        []card.Identity
	Battlefield []card.Identity
}

// Type implements Event.
func (GameStateChanged) Type() string { return "GameStateChanged" }
