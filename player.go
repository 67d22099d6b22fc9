package main

import (
	"github.com/google/uuid"
)

// PlayerID identifies a player for the lifetime of their connection.
// It maps 1:1 onto the websocket connection that produced it; keeping it
// a distinct type leaves room for session resumption later without
// overloading transport identity.
type PlayerID string

func newPlayerID() PlayerID {
	return PlayerID(uuid.NewString())
}

// Player holds the data we store server-side. Names are display-only
// and arrive unvalidated from the client.
type Player struct {
	ID     PlayerID `json:"id"`
	Name   string   `json:"name"`
	IsHost bool     `json:"isHost"`
}

// Challenge is the dare currently on the table. OwnerID is always the
// player whose turn it was when the challenge was selected.
type Challenge struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	OwnerID PlayerID `json:"ownerId"`
}
