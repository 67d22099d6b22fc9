package main

import (
	"sync"
	"time"
)

const maxRoomPlayers = 2

// Room is a single two-player game session.
//
// Every field after mu is guarded by it. Handlers take mu for the whole
// read-modify-write of one message, so two messages about the same room
// never interleave, while messages for different rooms run fully in
// parallel. The registry lock is never held while a room lock is held.
type Room struct {
	code string

	mu          sync.Mutex
	players     []Player // join order; players[0] created the room and is the host
	clients     map[*Client]bool
	gameStarted bool
	currentTurn PlayerID // empty until the game starts
	scores      map[PlayerID]int
	challenge   *Challenge
	createdAt   time.Time
}

func newRoom(code string) *Room {
	return &Room{
		code:      code,
		clients:   make(map[*Client]bool),
		createdAt: time.Now(),
	}
}

// memberLocked returns the room member with the given id, if any.
func (r *Room) memberLocked(id PlayerID) (Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// otherLocked resolves "the other player": the unique member whose id
// differs from the caller. Only well-defined because rooms hold at most
// two players.
func (r *Room) otherLocked(id PlayerID) (Player, bool) {
	for _, p := range r.players {
		if p.ID != id {
			return p, true
		}
	}
	return Player{}, false
}

// playersLocked copies the member list. Outbound messages are encoded
// on the writer goroutine, so they must never alias live room state.
func (r *Room) playersLocked() []Player {
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return players
}

func (r *Room) scoresLocked() map[PlayerID]int {
	scores := make(map[PlayerID]int, len(r.scores))
	for id, score := range r.scores {
		scores[id] = score
	}
	return scores
}

// holdsTurnLocked reports whether a turn-restricted operation from this
// player may proceed: the game is running and the turn is theirs.
// currentTurn is always a member id, so membership comes for free.
func (r *Room) holdsTurnLocked(id PlayerID) bool {
	return r.gameStarted && r.currentTurn == id
}

// connectedMemberLocked reports whether any member of the room still
// has a live connection.
func (r *Room) connectedMemberLocked() bool {
	for c := range r.clients {
		if _, ok := r.memberLocked(c.playerID); ok {
			return true
		}
	}
	return false
}

func (r *Room) addClientLocked(c *Client) {
	r.clients[c] = true
}

// removeClientLocked detaches a connection from the room. Returns false
// if the client was already gone, so callers can avoid closing its send
// channel twice.
func (r *Room) removeClientLocked(c *Client) bool {
	if !r.clients[c] {
		return false
	}
	delete(r.clients, c)
	return true
}

// sendLocked delivers to one connection. Clients that cannot keep up
// are dropped rather than allowed to block the room.
func (r *Room) sendLocked(c *Client, msg any) {
	if !r.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		c.closeSend()
	}
}

// broadcastLocked delivers to every connection in the room, sender
// included.
func (r *Room) broadcastLocked(msg any) {
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			delete(r.clients, c)
			c.closeSend()
		}
	}
}

// broadcastExceptLocked delivers to every connection in the room except
// the originating one.
func (r *Room) broadcastExceptLocked(sender *Client, msg any) {
	for c := range r.clients {
		if c == sender {
			continue
		}

		select {
		case c.send <- msg:
		default:
			delete(r.clients, c)
			c.closeSend()
		}
	}
}
