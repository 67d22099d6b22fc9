package main

import (
	"strings"
	"sync"
)

// Registry owns the code → room mapping plus the session index that
// records which room each connection currently belongs to. Both maps
// share one lock; room contents are guarded separately by each room's
// own mutex.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	sessions map[PlayerID]string // playerID -> room code
}

func newRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		sessions: make(map[PlayerID]string),
	}
}

// createRoom allocates an unused code, builds a room containing the
// creating connection as host, and binds the session, all in one
// critical section so the code can never be handed out twice.
func (reg *Registry) createRoom(c *Client, playerName string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := ""
	for range maxCodeAttempts {
		candidate := generateRoomCode()
		if _, taken := reg.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, errCodeSpaceExhausted
	}

	room := newRoom(code)
	room.players = append(room.players, Player{
		ID:     c.playerID,
		Name:   playerName,
		IsHost: true,
	})
	room.clients[c] = true

	reg.rooms[code] = room
	reg.sessions[c.playerID] = code

	return room, nil
}

// get looks up a live room. Codes are case-insensitive on the way in;
// the generator only ever emits uppercase.
func (reg *Registry) get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[strings.ToUpper(code)]
	return room, ok
}

// remove deletes a room and unbinds the sessions of its members. The
// room's code becomes reusable from this point on.
func (reg *Registry) remove(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.rooms[room.code] != room {
		return
	}
	delete(reg.rooms, room.code)

	for id, code := range reg.sessions {
		if code == room.code {
			delete(reg.sessions, id)
		}
	}
}

func (reg *Registry) bind(id PlayerID, code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.sessions[id] = code
}

func (reg *Registry) lookup(id PlayerID) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	code, ok := reg.sessions[id]
	return code, ok
}

func (reg *Registry) unbind(id PlayerID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.sessions, id)
}

// roomCount is only used for logging and tests.
func (reg *Registry) roomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms)
}
