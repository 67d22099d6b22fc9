package main

import (
	"math/rand/v2"
	"time"
)

// Game applies inbound client messages to room state and publishes the
// results. One instance serves every room.
type Game struct {
	cfg      *Config
	registry *Registry

	// randIntn picks winners and opening turns. Swappable so tests can
	// pin the outcome.
	randIntn func(int) int
}

func newGame(cfg *Config) *Game {
	return &Game{
		cfg:      cfg,
		registry: newRegistry(),
		randIntn: rand.IntN,
	}
}

// schedule runs fn once after d. Nothing in normal gameplay cancels
// deferred work; the stop function exists so callers that gain a reason
// to cancel later do not need shared timer bookkeeping.
func schedule(d time.Duration, fn func()) (stop func() bool) {
	return time.AfterFunc(d, fn).Stop
}

func (g *Game) handleMessage(c *Client, msg ClientMessage) {
	switch msg.Type {
	case "createRoom":
		g.handleCreateRoom(c, msg)
	case "joinRoom":
		g.handleJoinRoom(c, msg)
	case "startGame":
		g.handleStartGame(c, msg)
	case "spinBottle":
		g.handleSpinBottle(c, msg)
	case "selectChallenge":
		g.handleSelectChallenge(c, msg)
	case "completeChallenge":
		g.handleCompleteChallenge(c, msg)
	case "skipChallenge":
		g.handleSkipChallenge(c, msg)
	default:
		// ignore unknown types
	}
}

func (g *Game) handleCreateRoom(c *Client, msg ClientMessage) {
	if _, bound := g.registry.lookup(c.playerID); bound {
		return
	}

	room, err := g.registry.createRoom(c, msg.PlayerName)
	if err != nil {
		logf(g.cfg, "GAMES: ERROR: %v", err)

		return
	}

	room.mu.Lock()
	room.sendLocked(c, RoomCreatedMessage{
		Type:     "roomCreated",
		RoomCode: room.code,
	})
	room.mu.Unlock()

	logf(g.cfg, "GAMES: Player %q created room %s", msg.PlayerName, room.code)
}

func (g *Game) handleJoinRoom(c *Client, msg ClientMessage) {
	if _, bound := g.registry.lookup(c.playerID); bound {
		return
	}

	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		c.notify(ErrorMessage{
			Type:    "error",
			Code:    errRoomNotFound,
			Message: "Room not found.",
		})
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if len(room.players) >= maxRoomPlayers {
		c.notify(ErrorMessage{
			Type:    "error",
			Code:    errRoomFull,
			Message: "Room is full.",
		})
		return
	}

	if room.gameStarted {
		c.notify(ErrorMessage{
			Type:    "error",
			Code:    errGameStarted,
			Message: "Game already started.",
		})
		return
	}

	room.players = append(room.players, Player{
		ID:   c.playerID,
		Name: msg.PlayerName,
	})
	room.addClientLocked(c)
	g.registry.bind(c.playerID, room.code)

	room.sendLocked(c, JoinedRoomMessage{
		Type:     "joinedRoom",
		RoomCode: room.code,
		Players:  room.playersLocked(),
	})
	room.broadcastExceptLocked(c, PlayerJoinedMessage{
		Type:       "playerJoined",
		PlayerName: msg.PlayerName,
		Players:    room.playersLocked(),
	})

	logf(g.cfg, "GAMES: Player %q joined room %s", msg.PlayerName, room.code)
}

func (g *Game) handleStartGame(c *Client, msg ClientMessage) {
	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	caller, ok := room.memberLocked(c.playerID)
	if !ok || !caller.IsHost || len(room.players) != maxRoomPlayers {
		return
	}

	room.gameStarted = true
	room.scores = make(map[PlayerID]int, len(room.players))
	for _, p := range room.players {
		room.scores[p.ID] = 0
	}
	room.currentTurn = room.players[g.randIntn(len(room.players))].ID

	room.broadcastLocked(GameStartedMessage{
		Type:        "gameStarted",
		CurrentTurn: room.currentTurn,
		Scores:      room.scoresLocked(),
	})

	logf(g.cfg, "GAMES: Game started in room %s", room.code)
}

func (g *Game) handleSpinBottle(c *Client, msg ClientMessage) {
	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.holdsTurnLocked(c.playerID) {
		return
	}

	// At least four full turns plus a random offset. The magnitude is
	// purely cosmetic; the winner is chosen independently below, and
	// deliberately may not be the player who spun.
	rotation := 4*360 + g.randIntn(360)
	winner := room.players[g.randIntn(len(room.players))]

	room.currentTurn = winner.ID
	room.challenge = nil

	room.broadcastLocked(BottleSpunMessage{
		Type:     "bottleSpun",
		Rotation: rotation,
		Winner:   winner.ID,
	})
}

func (g *Game) handleSelectChallenge(c *Client, msg ClientMessage) {
	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.holdsTurnLocked(c.playerID) {
		return
	}

	caller, _ := room.memberLocked(c.playerID)

	room.challenge = &Challenge{
		Type:    msg.ChallengeType,
		Text:    msg.Challenge,
		OwnerID: caller.ID,
	}

	room.broadcastLocked(ChallengeSelectedMessage{
		Type:          "challengeSelected",
		ChallengeType: msg.ChallengeType,
		Challenge:     msg.Challenge,
		PlayerName:    caller.Name,
		PlayerID:      caller.ID,
	})
}

func (g *Game) handleCompleteChallenge(c *Client, msg ClientMessage) {
	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.holdsTurnLocked(c.playerID) {
		return
	}

	caller, _ := room.memberLocked(c.playerID)

	room.scores[caller.ID]++

	room.broadcastLocked(ChallengeCompletedMessage{
		Type:       "challengeCompleted",
		PlayerID:   caller.ID,
		PlayerName: caller.Name,
		Scores:     room.scoresLocked(),
	})

	g.advanceTurnLocked(room, caller)
}

func (g *Game) handleSkipChallenge(c *Client, msg ClientMessage) {
	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.holdsTurnLocked(c.playerID) {
		return
	}

	caller, _ := room.memberLocked(c.playerID)

	room.broadcastLocked(ChallengeSkippedMessage{
		Type:       "challengeSkipped",
		PlayerID:   caller.ID,
		PlayerName: caller.Name,
	})

	g.advanceTurnLocked(room, caller)
}

// advanceTurnLocked hands the turn to the other player and clears the
// current challenge. The state change is immediate; only the
// turnChanged notification is delayed, and the deferred task re-checks
// that the room still exists when it fires.
func (g *Game) advanceTurnLocked(room *Room, caller Player) {
	other, ok := room.otherLocked(caller.ID)
	if !ok {
		return
	}

	room.currentTurn = other.ID
	room.challenge = nil

	_ = schedule(g.cfg.turnNotifyDelay, func() {
		current, ok := g.registry.get(room.code)
		if !ok || current != room {
			return
		}

		room.mu.Lock()
		room.broadcastLocked(TurnChangedMessage{
			Type:        "turnChanged",
			CurrentTurn: room.currentTurn,
		})
		room.mu.Unlock()
	})
}

// handleDisconnect runs when a connection goes away for any reason. The
// room hears about it immediately; deletion waits out the grace period
// so a brief gap does not destroy the other player's session.
func (g *Game) handleDisconnect(c *Client) {
	defer c.closeSend()

	code, bound := g.registry.lookup(c.playerID)
	if !bound {
		return
	}
	g.registry.unbind(c.playerID)

	room, ok := g.registry.get(code)
	if !ok {
		return
	}

	room.mu.Lock()
	room.removeClientLocked(c)
	if player, member := room.memberLocked(c.playerID); member {
		room.broadcastLocked(PlayerDisconnectedMessage{
			Type:       "playerDisconnected",
			PlayerName: player.Name,
		})
	}
	room.mu.Unlock()

	logf(g.cfg, "GAMES: Player disconnected from room %s", room.code)

	g.scheduleReap(room)
}

// scheduleReap checks back once the grace period has passed and deletes
// the room if no member regained a connection in the meantime.
func (g *Game) scheduleReap(room *Room) {
	_ = schedule(g.cfg.disconnectGrace, func() {
		current, ok := g.registry.get(room.code)
		if !ok || current != room {
			return
		}

		room.mu.Lock()
		abandoned := !room.connectedMemberLocked()
		room.mu.Unlock()

		if !abandoned {
			return
		}

		g.registry.remove(room)
		logf(g.cfg, "GAMES: Reaped abandoned room %s after %s", room.code,
			time.Since(room.createdAt).Round(time.Second))
	})
}
