package main

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		turnNotifyDelay: 25 * time.Millisecond,
		disconnectGrace: 100 * time.Millisecond,
	}
}

func testClient() *Client {
	return &Client{
		send:     make(chan any, 32),
		playerID: newPlayerID(),
	}
}

// drain discards everything currently queued for a client.
func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

// awaitMessage waits for the next message of type T, discarding others.
func awaitMessage[T any](t *testing.T, c *Client) T {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %T", *new(T))
			if typed, ok := msg.(T); ok {
				return typed
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

// assertNoMessage asserts nothing is queued for a client.
func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %#v", msg)
	default:
	}
}

// newRoomWithPlayers creates a room with Alice hosting and Bob joined.
func newRoomWithPlayers(t *testing.T, g *Game) (host, guest *Client, room *Room) {
	t.Helper()

	host = testClient()
	guest = testClient()

	g.handleMessage(host, ClientMessage{Type: "createRoom", PlayerName: "Alice"})
	created := awaitMessage[RoomCreatedMessage](t, host)

	g.handleMessage(guest, ClientMessage{Type: "joinRoom", RoomCode: created.RoomCode, PlayerName: "Bob"})

	room, ok := g.registry.get(created.RoomCode)
	require.True(t, ok)

	drain(host)
	drain(guest)

	return host, guest, room
}

// newStartedRoom additionally starts the game with the turn pinned to Alice.
func newStartedRoom(t *testing.T, g *Game) (host, guest *Client, room *Room) {
	t.Helper()

	host, guest, room = newRoomWithPlayers(t, g)

	g.randIntn = func(int) int { return 0 } // opening turn goes to players[0]
	g.handleMessage(host, ClientMessage{Type: "startGame", RoomCode: room.code})

	drain(host)
	drain(guest)

	require.Equal(t, host.playerID, room.currentTurn)

	return host, guest, room
}

func TestCreateRoom(t *testing.T) {
	g := newGame(testConfig())
	c := testClient()

	g.handleMessage(c, ClientMessage{Type: "createRoom", PlayerName: "Alice"})

	created := awaitMessage[RoomCreatedMessage](t, c)
	assert.Regexp(t, regexp.MustCompile(`^[`+codeAlphabet+`]{6}$`), created.RoomCode)

	room, ok := g.registry.get(created.RoomCode)
	require.True(t, ok)
	require.Len(t, room.players, 1)
	assert.Equal(t, "Alice", room.players[0].Name)
	assert.True(t, room.players[0].IsHost)
	assert.False(t, room.gameStarted)
	assert.Nil(t, room.scores, "scores must not exist before the game starts")
}

func TestJoinUnknownRoom(t *testing.T) {
	g := newGame(testConfig())
	c := testClient()

	g.handleMessage(c, ClientMessage{Type: "joinRoom", RoomCode: "ZZZZZZ", PlayerName: "Bob"})

	errMsg := awaitMessage[ErrorMessage](t, c)
	assert.Equal(t, errRoomNotFound, errMsg.Code)
}

func TestJoinRoom(t *testing.T) {
	g := newGame(testConfig())
	host := testClient()
	guest := testClient()

	g.handleMessage(host, ClientMessage{Type: "createRoom", PlayerName: "Alice"})
	created := awaitMessage[RoomCreatedMessage](t, host)

	g.handleMessage(guest, ClientMessage{Type: "joinRoom", RoomCode: created.RoomCode, PlayerName: "Bob"})

	joined := awaitMessage[JoinedRoomMessage](t, guest)
	assert.Equal(t, created.RoomCode, joined.RoomCode)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, "Alice", joined.Players[0].Name)
	assert.True(t, joined.Players[0].IsHost)
	assert.Equal(t, "Bob", joined.Players[1].Name)
	assert.False(t, joined.Players[1].IsHost)

	notified := awaitMessage[PlayerJoinedMessage](t, host)
	assert.Equal(t, "Bob", notified.PlayerName)
	assert.Len(t, notified.Players, 2)

	// The joiner must not see the room-wide notification, nor the host
	// the unicast reply.
	assertNoMessage(t, guest)
	assertNoMessage(t, host)
}

func TestJoinFullRoom(t *testing.T) {
	g := newGame(testConfig())
	_, _, room := newRoomWithPlayers(t, g)

	third := testClient()
	g.handleMessage(third, ClientMessage{Type: "joinRoom", RoomCode: room.code, PlayerName: "Carol"})

	errMsg := awaitMessage[ErrorMessage](t, third)
	assert.Equal(t, errRoomFull, errMsg.Code)
	assert.Len(t, room.players, 2, "failed join must not mutate the room")
}

func TestJoinStartedRoom(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newRoomWithPlayers(t, g)

	g.handleMessage(host, ClientMessage{Type: "startGame", RoomCode: room.code})
	drain(host)
	drain(guest)

	// A member re-sending join is dropped outright.
	g.handleMessage(guest, ClientMessage{Type: "joinRoom", RoomCode: room.code, PlayerName: "Bob"})
	assertNoMessage(t, guest)

	// Members never leave a room, so a started room is always also at
	// capacity and the capacity check answers first.
	third := testClient()
	g.handleMessage(third, ClientMessage{Type: "joinRoom", RoomCode: room.code, PlayerName: "Carol"})

	errMsg := awaitMessage[ErrorMessage](t, third)
	assert.Equal(t, errRoomFull, errMsg.Code)
	assert.Len(t, room.players, 2, "rejected join must not mutate the room")
}

func TestStartGame(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newRoomWithPlayers(t, g)

	g.randIntn = func(int) int { return 1 }
	g.handleMessage(host, ClientMessage{Type: "startGame", RoomCode: room.code})

	for _, c := range []*Client{host, guest} {
		started := awaitMessage[GameStartedMessage](t, c)
		assert.Equal(t, guest.playerID, started.CurrentTurn)
		require.Len(t, started.Scores, 2)
		assert.Equal(t, 0, started.Scores[host.playerID])
		assert.Equal(t, 0, started.Scores[guest.playerID])
	}

	assert.True(t, room.gameStarted)
	assert.Contains(t, []PlayerID{host.playerID, guest.playerID}, room.currentTurn)
}

func TestStartGameIgnoredForNonHost(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newRoomWithPlayers(t, g)

	g.handleMessage(guest, ClientMessage{Type: "startGame", RoomCode: room.code})

	assert.False(t, room.gameStarted)
	assertNoMessage(t, host)
	assertNoMessage(t, guest)
}

func TestStartGameIgnoredBelowCapacity(t *testing.T) {
	g := newGame(testConfig())
	host := testClient()

	g.handleMessage(host, ClientMessage{Type: "createRoom", PlayerName: "Alice"})
	created := awaitMessage[RoomCreatedMessage](t, host)

	g.handleMessage(host, ClientMessage{Type: "startGame", RoomCode: created.RoomCode})

	room, ok := g.registry.get(created.RoomCode)
	require.True(t, ok)
	assert.False(t, room.gameStarted)
	assertNoMessage(t, host)
}

func TestSpinBottle(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	// Pin the winner to Bob while letting the rotation pick freely.
	g.randIntn = func(n int) int {
		if n == len(room.players) {
			return 1
		}
		return 123
	}

	g.handleMessage(host, ClientMessage{Type: "spinBottle", RoomCode: room.code})

	for _, c := range []*Client{host, guest} {
		spun := awaitMessage[BottleSpunMessage](t, c)
		assert.GreaterOrEqual(t, spun.Rotation, 4*360)
		assert.Equal(t, guest.playerID, spun.Winner)
	}

	assert.Equal(t, guest.playerID, room.currentTurn, "the spinner is not guaranteed to win")
	assert.Nil(t, room.challenge)
}

func TestSpinBottleOutOfTurn(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	g.handleMessage(guest, ClientMessage{Type: "spinBottle", RoomCode: room.code})

	assert.Equal(t, host.playerID, room.currentTurn)
	assertNoMessage(t, host)
	assertNoMessage(t, guest)
}

func TestSelectChallenge(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	g.handleMessage(host, ClientMessage{
		Type:          "selectChallenge",
		RoomCode:      room.code,
		ChallengeType: "dare",
		Challenge:     "sing a verse",
	})

	for _, c := range []*Client{host, guest} {
		selected := awaitMessage[ChallengeSelectedMessage](t, c)
		assert.Equal(t, "dare", selected.ChallengeType)
		assert.Equal(t, "sing a verse", selected.Challenge)
		assert.Equal(t, "Alice", selected.PlayerName)
		assert.Equal(t, host.playerID, selected.PlayerID)
	}

	require.NotNil(t, room.challenge)
	assert.Equal(t, "dare", room.challenge.Type)
	assert.Equal(t, host.playerID, room.challenge.OwnerID,
		"challenge owner must be the turn holder that selected it")
}

func TestCompleteChallenge(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	g.handleMessage(host, ClientMessage{
		Type:          "selectChallenge",
		RoomCode:      room.code,
		ChallengeType: "truth",
		Challenge:     "worst haircut",
	})
	drain(host)
	drain(guest)

	g.handleMessage(host, ClientMessage{Type: "completeChallenge", RoomCode: room.code})

	for _, c := range []*Client{host, guest} {
		completed := awaitMessage[ChallengeCompletedMessage](t, c)
		assert.Equal(t, host.playerID, completed.PlayerID)
		assert.Equal(t, "Alice", completed.PlayerName)
		assert.Equal(t, 1, completed.Scores[host.playerID])
		assert.Equal(t, 0, completed.Scores[guest.playerID])
	}

	// The turn switches and the challenge clears immediately; only the
	// notification is delayed.
	assert.Equal(t, guest.playerID, room.currentTurn)
	assert.Nil(t, room.challenge)

	for _, c := range []*Client{host, guest} {
		changed := awaitMessage[TurnChangedMessage](t, c)
		assert.Equal(t, guest.playerID, changed.CurrentTurn)
	}
}

func TestSkipChallenge(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	g.handleMessage(host, ClientMessage{Type: "skipChallenge", RoomCode: room.code})

	for _, c := range []*Client{host, guest} {
		skipped := awaitMessage[ChallengeSkippedMessage](t, c)
		assert.Equal(t, host.playerID, skipped.PlayerID)
		assert.Equal(t, "Alice", skipped.PlayerName)
	}

	assert.Equal(t, 0, room.scores[host.playerID], "skipping must not score")
	assert.Equal(t, guest.playerID, room.currentTurn)
	assert.Nil(t, room.challenge)

	for _, c := range []*Client{host, guest} {
		changed := awaitMessage[TurnChangedMessage](t, c)
		assert.Equal(t, guest.playerID, changed.CurrentTurn)
	}
}

func TestCompleteChallengeOutOfTurn(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	g.handleMessage(guest, ClientMessage{Type: "completeChallenge", RoomCode: room.code})

	assert.Equal(t, 0, room.scores[guest.playerID])
	assert.Equal(t, host.playerID, room.currentTurn)
	assertNoMessage(t, host)
	assertNoMessage(t, guest)
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newStartedRoom(t, g)

	g.handleMessage(host, ClientMessage{Type: "dance", RoomCode: room.code})

	assertNoMessage(t, host)
	assertNoMessage(t, guest)
}

func TestDisconnectNotifiesRoom(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newRoomWithPlayers(t, g)

	g.handleDisconnect(guest)

	gone := awaitMessage[PlayerDisconnectedMessage](t, host)
	assert.Equal(t, "Bob", gone.PlayerName)

	_, ok := g.registry.get(room.code)
	assert.True(t, ok, "room must survive while a player is still connected")
}

func TestReaperDeletesAbandonedRoom(t *testing.T) {
	g := newGame(testConfig())
	host, guest, room := newRoomWithPlayers(t, g)

	g.handleDisconnect(guest)
	g.handleDisconnect(host)

	// Deletion must not happen before the grace period elapses.
	time.Sleep(g.cfg.disconnectGrace / 4)
	_, ok := g.registry.get(room.code)
	assert.True(t, ok, "room reaped before the grace period")

	assert.Eventually(t, func() bool {
		_, ok := g.registry.get(room.code)
		return !ok
	}, time.Second, 5*time.Millisecond, "abandoned room was never reaped")
}

func TestReaperSparesRoomThatStaysConnected(t *testing.T) {
	g := newGame(testConfig())
	_, guest, room := newRoomWithPlayers(t, g)

	g.handleDisconnect(guest)

	time.Sleep(g.cfg.disconnectGrace * 2)

	_, ok := g.registry.get(room.code)
	assert.True(t, ok, "room with a connected player must not be reaped")
}
