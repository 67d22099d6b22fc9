package main

// Messages coming from clients
type ClientMessage struct {
	Type          string `json:"type"`                    // "createRoom", "joinRoom", "startGame", "spinBottle", "selectChallenge", "completeChallenge", "skipChallenge"
	PlayerName    string `json:"playerName,omitempty"`    // createRoom / joinRoom
	RoomCode      string `json:"roomCode,omitempty"`      // everything except createRoom
	ChallengeType string `json:"challengeType,omitempty"` // selectChallenge
	Challenge     string `json:"challenge,omitempty"`     // selectChallenge
}

// RoomCreatedMessage confirms room creation to the creating connection.
type RoomCreatedMessage struct {
	Type     string `json:"type"` // "roomCreated"
	RoomCode string `json:"roomCode"`
}

// JoinedRoomMessage is sent to the joining connection only, with the
// full player list as of the join.
type JoinedRoomMessage struct {
	Type     string   `json:"type"` // "joinedRoom"
	RoomCode string   `json:"roomCode"`
	Players  []Player `json:"players"`
}

// PlayerJoinedMessage goes to everyone already in the room.
type PlayerJoinedMessage struct {
	Type       string   `json:"type"` // "playerJoined"
	PlayerName string   `json:"playerName"`
	Players    []Player `json:"players"`
}

// ErrorMessage carries the machine-readable join failures. Turn and
// phase violations are never reported this way; they are dropped.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"` // "ROOM_NOT_FOUND", "ROOM_FULL", "GAME_STARTED"
	Message string `json:"message"`
}

type GameStartedMessage struct {
	Type        string           `json:"type"` // "gameStarted"
	CurrentTurn PlayerID         `json:"currentTurn"`
	Scores      map[PlayerID]int `json:"scores"`
}

type BottleSpunMessage struct {
	Type     string   `json:"type"` // "bottleSpun"
	Rotation int      `json:"rotation"`
	Winner   PlayerID `json:"winner"`
}

type ChallengeSelectedMessage struct {
	Type          string   `json:"type"` // "challengeSelected"
	ChallengeType string   `json:"challengeType"`
	Challenge     string   `json:"challenge"`
	PlayerName    string   `json:"playerName"`
	PlayerID      PlayerID `json:"playerId"`
}

type ChallengeCompletedMessage struct {
	Type       string           `json:"type"` // "challengeCompleted"
	PlayerID   PlayerID         `json:"playerId"`
	PlayerName string           `json:"playerName"`
	Scores     map[PlayerID]int `json:"scores"`
}

type ChallengeSkippedMessage struct {
	Type       string   `json:"type"` // "challengeSkipped"
	PlayerID   PlayerID `json:"playerId"`
	PlayerName string   `json:"playerName"`
}

type TurnChangedMessage struct {
	Type        string   `json:"type"` // "turnChanged"
	CurrentTurn PlayerID `json:"currentTurn"`
}

type PlayerDisconnectedMessage struct {
	Type       string `json:"type"` // "playerDisconnected"
	PlayerName string `json:"playerName"`
}

const (
	errRoomNotFound = "ROOM_NOT_FOUND"
	errRoomFull     = "ROOM_FULL"
	errGameStarted  = "GAME_STARTED"
)
