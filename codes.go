package main

import (
	"crypto/rand"
	"errors"
)

// Room codes are short enough to read out loud. The alphabet drops
// I, O, 0 and 1, which are too easy to confuse on a phone screen.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6

	// 32^6 codes means collisions are effectively impossible at any
	// realistic room count, but a runaway loop is worse than a failed
	// request.
	maxCodeAttempts = 100
)

var errCodeSpaceExhausted = errors.New("unable to allocate an unused room code")

// generateRoomCode returns a random candidate code. Uniqueness against
// live rooms is the registry's problem.
func generateRoomCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, codeLength)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(out)
}
