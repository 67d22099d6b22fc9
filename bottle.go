// Bottlespin
//
// Two players share a room identified by a short code. The host creates
// the room, the second player joins with the code, and the host starts
// the game. Whoever holds the turn spins the bottle; the bottle picks a
// winner (not necessarily the spinner), who then selects a challenge for
// the table. Completing a challenge scores a point and passes the turn;
// skipping passes the turn for free.
//
// Features:
// - Single WebSocket endpoint at /bottle/ws; rooms are created and
//   joined by message rather than by URL
// - Random 6-char room codes with server-side collision check, drawn
//   from an alphabet without lookalike characters
// - Exactly two players per room; the creator is the host
// - Turn order enforced server-side; out-of-turn messages are dropped
// - Rooms abandoned by both players are reaped after a grace period
// - In-browser QR button to share a join link, backed by go-qrcode

package main

import (
	_ "embed"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. playerID is minted at upgrade
// time and lives exactly as long as the connection.
type Client struct {
	conn      *websocket.Conn
	send      chan any
	playerID  PlayerID
	closeOnce sync.Once
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// notify delivers to a connection that is not (yet) in any room, such
// as a failed join. Best effort.
func (c *Client) notify(msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func serveWS(cfg *Config, g *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: newPlayerID(),
		}

		go client.writePump()
		client.readPump(g)
	}
}

func (c *Client) readPump(g *Game) {
	defer func() {
		g.handleDisconnect(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		g.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(cfg *Config, g *Game, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		if _, ok := g.registry.get(code); !ok {
			http.Error(w, "no such room", http.StatusNotFound)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + path + "?code=" + code

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// ---- Static file paths ----

//go:embed assets/bottle/index.html
var indexHTML []byte

//go:embed assets/bottle/app.css
var bottlespinCSS []byte

//go:embed assets/bottle/app.js
var bottlespinJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(bottlespinCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(bottlespinJS)
	}
}

// registerBottleGame sets up routes so that:
//   - $path           → HTML client
//   - $path/ws        → shared WebSocket endpoint for all rooms
//   - $path/qr/:code  → PNG QR code linking to a join URL for that room
func registerBottleGame(cfg *Config, path string, mux *httprouter.Router) *Game {
	g := newGame(cfg)

	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/bottle/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/bottle/app.js", getJsHandler(cfg))

	// All rooms share one websocket endpoint
	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, g))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/qr/:code", qrHandler(cfg, g, path))

	return g
}
