/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Expedition
//
// Players gather in a room, then venture down a shared path of treasure,
// hazard and artifact cards over five rounds. After every card each player
// still in the expedition secretly decides to press on or return to camp.
// A second hazard of the same kind ends the round for everyone still inside.
//
// Routes:
//   - $path                  → redirects to a new random room (8-char ID)
//   - $path/:roomid          → HTML client
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/qr       → PNG QR code for that room URL

package main

import (
	_ "embed"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/expedition/expedition"
	"github.com/Seednode/expedition/session"
)

const (
	pingPeriod = 54 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	maxMessage = 4096
)

// ClientMessage is everything a browser may send.
type ClientMessage struct {
	Type     string `json:"type"`               // "join", "start", "set_mode", "decide", "ready", "reset"
	Name     string `json:"name,omitempty"`     // join
	Mode     string `json:"mode,omitempty"`     // join / set_mode
	Decision string `json:"decision,omitempty"` // decide
}

// intent converts msg into a session intent. Malformed messages are dropped.
func (msg ClientMessage) intent(c *session.Client) (session.Intent, bool) {
	in := session.Intent{Client: c, Kind: session.IntentKind(msg.Type)}

	switch in.Kind {
	case session.IntentJoin:
		in.Name = strings.TrimSpace(msg.Name)
		if in.Name == "" {
			return in, false
		}
		if msg.Mode != "" {
			mode, ok := expedition.ParseMode(msg.Mode)
			if !ok {
				return in, false
			}
			in.Mode = mode
		}
	case session.IntentSetMode:
		mode, ok := expedition.ParseMode(msg.Mode)
		if !ok {
			return in, false
		}
		in.Mode = mode
	case session.IntentDecide:
		choice, ok := expedition.ParseChoice(msg.Decision)
		if !ok {
			return in, false
		}
		in.Choice = choice
	case session.IntentStart, session.IntentReady, session.IntentReset:
	default:
		return in, false
	}

	return in, true
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type conn struct {
	ws     *websocket.Conn
	client *session.Client
}

// WebSocket handler that picks the hub based on :roomid
func serveWS(cfg *Config, reg *session.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Websocket upgrade for %s failed: %v", realIP(r), err)
			return
		}

		c := &conn{
			ws:     ws,
			client: session.NewClient(uuid.NewString()),
		}

		hub := reg.Attach(roomID, c.client)

		logf(cfg, "GAMES: Connection %s from %s joined room %s", c.client.ID, realIP(r), roomID)

		go c.writePump()
		c.readPump(cfg, hub)
	}
}

func (c *conn) readPump(cfg *Config, h *session.Hub) {
	defer func() {
		h.Unregister(c.client)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}

		in, ok := msg.intent(c.client)
		if !ok {
			logf(cfg, "GAMES: Ignored malformed %q message from %s", msg.Type, c.client.ID)
			continue
		}

		h.Submit(in)
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.client.Send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("roomid") == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err
		}
	}
}

//go:embed assets/expedition/index.html
var indexHTML []byte

func serveIndex(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		written, err := w.Write(indexHTML)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Game page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// redirectNewRoom handles GET /path by generating a new random room ID
// and redirecting to /path/:roomid.
func redirectNewRoom(cfg *Config, path string, reg *session.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := reg.NewRoomID()
		logf(cfg, "GAMES: Assigned room %s%s/%s to %s", cfg.prefix, path, roomID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

func registerExpeditionGame(cfg *Config, path string, mux *httprouter.Router, reg *session.Registry, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, reg))

	mux.GET(cfg.prefix+path+"/:roomid", serveIndex(cfg, errs))

	mux.GET(cfg.prefix+path+"/:roomid/ws", serveWS(cfg, reg))

	mux.GET(cfg.prefix+path+"/:roomid/qr", serveQR(cfg, errs))
}
