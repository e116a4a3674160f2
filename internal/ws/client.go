package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"mindcascade/internal/game"
	"mindcascade/internal/ledger"
	"mindcascade/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 16

	maxRevealSteps = 64
)

// Client streams one session's ledger snapshots over a websocket and drives
// the level run the player is in.
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	hub       *Hub
	reporter  game.Reporter
	closeOnce sync.Once
	done      chan struct{}

	runMu sync.Mutex
	run   *game.Run
}

// NewClient creates a client whose level results go to reporter.
func NewClient(sessionID string, conn *websocket.Conn, hub *Hub, reporter game.Reporter) *Client {
	return &Client{
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		hub:       hub,
		reporter:  reporter,
		done:      make(chan struct{}),
	}
}

// Run registers the client for l's updates and blocks until the connection
// closes.
func (c *Client) Run(l *ledger.Ledger) {
	c.hub.register(c, l)
	defer c.hub.unregister(c)
	defer c.stopRun()

	go c.writePump()

	c.queue(encode(MsgReady, nil))
	c.queue(StatsMessage(l.Snapshot()))

	c.readPump(l)
}

// queue drops the oldest pending message when the client falls behind; the
// newest snapshot supersedes older ones anyway.
func (c *Client) queue(msg []byte) {
	if msg == nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	for {
		select {
		case c.Send <- msg:
			return
		default:
		}
		select {
		case <-c.Send:
		default:
		}
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

func (c *Client) readPump(l *ledger.Ledger) {
	defer c.Close()

	c.Conn.SetReadLimit(1024)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws: read error", "session_id", c.SessionID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.queue(encode(MsgError, ErrorPayload{Message: "invalid message"}))
			continue
		}
		switch msg.Type {
		case MsgPing:
			c.queue(encode(MsgPong, nil))
		case MsgStats:
			cur, ok := c.hub.currentLedger(c.SessionID)
			if !ok {
				cur = l
			}
			c.queue(StatsMessage(cur.Snapshot()))
		case MsgBegin:
			var p BeginPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				c.queue(encode(MsgError, ErrorPayload{Message: "invalid begin payload"}))
				continue
			}
			c.reply(c.begin(p))
		case MsgSubmit:
			var p SubmitPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				c.queue(encode(MsgError, ErrorPayload{Message: "invalid submit payload"}))
				continue
			}
			c.reply(c.withRun(func(r *game.Run) error { return r.Submit(p.Correct) }))
		case MsgContinue:
			c.reply(c.withRun((*game.Run).Continue))
		default:
			c.queue(encode(MsgError, ErrorPayload{Message: "unknown message type"}))
		}
	}
}

var (
	errNoRun    = errors.New("no level in progress")
	errBadSteps = errors.New("steps out of range")
)

// begin starts the next level of the current run. A new run is created when
// there is none, the game differs or the previous run is complete.
func (c *Client) begin(p BeginPayload) error {
	if p.Steps < 0 || p.Steps > maxRevealSteps {
		return errBadSteps
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.run == nil || c.run.State().Game != p.Game || c.run.State().Phase == game.PhaseComplete {
		games := c.hub.Games
		if games == nil {
			games = game.NewFactory()
		}
		run, err := games.NewRun(p.Game, c.reporter)
		if err != nil {
			return err
		}
		if c.run != nil {
			c.run.Stop()
		}
		run.OnPhase(func(s game.State) { c.queue(encode(MsgPhase, s)) })
		c.run = run
	}
	return c.run.Begin(p.Steps)
}

func (c *Client) withRun(fn func(*game.Run) error) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.run == nil {
		return errNoRun
	}
	return fn(c.run)
}

func (c *Client) stopRun() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.run != nil {
		c.run.Stop()
	}
}

// reply reports a failed action; successful ones answer with a phase message.
func (c *Client) reply(err error) {
	if err != nil {
		c.queue(encode(MsgError, ErrorPayload{Message: err.Error()}))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
			return
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws: write error", "session_id", c.SessionID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
