package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mindcascade/internal/domain"
	"mindcascade/internal/game"
	"mindcascade/internal/ledger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, hub *Hub, l *ledger.Ledger) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient("sess-1", conn, hub, l).Run(l)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func readStats(t *testing.T, conn *websocket.Conn) ledger.Snapshot {
	t.Helper()
	m := readMsg(t, conn)
	require.Equal(t, MsgStats, m.Type)
	var s ledger.Snapshot
	require.NoError(t, json.Unmarshal(m.Data, &s))
	return s
}

func TestStreamsSnapshots(t *testing.T) {
	hub := NewHub()
	l := ledger.New()
	conn := serve(t, hub, l)

	assert.Equal(t, MsgReady, readMsg(t, conn).Type)
	initial := readStats(t, conn)
	assert.Zero(t, initial.OverallAverage)

	require.Eventually(t, func() bool { return hub.Count("sess-1") == 1 }, time.Second, 10*time.Millisecond)

	l.RecordScore(domain.GameMath, 40)
	s := readStats(t, conn)
	assert.InDelta(t, 40.0, s.OverallAverage, 1e-9)

	l.GrantReward(domain.RewardStarOfSpeed)
	s = readStats(t, conn)
	assert.Equal(t, []domain.RewardID{domain.RewardStarOfSpeed}, s.Rewards)
}

func TestPingAndUnknown(t *testing.T) {
	hub := NewHub()
	conn := serve(t, hub, ledger.New())
	readMsg(t, conn)
	readStats(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MsgPong, readMsg(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"move"}`)))
	assert.Equal(t, MsgError, readMsg(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, MsgError, readMsg(t, conn).Type)
}

func TestUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	l := ledger.New()
	conn := serve(t, hub, l)
	readMsg(t, conn)
	require.Eventually(t, func() bool { return hub.Count("sess-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count("sess-1") == 0 }, 2*time.Second, 10*time.Millisecond)

	// no subscriber left; mutation must not block
	l.RecordScore(domain.GameMemory, 10)
}

func TestReplacedLedgerKeepsStreaming(t *testing.T) {
	hub := NewHub()
	old := ledger.New()
	c1 := &Client{SessionID: "sess-1", Send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	hub.register(c1, old)

	// the session was evicted and reloaded into a new ledger
	fresh := ledger.New()
	c2 := &Client{SessionID: "sess-1", Send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	hub.register(c2, fresh)

	fresh.RecordScore(domain.GameLogic, 20)
	assert.Len(t, c1.Send, 1)
	assert.Len(t, c2.Send, 1)

	old.RecordScore(domain.GameLogic, 40)
	assert.Len(t, c1.Send, 1, "old ledger no longer streams")

	cur, ok := hub.currentLedger("sess-1")
	require.True(t, ok)
	assert.Same(t, fresh, cur)

	hub.unregister(c1)
	hub.unregister(c2)
	_, ok = hub.currentLedger("sess-1")
	assert.False(t, ok)
}

func readPhase(t *testing.T, conn *websocket.Conn) game.State {
	t.Helper()
	m := readMsg(t, conn)
	require.Equal(t, MsgPhase, m.Type, string(m.Data))
	var s game.State
	require.NoError(t, json.Unmarshal(m.Data, &s))
	return s
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func TestPlayLevelOverStream(t *testing.T) {
	hub := NewHub()
	hub.Games = &game.Factory{Scheduler: game.WallClock{}, RevealInterval: 5 * time.Millisecond}
	l := ledger.New()
	conn := serve(t, hub, l)
	readMsg(t, conn)
	readStats(t, conn)

	send(t, conn, `{"type":"begin","data":{"game":"memory","steps":2}}`)
	assert.Equal(t, game.PhaseShowing, readPhase(t, conn).Phase)
	assert.Equal(t, game.PhaseInput, readPhase(t, conn).Phase)

	send(t, conn, `{"type":"submit","data":{"correct":true}}`)
	assert.Equal(t, game.PhaseResult, readPhase(t, conn).Phase)

	send(t, conn, `{"type":"continue"}`)
	// score and reward land in the ledger before the next phase is announced
	s := readStats(t, conn)
	assert.InDelta(t, 10.0, s.OverallAverage, 1e-9)
	s = readStats(t, conn)
	assert.Equal(t, []domain.RewardID{domain.RewardCrystalOfMemory}, s.Rewards)

	next := readPhase(t, conn)
	assert.Equal(t, game.PhaseInstruction, next.Phase)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 10, next.Score)
}

func TestPlayRejectsBadActions(t *testing.T) {
	hub := NewHub()
	conn := serve(t, hub, ledger.New())
	readMsg(t, conn)
	readStats(t, conn)

	send(t, conn, `{"type":"continue"}`)
	assert.Equal(t, MsgError, readMsg(t, conn).Type)

	send(t, conn, `{"type":"begin","data":{"game":"chess","steps":1}}`)
	assert.Equal(t, MsgError, readMsg(t, conn).Type)

	send(t, conn, `{"type":"begin","data":{"game":"math","steps":1000}}`)
	assert.Equal(t, MsgError, readMsg(t, conn).Type)

	send(t, conn, `{"type":"begin","data":{"game":"math","steps":0}}`)
	assert.Equal(t, game.PhaseInput, readPhase(t, conn).Phase)

	// already past instruction
	send(t, conn, `{"type":"begin","data":{"game":"math","steps":0}}`)
	assert.Equal(t, MsgError, readMsg(t, conn).Type)
}
