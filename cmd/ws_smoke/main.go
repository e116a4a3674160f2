package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ws_smoke opens a session against a running server, subscribes to its stats
// stream and reports one level, printing every message it receives.
func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "server host:port")
	game := flag.String("game", "memory", "game to report a level for")
	level := flag.Int("level", 1, "level number")
	flag.Parse()

	base := "http://" + *addr

	var sess struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	if err := post(base+"/api/v1/session", "", nil, &sess); err != nil {
		log.Fatalf("open session: %v", err)
	}
	log.Printf("session %s", sess.SessionID)

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://%s/ws?token=%s", *addr, url.QueryEscape(sess.Token))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// ready + initial stats
	readN(conn, 2)

	var lvl map[string]any
	body := map[string]any{"game": *game, "level": *level}
	if err := post(base+"/api/v1/levels", sess.Token, body, &lvl); err != nil {
		log.Fatalf("record level: %v", err)
	}
	log.Printf("level recorded: %v", lvl)

	// score + reward notifications
	readN(conn, 2)

	log.Println("smoke test finished")
}

func readN(conn *websocket.Conn, n int) {
	for i := 0; i < n; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("read error: %v", err)
			return
		}
		log.Printf("got: %s", msg)
	}
}

func post(u, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", u, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
