package httpserver

import (
	"fmt"
	"math"
	"net/http"
	"reflect"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/game"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || o == clientOrigin()
	},
}

// wsMessage is the envelope for both directions.
//
// Client → server: {"type":"flip","contents":{"index":3}}, {"type":"reset"}, {"type":"status"}.
// Server → client: "state" (gameView), "flipped" (flipRes), "event" (game.Event), "error".
type wsMessage struct {
	Type     string      `json:"type"`
	Contents interface{} `json:"contents,omitempty"`
}

type flipContents struct {
	Index *int `mapstructure:"index"`
}

// integralNumbers refuses JSON numbers with a fractional part instead of
// letting them truncate into int fields.
func integralNumbers(from, to reflect.Type, data interface{}) (interface{}, error) {
	if f, ok := data.(float64); ok && f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	return data, nil
}

func decodeContents(in interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: integralNumbers,
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(m wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

func wsError(code string) wsMessage {
	return wsMessage{Type: "error", Contents: map[string]string{"error": code}}
}

// handleWS streams a session's events and accepts commands for it.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("websocket upgrade")
		return
	}
	c := &wsConn{conn: conn}
	events, unsubscribe := s.hub.subscribe(sess.ID)
	defer func() {
		unsubscribe()
		_ = conn.Close()
	}()
	log.Debug().Str("gameId", sess.ID).Str("remote", conn.RemoteAddr().String()).
		Int("subscribers", s.hub.count(sess.ID)).Msg("websocket connected")

	if err := c.send(wsMessage{Type: "state", Contents: buildGameView(sess, sess.Snapshot())}); err != nil {
		return
	}

	go func() {
		for e := range events {
			if err := c.send(wsMessage{Type: "event", Contents: e}); err != nil {
				return
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("gameId", sess.ID).Msg("websocket read")
			}
			return
		}
		if err := c.send(s.handleWSCommand(sess, msg)); err != nil {
			return
		}
	}
}

func (s *Server) handleWSCommand(sess *game.Session, msg wsMessage) wsMessage {
	switch msg.Type {
	case "flip":
		var fc flipContents
		if err := decodeContents(msg.Contents, &fc); err != nil {
			return wsError("bad_contents")
		}
		if err := checkIndex(sess, fc.Index); err != nil {
			return wsError(err.Error())
		}
		return wsMessage{Type: "flipped", Contents: s.flip(sess, *fc.Index)}
	case "reset":
		return wsMessage{Type: "state", Contents: buildGameView(sess, sess.Reset())}
	case "status":
		return wsMessage{Type: "state", Contents: buildGameView(sess, sess.Snapshot())}
	default:
		return wsError("unknown_type")
	}
}
