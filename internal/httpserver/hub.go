package httpserver

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/game"
)

// subscriberBuffer bounds how far a slow WebSocket client may fall behind
// before events are dropped for it.
const subscriberBuffer = 32

// hub fans session events out to WebSocket subscribers, keyed by game ID.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan game.Event]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan game.Event]struct{})}
}

// subscribe registers a listener for one game. The returned func unsubscribes
// and closes the channel.
func (h *hub) subscribe(gameID string) (<-chan game.Event, func()) {
	ch := make(chan game.Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[chan game.Event]struct{})
	}
	h.subs[gameID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[gameID], ch)
			if len(h.subs[gameID]) == 0 {
				delete(h.subs, gameID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// publish never blocks; a full subscriber misses the event.
func (h *hub) publish(e game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[e.GameID] {
		select {
		case ch <- e:
		default:
			log.Warn().Str("gameId", e.GameID).Str("event", string(e.Type)).Msg("subscriber full, event dropped")
		}
	}
}

// count reports the number of subscribers for a game.
func (h *hub) count(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}
