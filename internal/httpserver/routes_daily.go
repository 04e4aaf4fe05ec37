// internal/httpserver/routes_daily.go
//
// HTTP routes for the "board of the day".
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's board for a difficulty/mode
//   - GET  /daily/leaderboard → top 20 finished boards for a day
//
// Daily boards are ordinary sessions whose shuffle and try budget come from a
// date-seeded source, so flips and resets use the regular /game/{id} routes.
// A player is ranked by their first finished daily board of each kind.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/daily"
	"github.com/robalobadob/memory/server/internal/game"
)

// dailyEntry points an owner's daily board at its live session.
type dailyEntry struct {
	gameID string
	date   string
}

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	sessions map[string]dailyEntry // owner|date|difficulty|mode
	mu       sync.Mutex            // guards sessions
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.dd = &dailyServer{srv: s, sessions: make(map[string]dailyEntry)}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.dd.handleNew)
		r.Get("/leaderboard", s.dd.handleLeaderboard)
	})
}

// forget drops entries pointing at the given (swept or deleted) sessions.
func (d *dailyServer) forget(gameIDs ...string) {
	if len(gameIDs) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(gameIDs))
	for _, id := range gameIDs {
		gone[id] = struct{}{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, e := range d.sessions {
		if _, ok := gone[e.gameID]; ok {
			delete(d.sessions, k)
		}
	}
}

// pruneLocked drops entries from previous days. Callers hold d.mu.
func (d *dailyServer) pruneLocked(today string) {
	for k, e := range d.sessions {
		if e.date != today {
			delete(d.sessions, k)
		}
	}
}

// dailyNewRes is returned by /daily/new. Game is omitted once Played is true.
type dailyNewRes struct {
	Date   string    `json:"date"`
	Played bool      `json:"played"`
	Game   *gameView `json:"game,omitempty"`
}

// handleNew creates or resumes today's board for the caller.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json")
			return
		}
	}
	m, diff, err := req.parseConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	own := d.srv.ownerOf(w, r)
	now := time.Now().UTC()
	date := daily.DateKey(now)

	if d.srv.daily != nil {
		played, err := d.srv.daily.AlreadyPlayed(r.Context(), own.id(), date, diff, m)
		if err != nil {
			log.Warn().Err(err).Msg("daily already played")
		}
		if played {
			_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
			return
		}
	}

	key := own.id() + "|" + date + "|" + string(diff) + "|" + string(m)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(date)
	if e, ok := d.sessions[key]; ok {
		if sess, err := d.srv.store.Get(r.Context(), e.gameID); err == nil {
			view := buildGameView(sess, sess.Snapshot())
			_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Game: &view})
			return
		}
		delete(d.sessions, key)
	}

	sess := d.srv.newSession(m, diff, own, date, daily.Rand(now, d.srv.cfg.DailySalt, diff, m))
	if err := d.srv.store.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.sessions[key] = dailyEntry{gameID: sess.ID, date: date}
	log.Info().Str("gameId", sess.ID).Str("date", date).Msg("daily board started")

	view := buildGameView(sess, sess.Snapshot())
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Game: &view})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date       string          `json:"date"`
	Difficulty game.Difficulty `json:"difficulty"`
	Mode       game.Mode       `json:"mode"`
	Top        []daily.LBRow   `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date= (default today),
// ?difficulty= and ?mode= (defaults 4x4 / normal).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, diff, err := newGameReq{Difficulty: q.Get("difficulty"), Mode: q.Get("mode")}.parseConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := q.Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	out := lbRes{Date: date, Difficulty: diff, Mode: m, Top: []daily.LBRow{}}
	if d.srv.daily != nil {
		rows, err := d.srv.daily.Leaderboard(r.Context(), date, diff, m, 20)
		if err != nil {
			log.Error().Err(err).Msg("daily leaderboard")
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		out.Top = rows
	}
	_ = json.NewEncoder(w).Encode(out)
}
