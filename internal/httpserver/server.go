// internal/httpserver/server.go
//
// HTTP server wiring for the Memory backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/palette".
//   - Game endpoints (optional auth): create, read, flip, reset, discard, WebSocket stream.
//   - Daily board endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine (see auth.go).
//
// Notes:
//   - Sessions live in the in-memory store only; finished games are recorded
//     to SQLite (best effort) for history, stats and the daily leaderboard.
//   - The WebSocket route is registered outside the timeout group since the
//     connection outlives a normal request.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/daily"
	"github.com/robalobadob/memory/server/internal/game"
	"github.com/robalobadob/memory/server/internal/palette"
	"github.com/robalobadob/memory/server/internal/store"
)

// Config holds per-process game settings.
type Config struct {
	ResolveDelay time.Duration // how long a pair stays face up; 0 means game.DefaultResolveDelay
	DailySalt    string        // HMAC key for daily boards
}

// Server bundles router, in-memory session store, DB handle and event hub.
type Server struct {
	r     *chi.Mux
	store store.Store
	db    *sql.DB // may be nil: nothing is recorded
	daily *daily.Store
	dd    *dailyServer
	hub   *hub
	cfg   Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, cfg Config) *Server {
	if cfg.DailySalt == "" {
		cfg.DailySalt = "local_dev_salt"
	}
	s := &Server{r: chi.NewRouter(), store: st, db: db, hub: newHub(), cfg: cfg}
	if db != nil {
		s.daily = daily.NewStore(db)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(accessLog)
	s.r.Use(corsFromEnv) // credentials-friendly CORS

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"memory-go","endpoints":["/health","/palette","POST /game/new","POST /game/{id}/flip","POST /game/{id}/reset","GET /game/{id}/ws","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/palette", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"symbols": palette.Symbols()})
		})

		// Game endpoints: OPTIONAL AUTH (guests can play)
		g := r.With(s.withOptionalAuth())
		g.Post("/game/new", s.handleNewGame)
		g.Get("/game/{id}", s.handleGetGame)
		g.Post("/game/{id}/flip", s.handleFlip)
		g.Post("/game/{id}/reset", s.handleReset)
		g.Delete("/game/{id}", s.handleDeleteGame)

		// Daily board: OPTIONAL AUTH (results recorded under the anon cookie for guests)
		s.mountDaily(g)

		// Auth + profile/stats
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleWS)

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Handler exposes the router (useful for tests and custom http.Server setups).
func (s *Server) Handler() http.Handler { return s.r }

// Sweep drops sessions idle for longer than maxIdle, along with the daily
// board entries pointing at them, and reports how many sessions went.
func (s *Server) Sweep(ctx context.Context, maxIdle time.Duration) int {
	removed := s.store.Sweep(ctx, maxIdle)
	s.dd.forget(removed...)
	return len(removed)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := clientOrigin()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one debug line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func clientOrigin() string {
	return getEnv("CLIENT_ORIGIN", "http://localhost:5173")
}

// writeError replies with {"error": code}.
func writeError(w http.ResponseWriter, status int, code string) {
	b, _ := json.Marshal(map[string]string{"error": code})
	http.Error(w, string(b), status)
}

// ------------------------------ GAME ---------------------------------------

// newGameReq is the payload for POST /game/new. Empty fields pick 4x4 / normal.
type newGameReq struct {
	Difficulty string `json:"difficulty"`
	Mode       string `json:"mode"`
}

// parseConfig validates a requested board configuration.
func (req newGameReq) parseConfig() (game.Mode, game.Difficulty, error) {
	if req.Difficulty == "" {
		req.Difficulty = string(game.DifficultySmall)
	}
	if req.Mode == "" {
		req.Mode = string(game.ModeNormal)
	}
	d, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		return "", "", err
	}
	m, err := game.ParseMode(req.Mode)
	if err != nil {
		return "", "", err
	}
	return m, d, nil
}

// owner identifies who a session's results are recorded under.
type owner struct {
	UserID string
	AnonID string
}

func (o owner) id() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.AnonID
}

// ownerOf returns the logged-in user, or the anonymous cookie for guests.
func (s *Server) ownerOf(w http.ResponseWriter, r *http.Request) owner {
	if me := currentUser(r); me != nil {
		return owner{UserID: me.ID}
	}
	return owner{AnonID: s.ensureAnonID(w, r)}
}

// newSession creates a session whose events feed the hub and whose finish is
// recorded for own. dailyDate and rng are set for daily boards only.
func (s *Server) newSession(m game.Mode, d game.Difficulty, own owner, dailyDate string, rng *rand.Rand) *game.Session {
	var sess *game.Session
	sess = game.NewSession(m, d, game.Options{
		Rand:         rng,
		ResolveDelay: s.cfg.ResolveDelay,
		DailyDate:    dailyDate,
		Notify: func(e game.Event) {
			s.hub.publish(e)
			if e.Type == game.EventFinished {
				s.recordFinish(sess, own, e)
			}
		},
	})
	return sess
}

// handleNewGame creates a fresh session and returns its initial view.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json")
			return
		}
	}
	m, d, err := req.parseConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.newSession(m, d, s.ownerOf(w, r), "", nil)
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	log.Info().Str("gameId", sess.ID).Str("mode", string(m)).Str("difficulty", string(d)).
		Int("targetTries", sess.TargetTries).Msg("game started")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(buildGameView(sess, sess.Snapshot()))
}

// loadSession resolves {id} or writes a 404.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("load session")
		}
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return sess, true
}

// handleGetGame renders the current board. Reading never reshuffles.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	sess.InitBoard()
	_ = json.NewEncoder(w).Encode(buildGameView(sess, sess.Snapshot()))
}

type flipReq struct {
	Index *int `json:"index"`
}

// checkIndex enforces the flip contract at the boundary so bad input is a
// 400 rather than an engine panic.
func checkIndex(sess *game.Session, idx *int) error {
	if idx == nil {
		return errors.New("missing_index")
	}
	if *idx < 0 || *idx >= sess.Difficulty.TileCount() {
		return errors.New("index_out_of_range")
	}
	return nil
}

// handleFlip flips one tile. Ignored flips still return 200 with accepted=false.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if err := checkIndex(sess, req.Index); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(s.flip(sess, *req.Index))
}

func (s *Server) flip(sess *game.Session, idx int) flipRes {
	res := sess.Flip(idx)
	if res.Evaluated {
		log.Debug().Str("gameId", sess.ID).Int("index", idx).Bool("match", res.Match).
			Int("tryCount", res.TryCount).Msg("pair evaluated")
	}
	return flipRes{
		Accepted:  res.Accepted,
		Evaluated: res.Evaluated,
		Match:     res.Match,
		Game:      buildGameView(sess, sess.Snapshot()),
	}
}

// handleReset deals a new board for the same session ("try again").
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(buildGameView(sess, sess.Reset()))
}

// handleDeleteGame discards a session when the player leaves the board.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	s.dd.forget(id)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
