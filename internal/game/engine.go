// internal/game/engine.go
//
// Core game engine for a single memory session.
// Responsibilities:
//   - Build boards of 16 or 36 tiles from the palette (pairs, shuffled).
//   - Apply flips: reveal one tile, evaluate a pair on the second reveal.
//   - Resolve a pair after a fixed delay (matched or back to hidden).
//   - Count tries (up in normal mode, down in limited_tries mode).
//   - Track the outcome: none → completed | won | lost, until Reset.
//
// Notes:
//   - A Session is safe for concurrent use: HTTP handlers, WebSocket readers and
//     timer callbacks all run on their own goroutines.
//   - A deferred resolution carries the generation it was scheduled against;
//     after a Reset the generation moves on and the stale resolution is dropped.
//   - Contract violations (bad enums, out-of-range index) panic.
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/palette"
)

// Options configures a new Session. Zero values select production defaults.
type Options struct {
	Palette      []string      // ordered symbol ids; defaults to palette.IDs()
	Rand         *rand.Rand    // shuffle and target-tries source; defaults to a crypto-seeded source
	Scheduler    Scheduler     // defaults to TimerScheduler
	ResolveDelay time.Duration // defaults to DefaultResolveDelay
	Notify       func(Event)   // optional observer

	DailyDate string // YYYY-MM-DD for daily boards, empty otherwise
}

// Session holds one player's board, try counter and outcome.
type Session struct {
	ID          string
	Mode        Mode
	Difficulty  Difficulty
	TargetTries int    // only meaningful in limited_tries mode
	DailyDate   string // set for daily boards

	mu         sync.Mutex
	tiles      []Tile
	tryCount   int
	outcome    Outcome
	generation uint64
	pending    bool
	startedAt  time.Time

	palette []string
	rng     *rand.Rand
	sched   Scheduler
	delay   time.Duration
	notify  func(Event)
}

// pendingPair is the immutable capture handed to a deferred resolution.
type pendingPair struct {
	generation uint64
	indices    [2]int
	match      bool
	tryCount   int
}

// NewSession validates the configuration, draws the try budget for
// limited_tries sessions and builds the first board.
func NewSession(mode Mode, difficulty Difficulty, opts Options) *Session {
	if !mode.valid() {
		panic(fmt.Sprintf("game: invalid mode %q", string(mode)))
	}
	_ = difficulty.TileCount() // panics on unknown difficulty

	s := &Session{
		ID:         uuid.NewString(),
		Mode:       mode,
		Difficulty: difficulty,
		DailyDate:  opts.DailyDate,
		palette:    opts.Palette,
		rng:        opts.Rand,
		sched:      opts.Scheduler,
		delay:      opts.ResolveDelay,
		notify:     opts.Notify,
	}
	if s.palette == nil {
		s.palette = palette.IDs()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(cryptoSeed()))
	}
	if s.sched == nil {
		s.sched = TimerScheduler{}
	}
	if s.delay <= 0 {
		s.delay = DefaultResolveDelay
	}
	if mode == ModeLimitedTries {
		candidates := difficulty.targetTriesRange()
		s.TargetTries = candidates[s.rng.Intn(len(candidates))]
	}
	s.tryCount = s.startingTryCount()
	s.startedAt = time.Now()
	s.InitBoard()
	return s
}

// InitBoard returns the current board, building it first if the session has
// none. Repeated calls return the same arrangement.
func (s *Session) InitBoard() []Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tiles == nil {
		s.tiles = buildBoard(s.palette, s.Difficulty.TileCount(), s.rng)
	}
	return cloneTiles(s.tiles)
}

// Flip reveals the tile at index. It is ignored when the tile is not hidden,
// when a pair is already face up, or once the game has an outcome.
// The second reveal of a pair updates the try counter immediately and
// schedules the pair's resolution.
func (s *Session) Flip(index int) FlipResult {
	if n := s.Difficulty.TileCount(); index < 0 || index >= n {
		panic(fmt.Sprintf("game: flip index %d out of range [0,%d)", index, n))
	}

	s.mu.Lock()
	res := FlipResult{TryCount: s.tryCount}
	if s.outcome != OutcomeNone || s.tiles[index].State != TileHidden {
		s.mu.Unlock()
		return res
	}
	revealed := revealedIndices(s.tiles)
	if len(revealed) >= 2 {
		s.mu.Unlock()
		return res
	}

	s.tiles[index].State = TileRevealed
	s.tiles[index].WasEverRevealed = true
	res.Accepted = true
	events := []Event{{Type: EventFlipped, GameID: s.ID, Indices: []int{index}, TryCount: s.tryCount}}

	if len(revealed) == 1 {
		first := revealed[0]
		match := s.tiles[first].Content == s.tiles[index].Content
		if s.Mode == ModeLimitedTries {
			s.tryCount--
		} else {
			s.tryCount++
		}
		p := pendingPair{
			generation: s.generation,
			indices:    [2]int{first, index},
			match:      match,
			tryCount:   s.tryCount,
		}
		s.pending = true
		s.sched.AfterFunc(s.delay, func() { s.resolve(p) })

		res.Evaluated, res.Match, res.TryCount = true, match, s.tryCount
		if match {
			events = append(events, Event{Type: EventMatch, GameID: s.ID, Indices: []int{first, index}, Match: true, TryCount: s.tryCount})
		}
	}
	s.mu.Unlock()

	s.emit(events)
	return res
}

// resolve applies a deferred pair resolution. It is a no-op when the session
// has been reset since the pair was scheduled.
func (s *Session) resolve(p pendingPair) {
	s.mu.Lock()
	if p.generation != s.generation {
		s.mu.Unlock()
		log.Debug().Str("gameId", s.ID).Uint64("generation", p.generation).Msg("dropping stale resolution")
		return
	}

	next := TileHidden
	if p.match {
		next = TileMatched
	}
	for i := range s.tiles {
		if s.tiles[i].State == TileRevealed {
			s.tiles[i].State = next
		}
	}
	s.pending = false

	events := []Event{{
		Type:     EventResolved,
		GameID:   s.ID,
		Indices:  []int{p.indices[0], p.indices[1]},
		Match:    p.match,
		TryCount: s.tryCount,
	}}
	if out := s.outcomeAfter(p.tryCount); out != OutcomeNone {
		s.outcome = out
		events = append(events, Event{
			Type:      EventFinished,
			GameID:    s.ID,
			TryCount:  s.tryCount,
			Outcome:   out,
			ElapsedMs: time.Since(s.startedAt).Milliseconds(),
		})
	}
	s.mu.Unlock()

	s.emit(events)
}

// outcomeAfter classifies the board once a resolution has been applied.
func (s *Session) outcomeAfter(tryCount int) Outcome {
	if allMatched(s.tiles) {
		if s.Mode == ModeLimitedTries {
			return OutcomeWon
		}
		return OutcomeCompleted
	}
	if s.Mode == ModeLimitedTries && tryCount == 0 {
		return OutcomeLost
	}
	return OutcomeNone
}

// Reset clears the outcome, restores the try counter and deals a freshly
// shuffled board. Any resolution still in flight is invalidated.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	s.generation++
	s.outcome = OutcomeNone
	s.tryCount = s.startingTryCount()
	s.pending = false
	s.tiles = buildBoard(s.palette, s.Difficulty.TileCount(), s.rng)
	s.startedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit([]Event{{Type: EventReset, GameID: s.ID, TryCount: snap.Status.TryCount}})
	return snap
}

// Status reports the try counter, outcome and outcome-specific score fields.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Snapshot returns tiles and status read under a single lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) statusLocked() Status {
	st := Status{TryCount: s.tryCount, Outcome: s.outcome, TargetTries: s.TargetTries}
	switch s.outcome {
	case OutcomeWon:
		st.TriesUsed = s.TargetTries - s.tryCount
	case OutcomeLost:
		st.RemainingUnmatched = countUnmatched(s.tiles)
	}
	return st
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         s.ID,
		Mode:       s.Mode,
		Difficulty: s.Difficulty,
		Tiles:      cloneTiles(s.tiles),
		Status:     s.statusLocked(),
		Pending:    s.pending,
	}
}

func (s *Session) startingTryCount() int {
	if s.Mode == ModeLimitedTries {
		return s.TargetTries
	}
	return 0
}

func (s *Session) emit(events []Event) {
	if s.notify == nil {
		return
	}
	for _, e := range events {
		s.notify(e)
	}
}

func cloneTiles(t []Tile) []Tile {
	out := make([]Tile, len(t))
	copy(out, t)
	return out
}

// cryptoSeed draws a seed for math/rand from crypto/rand.
func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
