package game

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler queues deferred resolutions until the test fires them.
type manualScheduler struct {
	queued []func()
	delays []time.Duration
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) {
	m.queued = append(m.queued, f)
	m.delays = append(m.delays, d)
}

func (m *manualScheduler) fire() {
	q := m.queued
	m.queued = nil
	for _, f := range q {
		f()
	}
}

func testPalette() []string {
	out := make([]string, 18)
	for i := range out {
		out[i] = fmt.Sprintf("sym-%02d", i)
	}
	return out
}

type harness struct {
	s      *Session
	sched  *manualScheduler
	mu     sync.Mutex
	events []Event
}

func newHarness(t *testing.T, mode Mode, d Difficulty, seed int64) *harness {
	t.Helper()
	h := &harness{sched: &manualScheduler{}}
	h.s = NewSession(mode, d, Options{
		Palette:   testPalette(),
		Rand:      rand.New(rand.NewSource(seed)),
		Scheduler: h.sched,
		Notify: func(e Event) {
			h.mu.Lock()
			h.events = append(h.events, e)
			h.mu.Unlock()
		},
	})
	return h
}

// setTarget overrides the drawn try budget of a limited_tries session.
func (h *harness) setTarget(n int) {
	h.s.mu.Lock()
	h.s.TargetTries = n
	h.s.tryCount = n
	h.s.mu.Unlock()
}

func (h *harness) eventTypes() []EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]EventType, len(h.events))
	for i, e := range h.events {
		out[i] = e.Type
	}
	return out
}

// hiddenPair returns two hidden tiles with equal (match) or different content.
func hiddenPair(t *testing.T, tiles []Tile, match bool) (int, int) {
	t.Helper()
	for i := range tiles {
		if tiles[i].State != TileHidden {
			continue
		}
		for j := i + 1; j < len(tiles); j++ {
			if tiles[j].State != TileHidden {
				continue
			}
			if (tiles[i].Content == tiles[j].Content) == match {
				return i, j
			}
		}
	}
	t.Fatalf("no hidden pair with match=%v", match)
	return -1, -1
}

func (h *harness) playPair(t *testing.T, match bool) {
	t.Helper()
	i, j := hiddenPair(t, h.s.Snapshot().Tiles, match)
	require.True(t, h.s.Flip(i).Accepted)
	require.True(t, h.s.Flip(j).Evaluated)
	h.sched.fire()
}

func TestBuildBoard(t *testing.T) {
	for _, d := range []Difficulty{DifficultySmall, DifficultyLarge} {
		t.Run(string(d), func(t *testing.T) {
			n := d.TileCount()
			tiles := buildBoard(testPalette(), n, rand.New(rand.NewSource(1)))
			require.Len(t, tiles, n)

			counts := map[string]int{}
			for _, tile := range tiles {
				counts[tile.Content]++
				assert.Equal(t, TileHidden, tile.State)
				assert.False(t, tile.WasEverRevealed)
			}
			assert.Len(t, counts, n/2)
			for _, id := range testPalette()[:n/2] {
				assert.Equal(t, 2, counts[id], id)
			}
		})
	}
}

func TestBuildBoardContractViolations(t *testing.T) {
	assert.Panics(t, func() { buildBoard(testPalette(), 15, rand.New(rand.NewSource(1))) })
	assert.Panics(t, func() { buildBoard(testPalette()[:10], 36, rand.New(rand.NewSource(1))) })
}

func TestNewSessionInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { NewSession("timed", DifficultySmall, Options{Palette: testPalette()}) })
	assert.Panics(t, func() { NewSession(ModeNormal, "5x5", Options{Palette: testPalette()}) })
}

func TestParse(t *testing.T) {
	m, err := ParseMode("limited_tries")
	require.NoError(t, err)
	assert.Equal(t, ModeLimitedTries, m)
	_, err = ParseMode("hard")
	assert.Error(t, err)

	d, err := ParseDifficulty("6x6")
	require.NoError(t, err)
	assert.Equal(t, DifficultyLarge, d)
	_, err = ParseDifficulty("8x8")
	assert.Error(t, err)
}

func TestInitBoardIsIdempotent(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 7)
	first := h.s.InitBoard()
	assert.Equal(t, first, h.s.InitBoard())

	// callers get a copy
	first[0].State = TileMatched
	assert.Equal(t, TileHidden, h.s.InitBoard()[0].State)
}

func TestTargetTriesDrawnFromCandidates(t *testing.T) {
	tests := []struct {
		d    Difficulty
		want []int
	}{
		{DifficultySmall, []int{5, 16, 17, 18, 19, 20}},
		{DifficultyLarge, []int{25, 26, 27, 28, 29, 30}},
	}
	for _, tt := range tests {
		for seed := int64(0); seed < 50; seed++ {
			h := newHarness(t, ModeLimitedTries, tt.d, seed)
			assert.Contains(t, tt.want, h.s.TargetTries)
			assert.Equal(t, h.s.TargetTries, h.s.Status().TryCount)
		}
	}

	h := newHarness(t, ModeNormal, DifficultySmall, 1)
	assert.Zero(t, h.s.TargetTries)
	assert.Zero(t, h.s.Status().TryCount)
}

func TestFlipMismatch(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 3)
	i, j := hiddenPair(t, h.s.Snapshot().Tiles, false)

	r := h.s.Flip(i)
	assert.True(t, r.Accepted)
	assert.False(t, r.Evaluated)
	assert.Equal(t, 0, h.s.Status().TryCount)
	assert.Empty(t, h.sched.queued)

	r = h.s.Flip(j)
	assert.True(t, r.Evaluated)
	assert.False(t, r.Match)
	assert.Equal(t, 1, r.TryCount)

	snap := h.s.Snapshot()
	assert.True(t, snap.Pending)
	assert.Equal(t, TileRevealed, snap.Tiles[i].State)
	assert.Equal(t, TileRevealed, snap.Tiles[j].State)
	require.Len(t, h.sched.delays, 1)
	assert.Equal(t, DefaultResolveDelay, h.sched.delays[0])

	h.sched.fire()

	snap = h.s.Snapshot()
	assert.False(t, snap.Pending)
	for _, idx := range []int{i, j} {
		assert.Equal(t, TileHidden, snap.Tiles[idx].State)
		assert.True(t, snap.Tiles[idx].WasEverRevealed)
	}
	assert.Equal(t, Status{TryCount: 1}, snap.Status)
	assert.Equal(t, []EventType{EventFlipped, EventFlipped, EventResolved}, h.eventTypes())
}

func TestFlipMatch(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 4)
	i, j := hiddenPair(t, h.s.Snapshot().Tiles, true)

	h.s.Flip(i)
	r := h.s.Flip(j)
	assert.True(t, r.Match)
	assert.Equal(t, []EventType{EventFlipped, EventFlipped, EventMatch}, h.eventTypes())

	h.sched.fire()
	snap := h.s.Snapshot()
	assert.Equal(t, TileMatched, snap.Tiles[i].State)
	assert.Equal(t, TileMatched, snap.Tiles[j].State)
	assert.Equal(t, 1, snap.Status.TryCount)
	assert.Equal(t, OutcomeNone, snap.Status.Outcome)
}

func TestFlipIgnoredInputs(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 5)
	i, j := hiddenPair(t, h.s.Snapshot().Tiles, true)

	h.s.Flip(i)
	before := h.s.Snapshot()
	assert.False(t, h.s.Flip(i).Accepted, "revealed tile")
	assert.Equal(t, before, h.s.Snapshot())

	h.s.Flip(j)
	k, _ := hiddenPair(t, h.s.Snapshot().Tiles, false)
	before = h.s.Snapshot()
	assert.False(t, h.s.Flip(k).Accepted, "third tile while a pair is pending")
	assert.Equal(t, before, h.s.Snapshot())
	assert.Len(t, h.sched.queued, 1)

	h.sched.fire()
	before = h.s.Snapshot()
	assert.False(t, h.s.Flip(i).Accepted, "matched tile")
	assert.Equal(t, before, h.s.Snapshot())
}

func TestFlipOutOfRangePanics(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 1)
	assert.Panics(t, func() { h.s.Flip(-1) })
	assert.Panics(t, func() { h.s.Flip(16) })
	assert.NotPanics(t, func() { h.s.Flip(15) })
}

func TestNormalModeCompletes(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 9)

	prev := 0
	for round := 0; round < 3; round++ {
		h.playPair(t, false)
		got := h.s.Status().TryCount
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	for pair := 0; pair < 8; pair++ {
		assert.Equal(t, OutcomeNone, h.s.Status().Outcome)
		h.playPair(t, true)
	}

	st := h.s.Status()
	assert.Equal(t, Status{TryCount: 11, Outcome: OutcomeCompleted}, st)
	assert.Equal(t, EventFinished, h.eventTypes()[len(h.eventTypes())-1])
	last := h.events[len(h.events)-1]
	assert.Equal(t, 11, last.TryCount)
	assert.Equal(t, OutcomeCompleted, last.Outcome)
	assert.GreaterOrEqual(t, last.ElapsedMs, int64(0))

	// terminal until reset
	assert.False(t, h.s.Flip(0).Accepted)
}

func TestLimitedTriesLost(t *testing.T) {
	h := newHarness(t, ModeLimitedTries, DifficultySmall, 11)
	h.setTarget(5)

	prev := 5
	for round := 0; round < 5; round++ {
		h.playPair(t, false)
		got := h.s.Status().TryCount
		assert.LessOrEqual(t, got, prev)
		prev = got
		if round < 4 {
			assert.Equal(t, OutcomeNone, h.s.Status().Outcome)
		}
	}

	st := h.s.Status()
	assert.Equal(t, 0, st.TryCount)
	assert.Equal(t, OutcomeLost, st.Outcome)
	assert.Equal(t, 16, st.RemainingUnmatched)
	assert.Zero(t, st.TriesUsed)
	assert.False(t, h.s.Flip(0).Accepted)
}

func TestLimitedTriesWon(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		misses  int
		wantUse int
	}{
		{name: "with budget left", target: 20, misses: 2, wantUse: 10},
		{name: "last try matches the last pair", target: 8, misses: 0, wantUse: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, ModeLimitedTries, DifficultySmall, 12)
			h.setTarget(tt.target)
			for i := 0; i < tt.misses; i++ {
				h.playPair(t, false)
			}
			for pair := 0; pair < 8; pair++ {
				h.playPair(t, true)
			}
			st := h.s.Status()
			assert.Equal(t, OutcomeWon, st.Outcome)
			assert.Equal(t, tt.wantUse, st.TriesUsed)
			assert.Equal(t, tt.target-tt.wantUse, st.TryCount)
			assert.Zero(t, st.RemainingUnmatched)
		})
	}
}

func sortedContents(tiles []Tile) []string {
	out := make([]string, len(tiles))
	for i, t := range tiles {
		out[i] = t.Content
	}
	sort.Strings(out)
	return out
}

func TestResetRestoresCounters(t *testing.T) {
	h := newHarness(t, ModeLimitedTries, DifficultySmall, 13)
	target := h.s.TargetTries
	before := h.s.Snapshot().Tiles

	h.playPair(t, false)
	h.playPair(t, true)
	require.Equal(t, target-2, h.s.Status().TryCount)

	snap := h.s.Reset()
	assert.Equal(t, target, snap.Status.TryCount)
	assert.Equal(t, target, h.s.TargetTries)
	assert.Equal(t, OutcomeNone, snap.Status.Outcome)
	assert.Equal(t, sortedContents(before), sortedContents(snap.Tiles))
	for _, tile := range snap.Tiles {
		assert.Equal(t, TileHidden, tile.State)
		assert.False(t, tile.WasEverRevealed)
	}

	n := newHarness(t, ModeNormal, DifficultySmall, 14)
	n.playPair(t, false)
	assert.Equal(t, 0, n.s.Reset().Status.TryCount)
}

func TestResetClearsOutcome(t *testing.T) {
	h := newHarness(t, ModeLimitedTries, DifficultySmall, 15)
	h.setTarget(1)
	h.playPair(t, false)
	require.Equal(t, OutcomeLost, h.s.Status().Outcome)

	snap := h.s.Reset()
	assert.Equal(t, OutcomeNone, snap.Status.Outcome)
	assert.Equal(t, 1, snap.Status.TryCount)
	assert.True(t, h.s.Flip(0).Accepted)
}

func TestStaleResolutionAfterReset(t *testing.T) {
	h := newHarness(t, ModeNormal, DifficultySmall, 16)
	i, j := hiddenPair(t, h.s.Snapshot().Tiles, true)
	h.s.Flip(i)
	h.s.Flip(j)
	require.Len(t, h.sched.queued, 1)

	fresh := h.s.Reset()
	// reveal one tile on the new board so a stale resolution would have something to touch
	require.True(t, h.s.Flip(i).Accepted)
	before := h.s.Snapshot()

	h.sched.fire()

	after := h.s.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, TileRevealed, after.Tiles[i].State)
	assert.Equal(t, fresh.Status, after.Status)
	assert.Equal(t, EventReset, h.eventTypes()[3])
	assert.NotContains(t, h.eventTypes(), EventResolved)
}

func TestTimerScheduler(t *testing.T) {
	s := NewSession(ModeNormal, DifficultySmall, Options{
		Palette:      testPalette(),
		Rand:         rand.New(rand.NewSource(17)),
		ResolveDelay: 10 * time.Millisecond,
	})
	i, j := hiddenPair(t, s.Snapshot().Tiles, true)
	s.Flip(i)
	s.Flip(j)

	require.Eventually(t, func() bool {
		return s.Snapshot().Tiles[i].State == TileMatched
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, TileMatched, s.Snapshot().Tiles[j].State)
	assert.False(t, s.Snapshot().Pending)
}
