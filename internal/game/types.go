// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - TileState: hidden/revealed/matched.
//   - Tile: one cell of the board.
//   - Mode, Difficulty: closed per-session configuration enums.
//   - Outcome: terminal classification of a finished session.
//   - Status, FlipResult, Snapshot: read models handed to callers.

package game

import "fmt"

// TileState is the visible state of a single tile.
// Transitions: hidden → revealed → matched | hidden. Matched is terminal.
type TileState string

const (
	TileHidden   TileState = "hidden"
	TileRevealed TileState = "revealed"
	TileMatched  TileState = "matched"
)

// Tile is one cell of the board. Every Content value appears on exactly two tiles.
type Tile struct {
	Content         string    // palette symbol id
	State           TileState // hidden | revealed | matched
	WasEverRevealed bool      // sticky; drives the placeholder on the back face
}

// Mode selects the rule set for a session.
type Mode string

const (
	ModeNormal       Mode = "normal"        // untimed, tries count up
	ModeLimitedTries Mode = "limited_tries" // tries count down from a random target
)

// Difficulty selects the board size.
type Difficulty string

const (
	DifficultySmall Difficulty = "4x4"
	DifficultyLarge Difficulty = "6x6"
)

// Outcome is empty while the game is in progress.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCompleted Outcome = "completed" // normal mode, every tile matched
	OutcomeWon       Outcome = "won"       // limited_tries, every tile matched in budget
	OutcomeLost      Outcome = "lost"      // limited_tries, budget exhausted
)

// TileCount returns the number of tiles on a board of difficulty d.
// Unknown values are a caller defect and panic.
func (d Difficulty) TileCount() int {
	switch d {
	case DifficultySmall:
		return 16
	case DifficultyLarge:
		return 36
	default:
		panic(fmt.Sprintf("game: invalid difficulty %q", string(d)))
	}
}

// targetTriesRange lists the candidate budgets for limited_tries sessions.
// The 5 in the 4x4 set is kept as-is.
func (d Difficulty) targetTriesRange() []int {
	switch d {
	case DifficultySmall:
		return []int{5, 16, 17, 18, 19, 20}
	case DifficultyLarge:
		return []int{25, 26, 27, 28, 29, 30}
	default:
		panic(fmt.Sprintf("game: invalid difficulty %q", string(d)))
	}
}

func (m Mode) valid() bool { return m == ModeNormal || m == ModeLimitedTries }

// ParseDifficulty validates user input at the API boundary.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultySmall, DifficultyLarge:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// ParseMode validates user input at the API boundary.
func ParseMode(s string) (Mode, error) {
	if m := Mode(s); m.valid() {
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Status is the score summary of a session.
// TriesUsed is only set once the outcome is won; RemainingUnmatched only once lost.
type Status struct {
	TryCount           int     `json:"tryCount"`
	Outcome            Outcome `json:"outcome"`
	TargetTries        int     `json:"targetTries,omitempty"`
	TriesUsed          int     `json:"triesUsed,omitempty"`
	RemainingUnmatched int     `json:"remainingUnmatched,omitempty"`
}

// FlipResult reports what a Flip call did.
type FlipResult struct {
	Accepted  bool // false when the flip was ignored
	Evaluated bool // true when this flip completed a pair
	Match     bool // pair contents are equal (only meaningful when Evaluated)
	TryCount  int  // try counter after the call
}

// Snapshot is a consistent copy of a session for rendering.
type Snapshot struct {
	ID         string
	Mode       Mode
	Difficulty Difficulty
	Tiles      []Tile
	Status     Status
	Pending    bool // a pair is waiting for its deferred resolution
}
