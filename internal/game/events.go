package game

// EventType names a session notification.
type EventType string

const (
	EventFlipped  EventType = "flipped"  // a tile was revealed
	EventMatch    EventType = "match"    // a pair matched; fire-once celebration signal
	EventResolved EventType = "resolved" // a pending pair was resolved
	EventFinished EventType = "finished" // outcome became non-empty
	EventReset    EventType = "reset"    // board rebuilt, counters restored
)

// Event is delivered to Options.Notify after the session lock is released.
type Event struct {
	Type     EventType `json:"type"`
	GameID   string    `json:"gameId"`
	Indices  []int     `json:"indices,omitempty"`
	Match    bool      `json:"match,omitempty"`
	TryCount int       `json:"tryCount"`
	Outcome  Outcome   `json:"outcome,omitempty"`

	ElapsedMs int64 `json:"elapsedMs,omitempty"` // finished only: time since the board was dealt
}
