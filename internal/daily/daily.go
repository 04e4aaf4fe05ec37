// Package daily derives the shared "board of the day".
//
// Every player who starts a daily game on the same UTC date, with the same
// difficulty and mode, gets the same shuffle and the same try budget.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/robalobadob/memory/server/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a deterministic seed using HMAC(salt, date|difficulty|mode).
func Seed(date time.Time, salt string, d game.Difficulty, m game.Mode) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date) + "|" + string(d) + "|" + string(m)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty for a math/rand source
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Rand returns a math/rand source seeded for the given day and configuration.
func Rand(date time.Time, salt string, d game.Difficulty, m game.Mode) *rand.Rand {
	return rand.New(rand.NewSource(Seed(date, salt, d, m)))
}
