package daily

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory/server/internal/game"
)

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	assert.Equal(t, "2024-02-29", DateKey(time.Date(2024, 3, 1, 8, 0, 0, 0, loc)))
}

func TestSeed(t *testing.T) {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	later := day.Add(6 * time.Hour)
	next := day.Add(24 * time.Hour)

	base := Seed(day, "salt", game.DifficultySmall, game.ModeNormal)
	assert.Equal(t, base, Seed(later, "salt", game.DifficultySmall, game.ModeNormal))
	assert.NotEqual(t, base, Seed(next, "salt", game.DifficultySmall, game.ModeNormal))
	assert.NotEqual(t, base, Seed(day, "pepper", game.DifficultySmall, game.ModeNormal))
	assert.NotEqual(t, base, Seed(day, "salt", game.DifficultyLarge, game.ModeNormal))
	assert.NotEqual(t, base, Seed(day, "salt", game.DifficultySmall, game.ModeLimitedTries))
}

func TestDailyBoardsMatch(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := make([]string, 18)
	for i := range p {
		p[i] = fmt.Sprintf("s%d", i)
	}
	mk := func() *game.Session {
		return game.NewSession(game.ModeLimitedTries, game.DifficultyLarge, game.Options{
			Palette: p,
			Rand:    Rand(day, "salt", game.DifficultyLarge, game.ModeLimitedTries),
		})
	}
	a, b := mk(), mk()
	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.TargetTries, b.TargetTries)
	assert.Equal(t, a.InitBoard(), b.InitBoard())
}
