package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory/server/internal/game"
)

func newSession() *game.Session {
	p := make([]string, 18)
	for i := range p {
		p[i] = fmt.Sprint(i)
	}
	return game.NewSession(game.ModeNormal, game.DifficultySmall, game.Options{Palette: p})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSession()

	require.NoError(t, st.Save(ctx, s))
	got, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, st.Delete(ctx, s.ID))
	_, err = st.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, st.Delete(ctx, "missing"))
	assert.Error(t, st.Save(ctx, nil))
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := &memory{sessions: map[string]*entry{}, now: func() time.Time { return clock }}

	idle, active := newSession(), newSession()
	require.NoError(t, m.Save(ctx, idle))
	require.NoError(t, m.Save(ctx, active))

	clock = clock.Add(90 * time.Minute)
	_, err := m.Get(ctx, active.ID)
	require.NoError(t, err)

	clock = clock.Add(40 * time.Minute)
	assert.Equal(t, []string{idle.ID}, m.Sweep(ctx, time.Hour))
	assert.Empty(t, m.Sweep(ctx, time.Hour))

	_, err = m.Get(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, active.ID)
	assert.NoError(t, err)
}
