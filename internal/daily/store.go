package daily

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/robalobadob/memory/server/internal/game"
)

// Result is one player's finished daily board.
// Tries is the number of pair evaluations the player needed.
type Result struct {
	UserID     string          `json:"userId"`
	Date       string          `json:"date"`
	Difficulty game.Difficulty `json:"difficulty"`
	Mode       game.Mode       `json:"mode"`
	Outcome    game.Outcome    `json:"outcome"`
	Tries      int             `json:"tries"`
	ElapsedMs  int64           `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether userID has a result for this daily board.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string, d game.Difficulty, m game.Mode) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=? AND difficulty=? AND mode=?`,
		userID, date, string(d), string(m),
	).Scan(&cnt)
	if err != nil {
		return false, fmt.Errorf("daily: already played: %w", err)
	}
	return cnt > 0, nil
}

// InsertResult stores a result; a second result for the same board is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, difficulty, mode, outcome, tries, elapsed_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		r.UserID, r.Date, string(r.Difficulty), string(r.Mode), string(r.Outcome), r.Tries, r.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("daily: insert result: %w", err)
	}
	return nil
}

type LBRow struct {
	UserID    string `json:"userId"`
	Tries     int    `json:"tries"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard lists the best finished boards for a day: fewest tries first,
// then fastest. Lost boards are not ranked.
func (s *Store) Leaderboard(ctx context.Context, date string, d game.Difficulty, m game.Mode, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, tries, elapsed_ms
		 FROM daily_results
		 WHERE date=? AND difficulty=? AND mode=? AND outcome IN ('completed','won')
		 ORDER BY tries ASC, elapsed_ms ASC, created_at ASC
		 LIMIT ?`, date, string(d), string(m), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("daily: leaderboard: %w", err)
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Tries, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
