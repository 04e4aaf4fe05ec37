package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/daily"
	"github.com/robalobadob/memory/server/internal/game"
)

// triesTaken is the number of pair evaluations a finished board needed.
func triesTaken(mode game.Mode, targetTries, tryCount int) int {
	if mode == game.ModeLimitedTries {
		return targetTries - tryCount
	}
	return tryCount
}

// recordFinish stores a finished board (history, user stats, daily result).
// Counters come from the finished event, captured under the session lock.
// It runs on the resolution timer goroutine, so failures are only logged.
func (s *Server) recordFinish(sess *game.Session, own owner, e game.Event) {
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	elapsed := time.Duration(e.ElapsedMs) * time.Millisecond
	tries := triesTaken(sess.Mode, sess.TargetTries, e.TryCount)
	finished := time.Now().UTC()
	started := finished.Add(-elapsed)
	success := e.Outcome == game.OutcomeCompleted || e.Outcome == game.OutcomeWon

	logger := log.With().Str("gameId", sess.ID).Str("outcome", string(e.Outcome)).Logger()
	logger.Info().Int("tries", tries).Dur("elapsed", elapsed).Msg("game finished")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("begin record tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	own, err = resolveOwner(ctx, tx, own)
	if err != nil {
		logger.Warn().Err(err).Msg("resolve owner")
		return
	}

	var userID, anonID any
	if own.UserID != "" {
		userID = own.UserID
	} else {
		anonID = own.AnonID
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (id, user_id, anonymous_id, mode, difficulty, target_tries, tries, status, started_at, finished_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		genID(), userID, anonID, string(sess.Mode), string(sess.Difficulty), sess.TargetTries, tries,
		string(e.Outcome), started.Format(time.RFC3339), finished.Format(time.RFC3339)); err != nil {
		logger.Warn().Err(err).Msg("insert game row")
		return
	}
	if own.UserID != "" {
		if err := bumpStats(ctx, tx, own.UserID, success); err != nil {
			logger.Warn().Err(err).Str("user", own.UserID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Warn().Err(err).Msg("commit record tx")
		return
	}

	if sess.DailyDate != "" && s.daily != nil {
		err := s.daily.InsertResult(ctx, daily.Result{
			UserID:     own.id(),
			Date:       sess.DailyDate,
			Difficulty: sess.Difficulty,
			Mode:       sess.Mode,
			Outcome:    e.Outcome,
			Tries:      tries,
			ElapsedMs:  e.ElapsedMs,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("insert daily result")
		}
	}
}

// resolveOwner maps a guest to the account that claimed its anon cookie,
// covering games that finish after the guest signed up or logged in.
func resolveOwner(ctx context.Context, tx *sql.Tx, own owner) (owner, error) {
	if own.UserID != "" || own.AnonID == "" {
		return own, nil
	}
	var userID string
	err := tx.QueryRowContext(ctx, `SELECT user_id FROM anon_claims WHERE anonymous_id=?`, own.AnonID).Scan(&userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return own, nil
	case err != nil:
		return own, err
	}
	return owner{UserID: userID}, nil
}

// bumpStats increments games played; updates wins and streak based on result (within tx).
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak int
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	_, err := tx.ExecContext(ctx, `UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`, gp, wins, streak, userID)
	return err
}
