// internal/database/session.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkarman/tilerush/internal/engine"
)

// ErrNotConnected is returned while the database is unreachable; callers log
// and move on.
var ErrNotConnected = errors.New("database: not connected")

// CreateSession inserts the row for a room's session of consecutive matches
// and returns its id. Called once per room lifetime, on the first match.
func CreateSession(ctx context.Context, snap engine.RoomSnapshot) (uuid.UUID, error) {
	if !Connected() {
		return uuid.Nil, ErrNotConnected
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate session id: %w", err)
	}
	q := `
		INSERT INTO sessions (id, mode, player_count, timer_setting)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := DB.Exec(ctx, q, id, string(snap.Mode), len(snap.Players), snap.TimerSetting); err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// RecordMatch persists one completed match and its per-player outcomes in a
// single transaction.
func RecordMatch(ctx context.Context, sessionID uuid.UUID, snap engine.RoomSnapshot, ranking []engine.RankEntry) error {
	if !Connected() {
		return ErrNotConnected
	}
	if sessionID == uuid.Nil {
		// Session creation failed or has not landed yet; nothing to attach to.
		return errors.New("database: match has no session")
	}
	matchID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate match id: %w", err)
	}
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		insertMatch := `
			INSERT INTO matches (id, session_id, match_no, tile_layout)
			VALUES ($1, $2, $3, $4)
		`
		if _, e := tx.Exec(ctx, insertMatch, matchID, sessionID, snap.MatchCount, snap.TileLayout); e != nil {
			return e
		}
		for rank, entry := range ranking {
			q := `
				INSERT INTO match_results (match_id, seat, nickname, rank, points, path_length, elapsed_ms, did_win)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (match_id, seat)
				DO UPDATE SET rank=$4, points=$5, path_length=$6, elapsed_ms=$7, did_win=$8
			`
			if _, e := tx.Exec(ctx, q, matchID, entry.PlayerID, entry.Nickname,
				rank+1, entry.Points, entry.PathLength, entry.Time, entry.Winner); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert match results: %w", err)
	}
	return nil
}
