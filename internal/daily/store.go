package daily

import (
	"context"
	"database/sql"
)

// Result is one user's finished daily board.
type Result struct {
	UserID         string `json:"userId"`
	Date           string `json:"date"`
	Seed           int64  `json:"-"`
	Score          int    `json:"score"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, seed, score, elapsed_seconds)
		 VALUES(?,?,?,?,?)`, r.UserID, r.Date, r.Seed, r.Score, r.ElapsedSeconds,
	)
	return err
}

// LBRow is one leaderboard entry: fastest solve wins, score breaks ties.
type LBRow struct {
	UserID         string `json:"userId"`
	Score          int    `json:"score"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, score, elapsed_seconds
		 FROM daily_results
		 WHERE date=?
		 ORDER BY elapsed_seconds ASC, score DESC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LBRow
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Score, &r.ElapsedSeconds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
