package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/internal/domain"
)

// SQLite stores trainings in a local SQLite file. Dates are unix seconds of
// the UTC day and workouts are JSON text, so kind filters run in Go.
type SQLite struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLite wraps an open connection.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

type sqliteRow struct {
	ID              string `db:"id"`
	UserID          int64  `db:"user_id"`
	Program         string `db:"program"`
	Date            int64  `db:"date"`
	DurationMinutes int    `db:"duration_minutes"`
	Workouts        string `db:"workouts"`
	CreatedAt       int64  `db:"created_at"`
}

func (r sqliteRow) training() (domain.Training, error) {
	ws, err := decodeWorkouts([]byte(r.Workouts))
	if err != nil {
		return domain.Training{}, err
	}
	return domain.Training{
		ID:              r.ID,
		UserID:          r.UserID,
		Program:         r.Program,
		Date:            time.Unix(r.Date, 0).UTC(),
		DurationMinutes: r.DurationMinutes,
		Workouts:        ws,
	}, nil
}

const sqliteColumns = `id, user_id, program, date, duration_minutes, workouts, created_at`

// Save inserts t with a new uuid.
func (s *SQLite) Save(ctx context.Context, t *domain.Training) (string, error) {
	start := time.Now()
	if err := validateForWrite(t); err != nil {
		return "", err
	}
	payload, err := encodeWorkouts(t.Workouts)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trainings (id, user_id, program, date, duration_minutes, workouts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, t.UserID, t.Program, t.Date.Unix(), t.DurationMinutes, string(payload), s.now().UnixNano(),
	)
	if err != nil {
		logger.Error(ctx, component, "storage.save",
			slog.String("status", "fail"),
			slog.String("driver", "sqlite"),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("insert training: %w", err)
	}
	logger.Debug(ctx, component, "storage.save",
		slog.String("status", "ok"),
		slog.String("training_id", id),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

// Replace overwrites the stored training with the same id.
func (s *SQLite) Replace(ctx context.Context, t *domain.Training) error {
	if err := validateForWrite(t); err != nil {
		return err
	}
	payload, err := encodeWorkouts(t.Workouts)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE trainings
		    SET user_id = ?, program = ?, date = ?, duration_minutes = ?, workouts = ?
		  WHERE id = ?`,
		t.UserID, t.Program, t.Date.Unix(), t.DurationMinutes, string(payload), t.ID,
	)
	if err != nil {
		return fmt.Errorf("update training: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	logger.Debug(ctx, component, "storage.replace",
		slog.String("status", "ok"),
		slog.String("training_id", t.ID),
	)
	return nil
}

// FindByID loads one training.
func (s *SQLite) FindByID(ctx context.Context, id string) (*domain.Training, error) {
	var row sqliteRow
	err := s.db.GetContext(ctx, &row, `SELECT `+sqliteColumns+` FROM trainings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select training: %w", err)
	}
	t, err := row.training()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Query selects by user and date in SQL and applies the kind filter in Go.
func (s *SQLite) Query(ctx context.Context, q Query) ([]domain.Training, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT ` + sqliteColumns + ` FROM trainings WHERE user_id = ?`
	args := []any{q.UserID}
	if !q.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, domain.Day(q.From).Unix())
	}
	if !q.To.IsZero() {
		query += ` AND date < ?`
		args = append(args, domain.Day(q.To).Unix())
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if q.Filter.IsZero() && q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	var rows []sqliteRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query trainings: %w", err)
	}
	out := make([]domain.Training, 0, len(rows))
	for _, r := range rows {
		t, err := r.training()
		if err != nil {
			return nil, err
		}
		if !q.Filter.Match(t.WorkoutKinds()) {
			continue
		}
		out = append(out, t)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	logger.Debug(ctx, component, "storage.query",
		slog.String("status", "ok"),
		slog.String("driver", "sqlite"),
		slog.Int("count", len(out)),
	)
	return out, nil
}
