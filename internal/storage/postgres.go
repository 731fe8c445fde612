package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/internal/domain"
)

const dayLayout = "2006-01-02"

// Postgres stores trainings in PostgreSQL. Workouts are kept as JSONB next
// to a text array of their kinds used for filtering.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type pgRow struct {
	ID              string    `db:"id"`
	UserID          int64     `db:"user_id"`
	Program         string    `db:"program"`
	Date            time.Time `db:"date"`
	DurationMinutes int       `db:"duration_minutes"`
	Workouts        []byte    `db:"workouts"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r pgRow) training() (domain.Training, error) {
	ws, err := decodeWorkouts(r.Workouts)
	if err != nil {
		return domain.Training{}, err
	}
	return domain.Training{
		ID:              r.ID,
		UserID:          r.UserID,
		Program:         r.Program,
		Date:            domain.Day(r.Date),
		DurationMinutes: r.DurationMinutes,
		Workouts:        ws,
	}, nil
}

const pgColumns = `id, user_id, program, date, duration_minutes, workouts, created_at`

// Save inserts t with a new uuid.
func (p *Postgres) Save(ctx context.Context, t *domain.Training) (string, error) {
	start := time.Now()
	if err := validateForWrite(t); err != nil {
		return "", err
	}
	payload, err := encodeWorkouts(t.Workouts)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO trainings (id, user_id, program, date, duration_minutes, workout_kinds, workouts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, t.UserID, t.Program, t.Date.Format(dayLayout), t.DurationMinutes,
		pq.Array(kindStrings(t.WorkoutKinds())), payload,
	)
	if err != nil {
		logger.Error(ctx, component, "storage.save",
			slog.String("status", "fail"),
			slog.String("driver", "postgres"),
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
func (p *Postgres) Replace(ctx context.Context, t *domain.Training) error {
	if err := validateForWrite(t); err != nil {
		return err
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return ErrNotFound
	}
	payload, err := encodeWorkouts(t.Workouts)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE trainings
		    SET user_id = $2, program = $3, date = $4, duration_minutes = $5,
		        workout_kinds = $6, workouts = $7
		  WHERE id = $1`,
		t.ID, t.UserID, t.Program, t.Date.Format(dayLayout), t.DurationMinutes,
		pq.Array(kindStrings(t.WorkoutKinds())), payload,
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
func (p *Postgres) FindByID(ctx context.Context, id string) (*domain.Training, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var row pgRow
	err := p.db.GetContext(ctx, &row, `SELECT `+pgColumns+` FROM trainings WHERE id = $1`, id)
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

// Query filters in SQL.
func (p *Postgres) Query(ctx context.Context, q Query) ([]domain.Training, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	sb.WriteString(`SELECT ` + pgColumns + ` FROM trainings WHERE user_id = ` + arg(q.UserID))
	if !q.From.IsZero() {
		sb.WriteString(` AND date >= ` + arg(domain.Day(q.From).Format(dayLayout)))
	}
	if !q.To.IsZero() {
		sb.WriteString(` AND date < ` + arg(domain.Day(q.To).Format(dayLayout)))
	}
	switch {
	case len(q.Filter.Include) > 0:
		sb.WriteString(` AND workout_kinds && ` + arg(pq.Array(kindStrings(q.Filter.Include))) + `::text[]`)
	case len(q.Filter.Exclude) > 0:
		sb.WriteString(` AND NOT (workout_kinds <@ ` + arg(pq.Array(kindStrings(q.Filter.Exclude))) + `::text[])`)
	}
	sb.WriteString(` ORDER BY date DESC, created_at DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ` + arg(q.Limit))
	}

	var rows []pgRow
	if err := p.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("query trainings: %w", err)
	}
	out := make([]domain.Training, 0, len(rows))
	for _, r := range rows {
		t, err := r.training()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	logger.Debug(ctx, component, "storage.query",
		slog.String("status", "ok"),
		slog.String("driver", "postgres"),
		slog.Int("count", len(out)),
	)
	return out, nil
}
