package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const defaultListLimit = 50

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// The API and the worker both migrate on startup; the advisory lock
	// keeps them from racing.
	const lockID = 724311902

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS explanations (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			influences JSONB NOT NULL,
			predictors TEXT[] NOT NULL DEFAULT '{}',
			explanation TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS explanations_created_at_idx ON explanations (created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateExplanation(ctx context.Context, influences map[string]float64) (Record, error) {
	body, err := json.Marshal(influences)
	if err != nil {
		return Record{}, fmt.Errorf("marshal influences: %w", err)
	}
	now := time.Now().UTC()
	rec := Record{
		ID:         uuid.New(),
		Status:     StatusPending,
		Influences: influences,
		Predictors: predictorNames(influences),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO explanations(id, status, influences, predictors, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.Status, body, pq.Array(rec.Predictors), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

const selectRecord = `SELECT id, status, influences, predictors, explanation, error, created_at, updated_at FROM explanations`

func (s *PostgresStore) GetExplanation(ctx context.Context, id uuid.UUID) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to get explanation %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListExplanations(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, selectRecord+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CompleteExplanation(ctx context.Context, id uuid.UUID, explanation string) error {
	return s.finish(ctx, id, StatusReady, explanation, "")
}

func (s *PostgresStore) FailExplanation(ctx context.Context, id uuid.UUID, reason string) error {
	return s.finish(ctx, id, StatusFailed, "", reason)
}

func (s *PostgresStore) finish(ctx context.Context, id uuid.UUID, status Status, explanation, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE explanations SET status=$1, explanation=$2, error=$3, updated_at=now()
		WHERE id=$4`, status, explanation, reason, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec        Record
		influences []byte
		predictors []string
	)
	if err := row.Scan(&rec.ID, &rec.Status, &influences, pq.Array(&predictors),
		&rec.Explanation, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(influences, &rec.Influences); err != nil {
		return Record{}, fmt.Errorf("decode influences of %s: %w", rec.ID, err)
	}
	rec.Predictors = predictors
	return rec, nil
}

// predictorNames returns the influence keys sorted, for the predictors column.
func predictorNames(influences map[string]float64) []string {
	names := make([]string, 0, len(influences))
	for name := range influences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
