package revision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/mathboard/internal/platform/database"
	"github.com/p-n-ai/mathboard/internal/rubric"
)

const (
	dbTimeout         = 5 * time.Second
	pgUniqueViolation = "23505"
)

// PostgresStore is a PostgreSQL-backed Store. The rubrics table has a unique
// (assignment_id, version) constraint, so concurrent writers of the same
// version get ErrVersionConflict instead of silently overwriting.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed rubric version store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, assignmentID string, r rubric.Rubric) (Version, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := json.Marshal(r)
	if err != nil {
		return Version{}, fmt.Errorf("marshal rubric: %w", err)
	}

	v := Version{AssignmentID: assignmentID, Version: 1, Rubric: r}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO rubrics (assignment_id, version, rubric_json)
		 VALUES ($1, 1, $2::jsonb)
		 RETURNING created_at`,
		assignmentID,
		string(data),
	).Scan(&v.CreatedAt)
	if err != nil {
		return Version{}, mapWriteError("create rubric", err)
	}
	return v, nil
}

func (s *PostgresStore) Append(ctx context.Context, r rubric.Rubric, change Change) (Version, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := json.Marshal(r)
	if err != nil {
		return Version{}, fmt.Errorf("marshal rubric: %w", err)
	}

	v := Version{AssignmentID: change.AssignmentID, Version: change.NewVersion, Rubric: r}
	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO rubrics (assignment_id, version, rubric_json)
			 VALUES ($1, $2, $3::jsonb)
			 RETURNING created_at`,
			change.AssignmentID,
			change.NewVersion,
			string(data),
		).Scan(&v.CreatedAt)
		if err != nil {
			return mapWriteError("insert rubric version", err)
		}

		createdAt := change.CreatedAt
		if createdAt.IsZero() {
			createdAt = v.CreatedAt
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rubric_changes (assignment_id, old_version, new_version, triggered_regrade, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			change.AssignmentID,
			change.OldVersion,
			change.NewVersion,
			change.TriggeredRegrade,
			createdAt,
		); err != nil {
			return fmt.Errorf("insert rubric change: %w", err)
		}
		return nil
	})
	if err != nil {
		return Version{}, err
	}
	return v, nil
}

func (s *PostgresStore) Latest(ctx context.Context, assignmentID string) (Version, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.scanVersion(s.pool.QueryRow(ctx,
		`SELECT assignment_id, version, rubric_json, created_at
		 FROM rubrics
		 WHERE assignment_id = $1
		 ORDER BY version DESC
		 LIMIT 1`,
		assignmentID,
	))
}

func (s *PostgresStore) Get(ctx context.Context, assignmentID string, version int) (Version, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.scanVersion(s.pool.QueryRow(ctx,
		`SELECT assignment_id, version, rubric_json, created_at
		 FROM rubrics
		 WHERE assignment_id = $1 AND version = $2`,
		assignmentID,
		version,
	))
}

func (s *PostgresStore) Versions(ctx context.Context, assignmentID string) ([]Version, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT assignment_id, version, rubric_json, created_at
		 FROM rubrics
		 WHERE assignment_id = $1
		 ORDER BY version DESC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		v, err := s.scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

func (s *PostgresStore) Changes(ctx context.Context, assignmentID string) ([]Change, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT assignment_id, old_version, new_version, triggered_regrade, created_at
		 FROM rubric_changes
		 WHERE assignment_id = $1
		 ORDER BY id ASC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.AssignmentID, &c.OldVersion, &c.NewVersion, &c.TriggeredRegrade, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}

func (s *PostgresStore) scanVersion(row pgx.Row) (Version, error) {
	var v Version
	var data []byte
	if err := row.Scan(&v.AssignmentID, &v.Version, &data, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Version{}, ErrNotFound
		}
		return Version{}, fmt.Errorf("scan rubric version: %w", err)
	}
	if err := json.Unmarshal(data, &v.Rubric); err != nil {
		return Version{}, fmt.Errorf("unmarshal rubric_json: %w", err)
	}
	return v, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrVersionConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
