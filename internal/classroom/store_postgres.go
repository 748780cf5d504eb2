package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout             = 5 * time.Second
	pgForeignKeyViolation = "23503"
)

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed classroom store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Questions == nil {
		a.Questions = []string{}
	}
	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return Assignment{}, fmt.Errorf("marshal questions: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO assignments (id, teacher_id, title, description, questions, notes)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		 RETURNING created_at`,
		a.ID, a.TeacherID, a.Title, a.Description, string(questions), a.Notes,
	).Scan(&a.CreatedAt)
	if err != nil {
		return Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Assignment
	var questions []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, teacher_id, title, description, questions, notes, created_at
		 FROM assignments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.TeacherID, &a.Title, &a.Description, &questions, &a.Notes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, ErrAssignmentNotFound
		}
		return Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	if err := json.Unmarshal(questions, &a.Questions); err != nil {
		return Assignment{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub Submission) (Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Work == nil {
		sub.Work = map[string]json.RawMessage{}
	}
	work, err := json.Marshal(sub.Work)
	if err != nil {
		return Submission{}, fmt.Errorf("marshal work: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO submissions (id, assignment_id, student_id, student_name, work_json, current_question, completed)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		 RETURNING created_at, updated_at`,
		sub.ID, sub.AssignmentID, sub.StudentID, sub.StudentName, string(work), sub.CurrentQuestion, sub.Completed,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Submission{}, ErrAssignmentNotFound
		}
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

const submissionColumns = `id, assignment_id, student_id, student_name, work_json, current_question, completed, created_at, updated_at`

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanSubmission(s.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

func (s *PostgresStore) UpdateWork(ctx context.Context, id string, u WorkUpdate) (Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if u.Work == nil {
		u.Work = map[string]json.RawMessage{}
	}
	work, err := json.Marshal(u.Work)
	if err != nil {
		return Submission{}, fmt.Errorf("marshal work: %w", err)
	}

	// COALESCE keeps the stored value when the caller did not send one.
	return scanSubmission(s.pool.QueryRow(ctx,
		`UPDATE submissions
		 SET work_json = $2::jsonb,
		     current_question = COALESCE($3, current_question),
		     completed = COALESCE($4, completed),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+submissionColumns,
		id, string(work), u.CurrentQuestion, u.Completed,
	))
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE assignment_id = $1
		 ORDER BY created_at ASC, id ASC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

func scanSubmission(row pgx.Row) (Submission, error) {
	var sub Submission
	var work []byte
	err := row.Scan(&sub.ID, &sub.AssignmentID, &sub.StudentID, &sub.StudentName, &work,
		&sub.CurrentQuestion, &sub.Completed, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, fmt.Errorf("scan submission: %w", err)
	}
	if err := json.Unmarshal(work, &sub.Work); err != nil {
		return Submission{}, fmt.Errorf("unmarshal work_json: %w", err)
	}
	if sub.Work == nil {
		sub.Work = map[string]json.RawMessage{}
	}
	return sub, nil
}
