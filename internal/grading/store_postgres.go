package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresGradeStore is a PostgreSQL-backed GradeStore.
type PostgresGradeStore struct {
	pool *pgxpool.Pool
}

// NewPostgresGradeStore creates a PostgreSQL-backed grade store.
func NewPostgresGradeStore(pool *pgxpool.Pool) (*PostgresGradeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresGradeStore{pool: pool}, nil
}

const gradeColumns = `submission_id, question_index, rubric_version, per_goal, total_points, max_points, feedback, graded_at`

func (s *PostgresGradeStore) Upsert(ctx context.Context, g QuestionGrade) (QuestionGrade, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if g.Goals == nil {
		g.Goals = []GoalScore{}
	}
	perGoal, err := json.Marshal(g.Goals)
	if err != nil {
		return QuestionGrade{}, fmt.Errorf("marshal per_goal: %w", err)
	}
	gradedAt := g.GradedAt
	if gradedAt.IsZero() {
		gradedAt = time.Now()
	}

	return scanGrade(s.pool.QueryRow(ctx,
		`INSERT INTO question_grades (`+gradeColumns+`)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)
		 ON CONFLICT (submission_id, question_index) DO UPDATE SET
		     rubric_version = EXCLUDED.rubric_version,
		     per_goal = EXCLUDED.per_goal,
		     total_points = EXCLUDED.total_points,
		     max_points = EXCLUDED.max_points,
		     feedback = EXCLUDED.feedback,
		     graded_at = EXCLUDED.graded_at
		 RETURNING `+gradeColumns,
		g.SubmissionID, g.QuestionIndex, g.RubricVersion, string(perGoal), g.TotalPoints, g.MaxPoints, g.Feedback, gradedAt,
	))
}

func (s *PostgresGradeStore) Get(ctx context.Context, submissionID string, questionIndex int) (QuestionGrade, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanGrade(s.pool.QueryRow(ctx,
		`SELECT `+gradeColumns+`
		 FROM question_grades
		 WHERE submission_id = $1 AND question_index = $2`,
		submissionID, questionIndex,
	))
}

func (s *PostgresGradeStore) ListForSubmissions(ctx context.Context, submissionIDs []string) ([]QuestionGrade, error) {
	if len(submissionIDs) == 0 {
		return []QuestionGrade{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+gradeColumns+`
		 FROM question_grades
		 WHERE submission_id = ANY($1)
		 ORDER BY submission_id, question_index`,
		submissionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query grades: %w", err)
	}
	defer rows.Close()

	grades := []QuestionGrade{}
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grades: %w", err)
	}
	return grades, nil
}

func scanGrade(row pgx.Row) (QuestionGrade, error) {
	var g QuestionGrade
	var perGoal []byte
	err := row.Scan(&g.SubmissionID, &g.QuestionIndex, &g.RubricVersion, &perGoal,
		&g.TotalPoints, &g.MaxPoints, &g.Feedback, &g.GradedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuestionGrade{}, ErrGradeNotFound
		}
		return QuestionGrade{}, fmt.Errorf("scan grade: %w", err)
	}
	if err := json.Unmarshal(perGoal, &g.Goals); err != nil {
		return QuestionGrade{}, fmt.Errorf("unmarshal per_goal: %w", err)
	}
	return g, nil
}
